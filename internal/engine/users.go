package engine

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"dockwise/internal/domain"
	"dockwise/internal/engine/auth"
	"dockwise/internal/repo"
)

// ErrBadCredentials covers both unknown email and wrong password so the
// response does not reveal which one failed.
var ErrBadCredentials = errors.New("invalid email or password")

// UserCreateOptions are parameters for registering a user.
type UserCreateOptions struct {
	Email    string
	Name     string
	Role     string
	Password string
}

func validatePassword(pw string) error {
	if len(pw) < 8 {
		return ValidationError{Message: "password must be at least 8 characters"}
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ValidationError{Message: "password must mix upper case, lower case and digits"}
	}
	return nil
}

// RegisterUser creates an account. Role defaults to operator when empty.
func (e Engine) RegisterUser(ctx context.Context, opts UserCreateOptions) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(opts.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, ValidationError{Message: "valid email is required"}
	}
	if opts.Name == "" {
		return domain.User{}, ValidationError{Message: "name is required"}
	}
	role := opts.Role
	if role == "" {
		role = domain.RoleOperator
	}
	if !domain.ValidRole(role) {
		return domain.User{}, ValidationError{Message: "unknown role"}
	}
	if err := validatePassword(opts.Password); err != nil {
		return domain.User{}, err
	}
	n, err := e.Repo.CountUsersByEmail(ctx, email, "")
	if err != nil {
		return domain.User{}, err
	}
	if n > 0 {
		return domain.User{}, ValidationError{Message: "email already registered"}
	}
	cost := bcrypt.DefaultCost
	if e.Config != nil && e.Config.Auth.BcryptCost > 0 {
		cost = e.Config.Auth.BcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), cost)
	if err != nil {
		return domain.User{}, err
	}
	now := e.nowRFC3339()
	rec := repo.UserRecord{
		User: domain.User{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      opts.Name,
			Role:      role,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: string(hash),
	}
	if err := e.Repo.InsertUser(ctx, rec); err != nil {
		return domain.User{}, err
	}
	return rec.User, nil
}

// Authenticate verifies credentials and returns the account. Inactive
// accounts cannot log in.
func (e Engine) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	rec, err := e.Repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == repo.ErrNotFound {
		return domain.User{}, ErrBadCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return domain.User{}, ErrBadCredentials
	}
	if !rec.Active {
		return domain.User{}, auth.ForbiddenError{Action: "auth.login"}
	}
	return rec.User, nil
}

// GetUser returns an account. Users may read themselves; anything else
// requires the user management permission.
func (e Engine) GetUser(ctx context.Context, actor Actor, userID string) (domain.User, error) {
	if actor.ID != userID {
		if err := auth.Require(actor.Role, auth.ActionUserManage); err != nil {
			return domain.User{}, err
		}
	}
	rec, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return rec.User, nil
}

// UserUpdateOptions carry optional field updates; nil means leave as is.
type UserUpdateOptions struct {
	Name *string
	Role *string
}

func (e Engine) UpdateUser(ctx context.Context, actor Actor, userID string, opts UserUpdateOptions) (domain.User, error) {
	if err := auth.Require(actor.Role, auth.ActionUserManage); err != nil {
		return domain.User{}, err
	}
	if opts.Role != nil && !domain.ValidRole(*opts.Role) {
		return domain.User{}, ValidationError{Message: "unknown role"}
	}
	if err := e.Repo.UpdateUser(ctx, userID, opts.Name, opts.Role, e.nowRFC3339()); err != nil {
		return domain.User{}, err
	}
	rec, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return rec.User, nil
}

func (e Engine) SetUserActive(ctx context.Context, actor Actor, userID string, active bool) (domain.User, error) {
	if err := auth.Require(actor.Role, auth.ActionUserManage); err != nil {
		return domain.User{}, err
	}
	if !active && actor.ID == userID {
		return domain.User{}, ValidationError{Message: "cannot deactivate own account"}
	}
	if err := e.Repo.SetUserActive(ctx, userID, active, e.nowRFC3339()); err != nil {
		return domain.User{}, err
	}
	rec, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return rec.User, nil
}

func (e Engine) ListUsers(ctx context.Context, actor Actor, f repo.UserFilters) ([]domain.User, error) {
	if err := auth.Require(actor.Role, auth.ActionUserManage); err != nil {
		return nil, err
	}
	return e.Repo.ListUsers(ctx, f)
}

// ChangePassword lets a user rotate their own password after proving the
// current one.
func (e Engine) ChangePassword(ctx context.Context, actor Actor, current, next string) error {
	rec, err := e.Repo.GetUser(ctx, actor.ID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(current)) != nil {
		return ErrBadCredentials
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	cost := bcrypt.DefaultCost
	if e.Config != nil && e.Config.Auth.BcryptCost > 0 {
		cost = e.Config.Auth.BcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), cost)
	if err != nil {
		return err
	}
	return e.Repo.SetUserPassword(ctx, actor.ID, string(hash), e.nowRFC3339())
}
