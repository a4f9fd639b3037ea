package repo

import (
	"context"
	"database/sql"
	"strings"

	"dockwise/internal/domain"
)

// UserRecord carries the stored credential alongside the public fields.
type UserRecord struct {
	domain.User
	PasswordHash string
}

func scanUser(scan func(dest ...any) error) (UserRecord, error) {
	var u UserRecord
	err := scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

const userColumns = `id,email,name,role,password_hash,active,created_at,updated_at`

func (r Repo) InsertUser(ctx context.Context, u UserRecord) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(`+userColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.Name, u.Role, u.PasswordHash, u.Active, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (UserRecord, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
	return scanUser(row.Scan)
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email)
	return scanUser(row.Scan)
}

func (r Repo) CountUsersByEmail(ctx context.Context, email, excludeID string) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE email=?`
	args := []any{email}
	if excludeID != "" {
		query += ` AND id<>?`
		args = append(args, excludeID)
	}
	var n int
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

type UserFilters struct {
	Role       string
	ActiveOnly bool
	Limit      int
}

func (r Repo) ListUsers(ctx context.Context, f UserFilters) ([]domain.User, error) {
	var clauses []string
	var args []any
	if f.Role != "" {
		clauses = append(clauses, "role=?")
		args = append(args, f.Role)
	}
	if f.ActiveOnly {
		clauses = append(clauses, "active=1")
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT id,email,name,role,active,created_at,updated_at FROM users ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) UpdateUser(ctx context.Context, id string, name, role *string, updatedAt string) error {
	var fields []string
	var args []any
	if name != nil {
		fields = append(fields, "name=?")
		args = append(args, *name)
	}
	if role != nil {
		fields = append(fields, "role=?")
		args = append(args, *role)
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, updatedAt, id)
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET `+strings.Join(fields, ",")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetUserActive(ctx context.Context, id string, active bool, updatedAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET active=?,updated_at=? WHERE id=?`, active, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetUserPassword(ctx context.Context, id, passwordHash, updatedAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash=?,updated_at=? WHERE id=?`, passwordHash, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
