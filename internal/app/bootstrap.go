// Package app wires the workspace together: database, migrations and the
// bootstrap admin account.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dockwise/internal/config"
	"dockwise/internal/db"
	"dockwise/internal/domain"
	"dockwise/internal/migrate"
	"dockwise/internal/repo"
)

// Open opens the workspace database and applies migrations.
func Open(cfg *config.Config, workspace string) (*sql.DB, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := EnsureAdmin(context.Background(), cfg, repo.Repo{DB: conn}); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// EnsureAdmin seeds the bootstrap administrator account when it is missing.
// The password is empty in the row; log in is only possible after an
// administrator sets one, except in dev where the configured ID acts through
// the CLI directly.
func EnsureAdmin(ctx context.Context, cfg *config.Config, r repo.Repo) error {
	if cfg == nil || cfg.Bootstrap.AdminID == "" {
		return nil
	}
	_, err := r.GetUser(ctx, cfg.Bootstrap.AdminID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	// An unguessable hash keeps the seeded account out of password login.
	hash, err := bcrypt.GenerateFromPassword([]byte(fmt.Sprintf("bootstrap-%d", time.Now().UnixNano())), bcrypt.MinCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	return r.InsertUser(ctx, repo.UserRecord{
		User: domain.User{
			ID:        cfg.Bootstrap.AdminID,
			Email:     cfg.Bootstrap.AdminEmail,
			Name:      cfg.Bootstrap.AdminName,
			Role:      domain.RoleAdministrator,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: string(hash),
	})
}
