package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/snipvault/internal/apperror"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

// Compile-time check that *DB satisfies the user interface.
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new account, generating its id and timestamps.
// A duplicate email is a Conflict.
func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	u.ID = xid.New().String()
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, image, github_id, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Image, u.GitHubID, u.PasswordHash,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("an account with this email already exists")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

// UpsertByGitHubID creates an account on first GitHub login and refreshes
// the profile fields on later ones. The internal id stays stable across
// logins, so sessions and snippet ownership survive profile changes.
func (db *DB) UpsertByGitHubID(ctx context.Context, u *model.User) error {
	existing, err := db.getUserByGitHubID(ctx, u.GitHubID)
	if err == nil {
		u.ID = existing.ID
		u.PasswordHash = existing.PasswordHash
		u.CreatedAt = existing.CreatedAt
		u.UpdatedAt = time.Now()

		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET name = ?, email = ?, image = ?, updated_at = ?
			 WHERE id = ?`,
			u.Name, u.Email, u.Image, u.UpdatedAt, u.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", u.ID, err)
		}
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}

	return db.CreateUser(ctx, u)
}

func (db *DB) getUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, image, github_id, password_hash, created_at, updated_at
		 FROM users WHERE github_id = ?`,
		githubID,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.GitHubID, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("sqlite: getting user by github id: %w", err)
	}
	return &u, nil
}

// GetUserByID loads an account by internal id.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, image, github_id, password_hash, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.GitHubID, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return &u, nil
}

// GetUserByEmail loads an account by email, for password login.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, image, github_id, password_hash, created_at, updated_at
		 FROM users WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.GitHubID, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return &u, nil
}

// UpdateProfile changes an account's display name and avatar.
func (db *DB) UpdateProfile(ctx context.Context, id, name, image string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, image = ?, updated_at = ?
		 WHERE id = ?`,
		name, image, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}
	return requireRowAffected(result, "user", id)
}
