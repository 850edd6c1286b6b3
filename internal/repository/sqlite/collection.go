package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/snipvault/internal/apperror"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

// Compile-time check that *DB satisfies the collection interface.
var _ repository.CollectionRepository = (*DB)(nil)

// isUniqueViolation reports whether err came from a UNIQUE constraint.
// modernc.org/sqlite does not export typed constraint errors, so this
// matches on the message the SQLite core produces.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateCollection inserts a new collection, generating its id and
// timestamps. A duplicate name for the same user is a Conflict.
func (db *DB) CreateCollection(ctx context.Context, c *model.Collection) error {
	c.ID = xid.New().String()
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO collections (id, user_id, name, is_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.IsDefault, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("collection %q already exists", c.Name))
		}
		return fmt.Errorf("sqlite: creating collection: %w", err)
	}

	return nil
}

// GetCollectionByID loads a collection without an ownership check; callers
// authorize before acting on the result.
func (db *DB) GetCollectionByID(ctx context.Context, id string) (*model.Collection, error) {
	var c model.Collection
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, is_default, created_at, updated_at
		 FROM collections WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("collection", id)
		}
		return nil, fmt.Errorf("sqlite: getting collection %s: %w", id, err)
	}
	return &c, nil
}

// ListCollectionsByUser returns all of a user's collections, default first
// and the rest by name.
func (db *DB) ListCollectionsByUser(ctx context.Context, userID string) ([]model.Collection, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, name, is_default, created_at, updated_at
		 FROM collections
		 WHERE user_id = ?
		 ORDER BY is_default DESC, name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing collections: %w", err)
	}
	defer rows.Close()

	var collections []model.Collection
	for rows.Next() {
		var c model.Collection
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning collection row: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating collection rows: %w", err)
	}

	return collections, nil
}

// GetDefault returns the user's default collection.
func (db *DB) GetDefault(ctx context.Context, userID string) (*model.Collection, error) {
	var c model.Collection
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, is_default, created_at, updated_at
		 FROM collections WHERE user_id = ? AND is_default = 1`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("default collection", userID)
		}
		return nil, fmt.Errorf("sqlite: getting default collection: %w", err)
	}
	return &c, nil
}

// EnsureDefault returns the user's default collection, creating it when
// the account has none yet. Safe to call on every login: a concurrent
// create loses the UNIQUE(user_id, name) race and falls back to reading
// the winner's row.
func (db *DB) EnsureDefault(ctx context.Context, userID string) (*model.Collection, error) {
	c, err := db.GetDefault(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	c = &model.Collection{
		UserID:    userID,
		Name:      model.DefaultCollectionName,
		IsDefault: true,
	}
	if err := db.CreateCollection(ctx, c); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return db.GetDefault(ctx, userID)
		}
		return nil, err
	}
	return c, nil
}

// RenameCollection renames a collection the user owns. The default
// collection is renameable; only deletion is restricted, and that rule
// lives in the service layer.
func (db *DB) RenameCollection(ctx context.Context, id, userID, name string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE collections SET name = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		name, time.Now(), id, userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("collection %q already exists", name))
		}
		return fmt.Errorf("sqlite: renaming collection %s: %w", id, err)
	}
	return requireRowAffected(result, "collection", id)
}

// DeleteAndReassign moves every snippet in collection id to defaultID and
// deletes the collection, atomically. Callers verify ownership and that id
// is not the default before calling.
func (db *DB) DeleteAndReassign(ctx context.Context, id, defaultID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: deleting collection %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE snippets SET collection_id = ? WHERE collection_id = ?`,
		defaultID, id,
	); err != nil {
		return fmt.Errorf("sqlite: reassigning snippets from collection %s: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting collection %s: %w", id, err)
	}
	if err := requireRowAffected(result, "collection", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: deleting collection %s: %w", id, err)
	}
	return nil
}

// CountCollectionsByUser returns how many collections a user owns.
func (db *DB) CountCollectionsByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE user_id = ?`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting collections: %w", err)
	}
	return count, nil
}
