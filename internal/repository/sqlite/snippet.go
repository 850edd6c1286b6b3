package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/snipvault/internal/apperror"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

// Compile-time check that *DB satisfies the snippet interface.
var _ repository.SnippetRepository = (*DB)(nil)

const (
	// DefaultOwnerListLimit caps an owner's snippet listing.
	DefaultOwnerListLimit = 100
	// DefaultPublicListLimit is the explore feed page size.
	DefaultPublicListLimit = 20
)

// encodeTags serializes the tag list for storage. The serialized form is
// also what text search matches against.
func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(data), nil
}

func decodeTags(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	return tags, nil
}

// Create inserts a new snippet, generating its id and timestamps.
func (db *DB) Create(ctx context.Context, s *model.Snippet) error {
	s.ID = xid.New().String()
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	tags, err := encodeTags(s.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}
	emb, err := encodeEmbedding(s.Embedding)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO snippets
		   (id, user_id, collection_id, title, description, code, language,
		    tags, is_public, embedding, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.CollectionID, s.Title, s.Description, s.Code,
		s.Language, tags, s.IsPublic, emb, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return nil
}

// GetByID loads a snippet including its embedding, without any ownership
// or visibility check — callers authorize before acting on the result.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	var (
		s    model.Snippet
		tags string
		emb  sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, collection_id, title, description, code, language,
		        tags, is_public, embedding, created_at, updated_at
		 FROM snippets WHERE id = ?`,
		id,
	).Scan(
		&s.ID, &s.UserID, &s.CollectionID, &s.Title, &s.Description, &s.Code,
		&s.Language, &tags, &s.IsPublic, &emb, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	if s.Tags, err = decodeTags(tags); err != nil {
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}
	if s.Embedding, err = decodeEmbedding(emb); err != nil {
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	return &s, nil
}

// GetOwned loads an owner-scoped snippet with its collection name joined.
// Another user's snippet is NotFound, not Forbidden — the API does not
// reveal whether an id exists outside the caller's scope.
func (db *DB) GetOwned(ctx context.Context, id, userID string) (*model.SearchResult, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT s.id, s.user_id, s.collection_id, s.title, s.description, s.code,
		        s.language, s.tags, s.is_public, s.created_at, s.updated_at,
		        COALESCE(c.name, '')
		 FROM snippets s
		 LEFT JOIN collections c ON s.collection_id = c.id
		 WHERE s.id = ? AND s.user_id = ?`,
		id, userID,
	)

	res, err := scanOwnedRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}
	return res, nil
}

// GetPublic loads a public snippet with author display fields joined.
func (db *DB) GetPublic(ctx context.Context, id string) (*model.SearchResult, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT s.id, s.user_id, s.collection_id, s.title, s.description, s.code,
		        s.language, s.tags, s.is_public, s.created_at, s.updated_at,
		        COALESCE(u.name, ''), COALESCE(u.image, '')
		 FROM snippets s
		 LEFT JOIN users u ON s.user_id = u.id
		 WHERE s.id = ? AND s.is_public = 1`,
		id,
	)

	res, err := scanPublicRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting public snippet %s: %w", id, err)
	}
	return res, nil
}

// ListByUser returns the owner's snippets, most recently updated first,
// optionally filtered by collection and language.
func (db *DB) ListByUser(ctx context.Context, userID string, opts repository.SnippetListOptions) ([]model.SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 || limit > DefaultOwnerListLimit {
		limit = DefaultOwnerListLimit
	}

	query := `SELECT s.id, s.user_id, s.collection_id, s.title, s.description, s.code,
	                 s.language, s.tags, s.is_public, s.created_at, s.updated_at,
	                 COALESCE(c.name, '')
	          FROM snippets s
	          LEFT JOIN collections c ON s.collection_id = c.id
	          WHERE s.user_id = ?`
	args := []any{userID}

	if opts.CollectionID != "" {
		query += ` AND s.collection_id = ?`
		args = append(args, opts.CollectionID)
	}
	if opts.Language != "" {
		query += ` AND s.language = ?`
		args = append(args, opts.Language)
	}

	query += ` ORDER BY s.updated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	return collectOwnedRows(rows, limit)
}

// ListPublic pages through public snippets, newest first, with author
// display fields joined.
func (db *DB) ListPublic(ctx context.Context, opts repository.PublicListOptions) ([]model.SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPublicListLimit
	}
	if limit > DefaultOwnerListLimit {
		limit = DefaultOwnerListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT s.id, s.user_id, s.collection_id, s.title, s.description, s.code,
	                 s.language, s.tags, s.is_public, s.created_at, s.updated_at,
	                 COALESCE(u.name, ''), COALESCE(u.image, '')
	          FROM snippets s
	          LEFT JOIN users u ON s.user_id = u.id
	          WHERE s.is_public = 1`
	args := []any{}

	if opts.Language != "" {
		query += ` AND s.language = ?`
		args = append(args, opts.Language)
	}

	query += ` ORDER BY s.created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing public snippets: %w", err)
	}
	defer rows.Close()

	return collectPublicRows(rows, limit)
}

// Update rewrites all mutable columns, including the embedding (which may
// be set to NULL). The WHERE clause pins both id and owner so a stale or
// forged id cannot touch another user's row.
func (db *DB) Update(ctx context.Context, s *model.Snippet) error {
	s.UpdatedAt = time.Now()

	tags, err := encodeTags(s.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", s.ID, err)
	}
	emb, err := encodeEmbedding(s.Embedding)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", s.ID, err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET title = ?, description = ?, code = ?, language = ?, tags = ?,
		     collection_id = ?, is_public = ?, embedding = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		s.Title, s.Description, s.Code, s.Language, tags,
		s.CollectionID, s.IsPublic, emb, s.UpdatedAt,
		s.ID, s.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", s.ID, err)
	}

	return requireRowAffected(result, "snippet", s.ID)
}

// Delete removes an owner's snippet.
func (db *DB) Delete(ctx context.Context, id, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}
	return requireRowAffected(result, "snippet", id)
}

// SetVisibility toggles the public flag on an owner's snippet.
func (db *DB) SetVisibility(ctx context.Context, id, userID string, isPublic bool) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets SET is_public = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		isPublic, time.Now(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting snippet %s visibility: %w", id, err)
	}
	return requireRowAffected(result, "snippet", id)
}

// Move reassigns an owner's snippet to another collection. The caller has
// already verified the target collection belongs to the same user.
func (db *DB) Move(ctx context.Context, id, userID, collectionID string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets SET collection_id = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		collectionID, time.Now(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: moving snippet %s: %w", id, err)
	}
	return requireRowAffected(result, "snippet", id)
}

// CountByUser counts a user's snippets, optionally only the public ones.
func (db *DB) CountByUser(ctx context.Context, userID string, publicOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM snippets WHERE user_id = ?`
	if publicOnly {
		query += ` AND is_public = 1`
	}

	var count int
	if err := db.conn.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: counting snippets: %w", err)
	}
	return count, nil
}

// CountsByCollection returns snippet counts grouped by collection id.
// Collections with no snippets are simply absent from the map.
func (db *DB) CountsByCollection(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT collection_id, COUNT(*) FROM snippets
		 WHERE user_id = ? GROUP BY collection_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting snippets by collection: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning collection count: %w", err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating collection counts: %w", err)
	}

	return counts, nil
}

// CountPublic counts public snippets, optionally narrowed by language.
func (db *DB) CountPublic(ctx context.Context, language string) (int, error) {
	query := `SELECT COUNT(*) FROM snippets WHERE is_public = 1`
	args := []any{}
	if language != "" {
		query += ` AND language = ?`
		args = append(args, language)
	}

	var count int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: counting public snippets: %w", err)
	}
	return count, nil
}

// requireRowAffected converts "no rows changed" into NotFound. One query
// instead of SELECT-then-mutate.
func requireRowAffected(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
