package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/sakif/snipvault/internal/model"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanOwnedRow reads an owner-scoped result row: snippet columns followed
// by the collection name. Column order must match the SELECT lists in
// snippet.go and search.go.
func scanOwnedRow(row rowScanner) (*model.SearchResult, error) {
	var (
		res  model.SearchResult
		tags string
	)
	err := row.Scan(
		&res.ID, &res.UserID, &res.CollectionID, &res.Title, &res.Description,
		&res.Code, &res.Language, &tags, &res.IsPublic,
		&res.CreatedAt, &res.UpdatedAt, &res.CollectionName,
	)
	if err != nil {
		return nil, err
	}
	if res.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	return &res, nil
}

// scanPublicRow reads a public result row: snippet columns followed by the
// author's display name and image.
func scanPublicRow(row rowScanner) (*model.SearchResult, error) {
	var (
		res  model.SearchResult
		tags string
	)
	err := row.Scan(
		&res.ID, &res.UserID, &res.CollectionID, &res.Title, &res.Description,
		&res.Code, &res.Language, &tags, &res.IsPublic,
		&res.CreatedAt, &res.UpdatedAt, &res.AuthorName, &res.AuthorImage,
	)
	if err != nil {
		return nil, err
	}
	if res.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	return &res, nil
}

func collectOwnedRows(rows *sql.Rows, capacity int) ([]model.SearchResult, error) {
	results := make([]model.SearchResult, 0, capacity)
	for rows.Next() {
		res, err := scanOwnedRow(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		results = append(results, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippet rows: %w", err)
	}
	return results, nil
}

func collectPublicRows(rows *sql.Rows, capacity int) ([]model.SearchResult, error) {
	results := make([]model.SearchResult, 0, capacity)
	for rows.Next() {
		res, err := scanPublicRow(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		results = append(results, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippet rows: %w", err)
	}
	return results, nil
}
