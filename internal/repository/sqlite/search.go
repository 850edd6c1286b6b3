package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

// Compile-time check that *DB satisfies the search interface.
var _ repository.SearchRepository = (*DB)(nil)

// DefaultSearchLimit caps text and semantic search result sets.
const DefaultSearchLimit = 50

// likePattern builds a substring LIKE pattern from a raw query.
// %, _ and \ are metacharacters in LIKE, so they are escaped to keep pure
// substring semantics (queries are matched with ESCAPE '\').
func likePattern(query string) string {
	escaped := strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
		`_`, `\_`,
	).Replace(strings.ToLower(query))
	return "%" + escaped + "%"
}

// scopeConditions translates a Scope into WHERE fragments. Authorization is
// part of the query itself: rows outside the scope never leave SQLite.
func scopeConditions(scope repository.Scope) ([]string, []any) {
	var (
		conds []string
		args  []any
	)

	if scope.PublicOnly {
		conds = append(conds, `s.is_public = 1`)
	} else {
		conds = append(conds, `s.user_id = ?`)
		args = append(args, scope.UserID)
		if scope.IsPublic != nil {
			conds = append(conds, `s.is_public = ?`)
			args = append(args, *scope.IsPublic)
		}
	}

	if scope.CollectionID != "" {
		conds = append(conds, `s.collection_id = ?`)
		args = append(args, scope.CollectionID)
	}
	if scope.Language != "" {
		conds = append(conds, `s.language = ?`)
		args = append(args, scope.Language)
	}

	return conds, args
}

// joinClause returns the JOIN and the extra SELECT columns for a scope:
// owner results carry the collection name, public results carry author
// display fields.
func joinClause(scope repository.Scope) (join, extraCols string) {
	if scope.PublicOnly {
		return `LEFT JOIN users u ON s.user_id = u.id`,
			`COALESCE(u.name, ''), COALESCE(u.image, '')`
	}
	return `LEFT JOIN collections c ON s.collection_id = c.id`,
		`COALESCE(c.name, '')`
}

// orderColumn is the recency ordering for text search: owners see most
// recently updated first, the public feed shows most recently created.
func orderColumn(scope repository.Scope) string {
	if scope.PublicOnly {
		return `s.created_at`
	}
	return `s.updated_at`
}

// SearchText performs a case-insensitive substring match across title,
// description, code and the serialized tag list, within the scope.
func (db *DB) SearchText(ctx context.Context, q repository.TextQuery) ([]model.SearchResult, error) {
	limit := q.Limit
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}

	conds, args := scopeConditions(q.Scope)
	pattern := likePattern(q.Query)
	conds = append(conds,
		`(lower(s.title) LIKE ? ESCAPE '\'
		  OR lower(s.description) LIKE ? ESCAPE '\'
		  OR lower(s.code) LIKE ? ESCAPE '\'
		  OR lower(s.tags) LIKE ? ESCAPE '\')`)
	args = append(args, pattern, pattern, pattern, pattern)

	join, extraCols := joinClause(q.Scope)
	query := fmt.Sprintf(
		`SELECT s.id, s.user_id, s.collection_id, s.title, s.description, s.code,
		        s.language, s.tags, s.is_public, s.created_at, s.updated_at, %s
		 FROM snippets s
		 %s
		 WHERE %s
		 ORDER BY %s DESC
		 LIMIT ?`,
		extraCols, join, strings.Join(conds, " AND "), orderColumn(q.Scope),
	)
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: text search: %w", err)
	}
	defer rows.Close()

	if q.Scope.PublicOnly {
		return collectPublicRows(rows, limit)
	}
	return collectOwnedRows(rows, limit)
}

// SearchSemantic ranks scoped snippets by cosine distance to the query
// vector. Only rows with a stored embedding are candidates. The whole
// scoped candidate set is ranked and then cut to the limit; thresholding by
// minimum similarity is the caller's job.
//
// Ranking happens in-process: SQLite has no native vector index, so the
// scoped candidates (typically bounded by a single user's snippets or one
// language slice) are scored in Go. See the package comment.
func (db *DB) SearchSemantic(ctx context.Context, q repository.SemanticQuery) ([]model.SearchResult, error) {
	limit := q.Limit
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}

	conds, args := scopeConditions(q.Scope)
	conds = append(conds, `s.embedding IS NOT NULL`)

	join, extraCols := joinClause(q.Scope)
	query := fmt.Sprintf(
		`SELECT s.id, s.user_id, s.collection_id, s.title, s.description, s.code,
		        s.language, s.tags, s.is_public, s.created_at, s.updated_at, %s,
		        s.embedding
		 FROM snippets s
		 %s
		 WHERE %s`,
		extraCols, join, strings.Join(conds, " AND "),
	)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: semantic search: %w", err)
	}
	defer rows.Close()

	results := make([]model.SearchResult, 0, limit)
	for rows.Next() {
		res, vec, err := scanSemanticRow(rows, q.Scope.PublicOnly)
		if err != nil {
			return nil, fmt.Errorf("sqlite: semantic search: %w", err)
		}
		sim := cosineSimilarity(vec, q.Vector)
		res.Similarity = &sim
		results = append(results, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: semantic search: %w", err)
	}

	// Ascending cosine distance = descending similarity.
	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].Similarity > *results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// scanSemanticRow reads a candidate row plus its embedding column.
func scanSemanticRow(row rowScanner, publicScope bool) (*model.SearchResult, []float32, error) {
	var (
		res  model.SearchResult
		tags string
		emb  sql.NullString
	)

	dest := []any{
		&res.ID, &res.UserID, &res.CollectionID, &res.Title, &res.Description,
		&res.Code, &res.Language, &tags, &res.IsPublic,
		&res.CreatedAt, &res.UpdatedAt,
	}
	if publicScope {
		dest = append(dest, &res.AuthorName, &res.AuthorImage)
	} else {
		dest = append(dest, &res.CollectionName)
	}
	dest = append(dest, &emb)

	if err := row.Scan(dest...); err != nil {
		return nil, nil, err
	}

	var err error
	if res.Tags, err = decodeTags(tags); err != nil {
		return nil, nil, err
	}
	vec, err := decodeEmbedding(emb)
	if err != nil {
		return nil, nil, err
	}
	return &res, vec, nil
}
