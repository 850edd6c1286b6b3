// Package model defines the data structures shared across the application.
// These are plain structs — no behaviour beyond small helpers — so every
// layer (handler, service, repository) can depend on them without cycles.
package model

import "time"

// EmbeddingDimensions is the fixed length of a snippet embedding vector,
// matching the output of OpenAI's text-embedding-3-small model.
const EmbeddingDimensions = 1536

// Snippet is the searchable unit: a piece of code with metadata, owned by
// exactly one user and belonging to exactly one collection.
//
// Embedding is a derived field: it caches the vector for
// "title + \" \" + description" as of the last successful embedding
// generation. It is nil when generation never succeeded, and it may lag the
// current text after a failed regeneration; Code/Tags/Language never
// trigger regeneration at all. It is excluded from JSON responses.
type Snippet struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	CollectionID string    `json:"collectionId"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Code         string    `json:"code"`
	Language     string    `json:"language"`
	Tags         []string  `json:"tags,omitempty"`
	IsPublic     bool      `json:"isPublic"`
	Embedding    []float32 `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Validation limits for snippet fields.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MaxCodeLength        = 10000
	MaxTags              = 10
	MaxTagLength         = 30
)
