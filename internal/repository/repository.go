// Package repository declares the storage interfaces the service and search
// layers program against. The sqlite subpackage provides the concrete
// implementation; tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/snipvault/internal/model"
)

// Scope bounds which snippets a query may touch. Exactly one of UserID or
// PublicOnly is set by the orchestrator: owner-scoped queries carry the
// caller's user id, public queries force is_public regardless of caller
// input. CollectionID, Language and IsPublic are optional narrowing filters
// (IsPublic only applies within an owner scope).
type Scope struct {
	UserID       string
	PublicOnly   bool
	CollectionID string
	Language     string
	IsPublic     *bool
}

// TextQuery is a case-insensitive substring search over title, description,
// code and the serialized tag list.
type TextQuery struct {
	Query string
	Scope Scope
	Limit int
}

// SemanticQuery is a nearest-neighbour search over stored embeddings.
// Only snippets with a non-null embedding are candidates. Results come back
// ordered by ascending cosine distance with Similarity populated; the
// similarity threshold is applied by the caller, not here, because the
// ranking must run over the full scoped candidate set before thresholding.
type SemanticQuery struct {
	Vector []float32
	Scope  Scope
	Limit  int
}

// SnippetListOptions filters an owner's snippet listing.
type SnippetListOptions struct {
	CollectionID string
	Language     string
	Limit        int
}

// PublicListOptions pages through the public explore feed.
type PublicListOptions struct {
	Language string
	Limit    int
	Offset   int
}

// SnippetStats are aggregate counts for a user's dashboard.
type SnippetStats struct {
	Total  int `json:"total"`
	Public int `json:"public"`
}

// SnippetRepository persists snippets and answers scoped reads.
type SnippetRepository interface {
	Create(ctx context.Context, s *model.Snippet) error
	// GetByID returns a snippet regardless of owner or visibility; callers
	// are responsible for authorization checks.
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	// GetOwned returns the snippet with its collection name joined, or
	// NotFound when it does not exist or belongs to another user.
	GetOwned(ctx context.Context, id, userID string) (*model.SearchResult, error)
	// GetPublic returns a public snippet with author display fields joined.
	GetPublic(ctx context.Context, id string) (*model.SearchResult, error)
	ListByUser(ctx context.Context, userID string, opts SnippetListOptions) ([]model.SearchResult, error)
	ListPublic(ctx context.Context, opts PublicListOptions) ([]model.SearchResult, error)
	Update(ctx context.Context, s *model.Snippet) error
	Delete(ctx context.Context, id, userID string) error
	SetVisibility(ctx context.Context, id, userID string, isPublic bool) error
	Move(ctx context.Context, id, userID, collectionID string) error
	CountByUser(ctx context.Context, userID string, publicOnly bool) (int, error)
	CountsByCollection(ctx context.Context, userID string) (map[string]int, error)
	CountPublic(ctx context.Context, language string) (int, error)
}

// SearchRepository answers the two matcher queries. Both honour the Scope
// unconditionally — authorization lives in the query, not in post-hoc
// filtering, so out-of-scope rows never leave the storage layer.
type SearchRepository interface {
	SearchText(ctx context.Context, q TextQuery) ([]model.SearchResult, error)
	SearchSemantic(ctx context.Context, q SemanticQuery) ([]model.SearchResult, error)
}

// CollectionRepository persists collections. Method names carry the
// Collection suffix so one storage type can implement every repository
// interface side by side.
type CollectionRepository interface {
	CreateCollection(ctx context.Context, c *model.Collection) error
	GetCollectionByID(ctx context.Context, id string) (*model.Collection, error)
	ListCollectionsByUser(ctx context.Context, userID string) ([]model.Collection, error)
	GetDefault(ctx context.Context, userID string) (*model.Collection, error)
	// EnsureDefault returns the user's default collection, creating it if
	// the account has none yet. Called on account provisioning.
	EnsureDefault(ctx context.Context, userID string) (*model.Collection, error)
	RenameCollection(ctx context.Context, id, userID, name string) error
	// DeleteAndReassign atomically moves every snippet in collection id to
	// defaultID, then deletes the collection.
	DeleteAndReassign(ctx context.Context, id, defaultID string) error
	CountCollectionsByUser(ctx context.Context, userID string) (int, error)
}

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	// UpsertByGitHubID creates or refreshes an account keyed on the GitHub
	// user id, keeping the internal id stable across logins.
	UpsertByGitHubID(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, id, name, image string) error
}
