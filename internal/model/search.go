package model

// SearchResult is a snippet as returned by listing and search queries,
// carrying denormalized fields joined in by the storage layer.
//
// CollectionName is populated for owner-scoped results. AuthorName and
// AuthorImage are populated for public results instead — public queries
// never expose the author's private fields, only a display name and avatar.
// Similarity is set only on semantic search results (1 − cosine distance,
// higher is closer); it is nil for text-mode results.
type SearchResult struct {
	Snippet
	CollectionName string   `json:"collectionName,omitempty"`
	AuthorName     string   `json:"authorName,omitempty"`
	AuthorImage    string   `json:"authorImage,omitempty"`
	Similarity     *float64 `json:"similarity,omitempty"`
}
