package model

import "time"

// Collection is a named grouping of snippets, owned by exactly one user.
//
// Every user has exactly one default collection, created when the account is
// provisioned. Every snippet belongs to exactly one collection. Deleting a
// non-default collection re-owns its snippets to the default; the default
// itself cannot be deleted or renamed away from a user.
type Collection struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MaxCollectionNameLength bounds collection names; names are also unique
// per user (enforced by the storage layer).
const MaxCollectionNameLength = 100

// DefaultCollectionName is the name given to the collection provisioned at
// account creation.
const DefaultCollectionName = "Default"
