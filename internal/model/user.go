package model

import "time"

// User represents a registered account.
//
// Two sign-in paths populate this struct: email/password registration
// (PasswordHash set, GitHubID zero) and GitHub OAuth (GitHubID set,
// PasswordHash empty). An account created via OAuth has no password until
// one is explicitly set, and vice versa — the two are reconciled by email.
//
// PasswordHash is a bcrypt hash, never the plaintext, and is excluded from
// JSON so it can never leak through an API response.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Image        string    `json:"image,omitempty"` // avatar URL, may be empty
	GitHubID     int64     `json:"-"`               // GitHub's numeric user ID, 0 when not linked
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MaxNameLength bounds the display name on registration and profile update.
const MaxNameLength = 100
