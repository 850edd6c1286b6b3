// Package search orchestrates the hybrid matcher: substring text search
// and embedding-based semantic search over the same scoped candidate set.
//
// Semantic search degrades gracefully. When the query embedding cannot be
// produced (no provider configured, provider errors exhausted retries, or
// a blank query after trimming) the request is answered by the text
// matcher instead, and the response reports the mode that actually ran so
// clients never mistake a fallback for a semantic ranking.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/snipvault/internal/apperror"
	"github.com/sakif/snipvault/internal/embedding"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

// Mode selects the matcher. The zero value means "not specified" and
// resolves to ModeText.
type Mode string

const (
	ModeText     Mode = "text"
	ModeSemantic Mode = "semantic"
)

// MaxQueryLength bounds the raw query string after trimming.
const MaxQueryLength = 500

// Config tunes result shaping. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// SimilarityThreshold drops semantic matches scoring below it.
	// Cosine similarity of unrelated embedding-model vectors clusters
	// well under 0.2, so the default cuts noise without losing loose
	// paraphrases.
	SimilarityThreshold float64
	// MaxResults caps both matchers' result sets.
	MaxResults int
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.2,
		MaxResults:          50,
	}
}

// Request is one search invocation. CollectionID and IsPublic only apply
// to owner-scoped searches; public searches ignore them.
type Request struct {
	Query        string `json:"query"`
	Mode         Mode   `json:"mode,omitempty"`
	CollectionID string `json:"collectionId,omitempty"`
	Language     string `json:"language,omitempty"`
	IsPublic     *bool  `json:"isPublic,omitempty"`
}

// Response carries the ranked results and the mode that actually ran,
// which differs from the requested mode after a semantic fallback.
type Response struct {
	Results []model.SearchResult `json:"results"`
	Mode    Mode                 `json:"mode"`
}

// Searcher dispatches requests to the matchers.
type Searcher struct {
	repo     repository.SearchRepository
	embedder *embedding.Client
	cfg      Config
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithConfig overrides the default tuning.
func WithConfig(cfg Config) Option {
	return func(s *Searcher) {
		s.cfg = cfg
	}
}

// NewSearcher builds a Searcher. The embedder must be non-nil; an
// embedding.Client without a provider is the way to run text-only.
func NewSearcher(repo repository.SearchRepository, embedder *embedding.Client, logger *slog.Logger, opts ...Option) *Searcher {
	s := &Searcher{
		repo:     repo,
		embedder: embedder,
		cfg:      DefaultConfig(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchOwner searches the caller's own snippets, public and private.
func (s *Searcher) SearchOwner(ctx context.Context, userID string, req Request) (*Response, error) {
	query, mode, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	scope := repository.Scope{
		UserID:       userID,
		CollectionID: req.CollectionID,
		Language:     req.Language,
		IsPublic:     req.IsPublic,
	}
	return s.run(ctx, query, mode, scope)
}

// SearchPublic searches every public snippet, no authentication required.
// The scope is forced to public regardless of anything in the request.
func (s *Searcher) SearchPublic(ctx context.Context, req Request) (*Response, error) {
	query, mode, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	scope := repository.Scope{
		PublicOnly: true,
		Language:   req.Language,
	}
	return s.run(ctx, query, mode, scope)
}

// validate normalizes the request, returning the trimmed query and the
// resolved mode. The first offending field wins.
func (s *Searcher) validate(req Request) (string, Mode, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return "", "", apperror.ValidationFailed("query", "query must not be empty")
	}
	if len(query) > MaxQueryLength {
		return "", "", apperror.ValidationFailed("query",
			fmt.Sprintf("query must be at most %d characters", MaxQueryLength))
	}

	mode := req.Mode
	switch mode {
	case "":
		mode = ModeText
	case ModeText, ModeSemantic:
	default:
		return "", "", apperror.ValidationFailed("mode",
			fmt.Sprintf("mode must be %q or %q", ModeText, ModeSemantic))
	}

	if req.Language != "" && !model.IsSupportedLanguage(req.Language) {
		return "", "", apperror.ValidationFailed("language",
			fmt.Sprintf("unsupported language %q", req.Language))
	}

	return query, mode, nil
}

func (s *Searcher) run(ctx context.Context, query string, mode Mode, scope repository.Scope) (*Response, error) {
	if mode == ModeSemantic {
		resp, ok, err := s.semantic(ctx, query, scope)
		if err != nil {
			return nil, err
		}
		if ok {
			return resp, nil
		}
		// Fall through to the text matcher; the response reports it.
		s.logger.Info("semantic search unavailable, falling back to text",
			slog.String("query", query))
	}

	results, err := s.repo.SearchText(ctx, repository.TextQuery{
		Query: query,
		Scope: scope,
		Limit: s.cfg.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return &Response{Results: results, Mode: ModeText}, nil
}

// semantic runs the embedding matcher. ok is false when the query could
// not be embedded; that is the fallback signal, not an error.
func (s *Searcher) semantic(ctx context.Context, query string, scope repository.Scope) (*Response, bool, error) {
	embedded := s.embedder.Embed(ctx, query)
	if embedded.Unavailable {
		return nil, false, nil
	}

	ranked, err := s.repo.SearchSemantic(ctx, repository.SemanticQuery{
		Vector: embedded.Vector,
		Scope:  scope,
		Limit:  s.cfg.MaxResults,
	})
	if err != nil {
		return nil, false, fmt.Errorf("semantic search: %w", err)
	}

	// Threshold after ranking: the repository returns the top candidates
	// ordered by similarity, this cuts the weak tail.
	results := ranked[:0:0]
	for _, r := range ranked {
		if r.Similarity != nil && *r.Similarity >= s.cfg.SimilarityThreshold {
			results = append(results, r)
		}
	}

	return &Response{Results: results, Mode: ModeSemantic}, true, nil
}
