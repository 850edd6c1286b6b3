// Package service contains the business logic layer.
//
// Handlers parse HTTP and write responses; services validate input,
// enforce ownership rules and orchestrate the repositories and the
// embedding client; repositories talk to the database. Services depend on
// the repository interfaces, never on the sqlite package, so tests swap in
// fakes with no database at all.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/snipvault/internal/apperror"
	"github.com/sakif/snipvault/internal/embedding"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

// SnippetService owns the snippet lifecycle, including embedding
// generation on create and update.
type SnippetService struct {
	snippets    repository.SnippetRepository
	collections repository.CollectionRepository
	embedder    *embedding.Client
	sanitizer   *bluemonday.Policy
	logger      *slog.Logger
}

func NewSnippetService(
	snippets repository.SnippetRepository,
	collections repository.CollectionRepository,
	embedder *embedding.Client,
	logger *slog.Logger,
) *SnippetService {
	return &SnippetService{
		snippets:    snippets,
		collections: collections,
		embedder:    embedder,
		// StrictPolicy strips all HTML. Applied to title, description and
		// tags; never to code, which is stored verbatim.
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// SnippetInput carries the caller-editable fields for create and update.
// Updates are full replacements, not patches.
type SnippetInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Code         string   `json:"code"`
	Language     string   `json:"language"`
	Tags         []string `json:"tags"`
	CollectionID string   `json:"collectionId"`
	IsPublic     bool     `json:"isPublic"`
}

// WriteResult is the outcome of a create or update. EmbeddingFailed is a
// non-fatal flag: the snippet was saved, but semantic search will not see
// it until an update regenerates the embedding.
type WriteResult struct {
	Snippet         *model.Snippet
	EmbeddingFailed bool
}

// validate normalizes and checks the input in place, reporting the first
// offending field.
func (s *SnippetService) validate(in *SnippetInput) error {
	in.Title = s.sanitizer.Sanitize(strings.TrimSpace(in.Title))
	in.Description = s.sanitizer.Sanitize(strings.TrimSpace(in.Description))

	if in.Title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if len(in.Title) > model.MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", model.MaxTitleLength))
	}
	if len(in.Description) > model.MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", model.MaxDescriptionLength))
	}
	if in.Code == "" {
		return apperror.ValidationFailed("code", "code is required")
	}
	if len(in.Code) > model.MaxCodeLength {
		return apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", model.MaxCodeLength))
	}
	if !model.IsSupportedLanguage(in.Language) {
		return apperror.ValidationFailed("language",
			fmt.Sprintf("unsupported language %q", in.Language))
	}
	if len(in.Tags) > model.MaxTags {
		return apperror.ValidationFailed("tags",
			fmt.Sprintf("at most %d tags are allowed", model.MaxTags))
	}

	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		tag = s.sanitizer.Sanitize(strings.TrimSpace(tag))
		if tag == "" {
			return apperror.ValidationFailed("tags", "tags must not be empty")
		}
		if len(tag) > model.MaxTagLength {
			return apperror.ValidationFailed("tags",
				fmt.Sprintf("tags must be %d characters or less", model.MaxTagLength))
		}
		tags = append(tags, tag)
	}
	in.Tags = tags

	return nil
}

// resolveCollection returns the target collection id, defaulting to the
// user's default collection and refusing collections owned by others.
func (s *SnippetService) resolveCollection(ctx context.Context, userID, collectionID string) (string, error) {
	if collectionID == "" {
		def, err := s.collections.GetDefault(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("resolving default collection: %w", err)
		}
		return def.ID, nil
	}

	coll, err := s.collections.GetCollectionByID(ctx, collectionID)
	if err != nil {
		return "", err
	}
	if coll.UserID != userID {
		// Same signal as a missing collection: ids outside the caller's
		// scope do not exist as far as the API is concerned.
		return "", apperror.NotFound("collection", collectionID)
	}
	return coll.ID, nil
}

// embeddingText is what gets vectorized: the title and description, which
// carry the intent of a snippet better than the code body does.
func embeddingText(title, description string) string {
	return strings.TrimSpace(title + " " + description)
}

// Create validates and saves a new snippet, generating its embedding.
// Embedding failures do not fail the create.
func (s *SnippetService) Create(ctx context.Context, userID string, in SnippetInput) (*WriteResult, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	collectionID, err := s.resolveCollection(ctx, userID, in.CollectionID)
	if err != nil {
		return nil, err
	}

	embedded := s.embedder.Embed(ctx, embeddingText(in.Title, in.Description))

	snippet := &model.Snippet{
		UserID:       userID,
		CollectionID: collectionID,
		Title:        in.Title,
		Description:  in.Description,
		Code:         in.Code,
		Language:     in.Language,
		Tags:         in.Tags,
		IsPublic:     in.IsPublic,
		Embedding:    embedded.Vector,
	}

	if err := s.snippets.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("userID", userID),
		slog.Bool("embedded", !embedded.Unavailable),
	)

	return &WriteResult{Snippet: snippet, EmbeddingFailed: embedded.Unavailable}, nil
}

// Get returns one of the caller's snippets with its collection name.
func (s *SnippetService) Get(ctx context.Context, userID, id string) (*model.SearchResult, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, apperror.ValidationFailed("id", "snippet id is required")
	}
	return s.snippets.GetOwned(ctx, id, userID)
}

// GetPublic returns a public snippet with author attribution. No
// authentication required.
func (s *SnippetService) GetPublic(ctx context.Context, id string) (*model.SearchResult, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, apperror.ValidationFailed("id", "snippet id is required")
	}
	return s.snippets.GetPublic(ctx, id)
}

// List returns the caller's snippets, most recently updated first.
func (s *SnippetService) List(ctx context.Context, userID string, opts repository.SnippetListOptions) ([]model.SearchResult, error) {
	if opts.Language != "" && !model.IsSupportedLanguage(opts.Language) {
		return nil, apperror.ValidationFailed("language",
			fmt.Sprintf("unsupported language %q", opts.Language))
	}
	return s.snippets.ListByUser(ctx, userID, opts)
}

// ListPublic returns the public explore feed, newest first.
func (s *SnippetService) ListPublic(ctx context.Context, opts repository.PublicListOptions) ([]model.SearchResult, error) {
	if opts.Language != "" && !model.IsSupportedLanguage(opts.Language) {
		return nil, apperror.ValidationFailed("language",
			fmt.Sprintf("unsupported language %q", opts.Language))
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return s.snippets.ListPublic(ctx, opts)
}

// Update replaces a snippet's editable fields. The embedding is
// regenerated only when the title or description changed; a code-only edit
// keeps the stored vector, saving an API call. When regeneration fails the
// previous vector is kept and EmbeddingFailed reports the gap: the stored
// embedding always reflects the last successful generation.
func (s *SnippetService) Update(ctx context.Context, userID, id string, in SnippetInput) (*WriteResult, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, apperror.ValidationFailed("id", "snippet id is required")
	}
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	snippet, err := s.snippets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if snippet.UserID != userID {
		return nil, apperror.NotFound("snippet", id)
	}

	collectionID := snippet.CollectionID
	if in.CollectionID != "" && in.CollectionID != snippet.CollectionID {
		collectionID, err = s.resolveCollection(ctx, userID, in.CollectionID)
		if err != nil {
			return nil, err
		}
	}

	regenerate := in.Title != snippet.Title || in.Description != snippet.Description

	snippet.CollectionID = collectionID
	snippet.Title = in.Title
	snippet.Description = in.Description
	snippet.Code = in.Code
	snippet.Language = in.Language
	snippet.Tags = in.Tags
	snippet.IsPublic = in.IsPublic

	embeddingFailed := false
	if regenerate {
		embedded := s.embedder.Embed(ctx, embeddingText(in.Title, in.Description))
		if embedded.Unavailable {
			embeddingFailed = true
		} else {
			snippet.Embedding = embedded.Vector
		}
	}

	if err := s.snippets.Update(ctx, snippet); err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated",
		slog.String("id", id),
		slog.Bool("reembedded", regenerate && !embeddingFailed),
	)

	return &WriteResult{Snippet: snippet, EmbeddingFailed: embeddingFailed}, nil
}

// Delete removes one of the caller's snippets.
func (s *SnippetService) Delete(ctx context.Context, userID, id string) error {
	if id = strings.TrimSpace(id); id == "" {
		return apperror.ValidationFailed("id", "snippet id is required")
	}
	if err := s.snippets.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.logger.Info("snippet deleted", slog.String("id", id))
	return nil
}

// SetVisibility toggles a snippet between private and public.
func (s *SnippetService) SetVisibility(ctx context.Context, userID, id string, isPublic bool) error {
	if id = strings.TrimSpace(id); id == "" {
		return apperror.ValidationFailed("id", "snippet id is required")
	}
	return s.snippets.SetVisibility(ctx, id, userID, isPublic)
}

// Move places a snippet in another of the caller's collections.
func (s *SnippetService) Move(ctx context.Context, userID, id, collectionID string) error {
	if id = strings.TrimSpace(id); id == "" {
		return apperror.ValidationFailed("id", "snippet id is required")
	}
	if collectionID = strings.TrimSpace(collectionID); collectionID == "" {
		return apperror.ValidationFailed("collectionId", "collection id is required")
	}

	resolved, err := s.resolveCollection(ctx, userID, collectionID)
	if err != nil {
		return err
	}
	return s.snippets.Move(ctx, id, userID, resolved)
}

// Stats returns the caller's dashboard counts. The two counts are
// independent queries, so they run concurrently.
func (s *SnippetService) Stats(ctx context.Context, userID string) (*repository.SnippetStats, error) {
	var stats repository.SnippetStats

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.snippets.CountByUser(ctx, userID, false)
		if err != nil {
			return fmt.Errorf("counting snippets: %w", err)
		}
		stats.Total = total
		return nil
	})
	g.Go(func() error {
		public, err := s.snippets.CountByUser(ctx, userID, true)
		if err != nil {
			return fmt.Errorf("counting public snippets: %w", err)
		}
		stats.Public = public
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &stats, nil
}

// CollectionCounts returns snippet counts keyed by collection id, for the
// sidebar.
func (s *SnippetService) CollectionCounts(ctx context.Context, userID string) (map[string]int, error) {
	return s.snippets.CountsByCollection(ctx, userID)
}

// CountPublic returns the size of the explore feed, optionally narrowed to
// one language.
func (s *SnippetService) CountPublic(ctx context.Context, language string) (int, error) {
	if language != "" && !model.IsSupportedLanguage(language) {
		return 0, apperror.ValidationFailed("language",
			fmt.Sprintf("unsupported language %q", language))
	}
	return s.snippets.CountPublic(ctx, language)
}
