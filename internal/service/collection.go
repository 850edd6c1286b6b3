package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/sakif/snipvault/internal/apperror"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

// CollectionService owns collection lifecycle rules: the default
// collection always exists, cannot be deleted, and absorbs the snippets of
// any collection that is.
type CollectionService struct {
	collections repository.CollectionRepository
	sanitizer   *bluemonday.Policy
	logger      *slog.Logger
}

func NewCollectionService(collections repository.CollectionRepository, logger *slog.Logger) *CollectionService {
	return &CollectionService{
		collections: collections,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger,
	}
}

func (s *CollectionService) validateName(name string) (string, error) {
	name = s.sanitizer.Sanitize(strings.TrimSpace(name))
	if name == "" {
		return "", apperror.ValidationFailed("name", "collection name is required")
	}
	if len(name) > model.MaxCollectionNameLength {
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("collection name must be %d characters or less", model.MaxCollectionNameLength))
	}
	return name, nil
}

// Create adds a collection for the caller. Names are unique per user.
func (s *CollectionService) Create(ctx context.Context, userID, name string) (*model.Collection, error) {
	name, err := s.validateName(name)
	if err != nil {
		return nil, err
	}

	coll := &model.Collection{UserID: userID, Name: name}
	if err := s.collections.CreateCollection(ctx, coll); err != nil {
		return nil, err
	}

	s.logger.Info("collection created",
		slog.String("id", coll.ID),
		slog.String("userID", userID),
	)
	return coll, nil
}

// List returns the caller's collections, default first.
func (s *CollectionService) List(ctx context.Context, userID string) ([]model.Collection, error) {
	return s.collections.ListCollectionsByUser(ctx, userID)
}

// Get returns one of the caller's collections.
func (s *CollectionService) Get(ctx context.Context, userID, id string) (*model.Collection, error) {
	coll, err := s.collections.GetCollectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if coll.UserID != userID {
		return nil, apperror.NotFound("collection", id)
	}
	return coll, nil
}

// Rename changes a collection's name. Renaming the default collection is
// allowed; only deleting it is not.
func (s *CollectionService) Rename(ctx context.Context, userID, id, name string) (*model.Collection, error) {
	name, err := s.validateName(name)
	if err != nil {
		return nil, err
	}

	if err := s.collections.RenameCollection(ctx, id, userID, name); err != nil {
		return nil, err
	}
	return s.collections.GetCollectionByID(ctx, id)
}

// Delete removes a collection, moving its snippets into the default
// collection first. The default collection itself is protected.
func (s *CollectionService) Delete(ctx context.Context, userID, id string) error {
	coll, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if coll.IsDefault {
		return apperror.Forbidden("the default collection cannot be deleted")
	}

	def, err := s.collections.GetDefault(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolving default collection: %w", err)
	}

	if err := s.collections.DeleteAndReassign(ctx, id, def.ID); err != nil {
		return err
	}

	s.logger.Info("collection deleted",
		slog.String("id", id),
		slog.String("reassignedTo", def.ID),
	)
	return nil
}

// EnsureDefault provisions the default collection for a new account.
// Called from the auth flow after registration and first OAuth login.
func (s *CollectionService) EnsureDefault(ctx context.Context, userID string) (*model.Collection, error) {
	return s.collections.EnsureDefault(ctx, userID)
}
