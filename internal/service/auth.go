package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"github.com/sakif/snipvault/internal/apperror"
	"github.com/sakif/snipvault/internal/auth"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

// MinPasswordLength is the floor for new passwords.
const MinPasswordLength = 8

// AuthService handles registration, login and the GitHub OAuth callback.
// It also provisions each new account's default collection, so a user can
// save snippets immediately after signing up.
type AuthService struct {
	users       repository.UserRepository
	collections repository.CollectionRepository
	tokens      *auth.TokenService
	passwords   *auth.PasswordService
	logger      *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	collections repository.CollectionRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		collections: collections,
		tokens:      tokens,
		passwords:   passwords,
		logger:      logger,
	}
}

// AuthResult bundles the user with the issued session token so the handler
// can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates an email/password account.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > model.MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", model.MaxNameLength))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return s.establishSession(ctx, user, "register")
}

// Login authenticates an email/password account. Bad email and bad
// password produce the same Unauthorized, so the endpoint does not confirm
// which emails have accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		// OAuth-only account.
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	return s.establishSession(ctx, user, "login")
}

// LoginOrRegisterGitHub completes the OAuth callback: upsert the account
// keyed on the stable GitHub id, then issue a session.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	email := ghUser.Email
	if email == "" {
		// GitHub hides the email when the user opts out; synthesize the
		// noreply form so the column stays unique and non-empty.
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, ghUser.Login)
	}

	user := &model.User{
		GitHubID: ghUser.ID,
		Name:     ghUser.DisplayName(),
		Email:    email,
		Image:    ghUser.AvatarURL,
	}
	if err := s.users.UpsertByGitHubID(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	return s.establishSession(ctx, user, "github")
}

// establishSession provisions the default collection and issues the JWT.
// EnsureDefault is idempotent, so running it on every login costs one
// indexed read and guarantees accounts created before the collections
// feature still get one.
func (s *AuthService) establishSession(ctx context.Context, user *model.User, flow string) (*AuthResult, error) {
	if _, err := s.collections.EnsureDefault(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("service/auth: provisioning default collection: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("flow", flow),
	)

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the account behind a validated session. Used by the
// /api/me handler after the middleware extracts the userID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	return s.users.GetUserByID(ctx, id)
}

// UpdateProfile changes the caller's display name and avatar URL.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name, image string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > model.MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", model.MaxNameLength))
	}

	image = strings.TrimSpace(image)
	if image != "" {
		u, err := url.Parse(image)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, apperror.ValidationFailed("image", "image must be a valid URL")
		}
	}

	if err := s.users.UpdateProfile(ctx, userID, name, image); err != nil {
		return nil, err
	}
	return s.users.GetUserByID(ctx, userID)
}
