// Package server is the composition root: it wires the database, the
// embedding client, the services and the handlers, and owns the HTTP
// listener's lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/snipvault/internal/auth"
	"github.com/sakif/snipvault/internal/embedding"
	"github.com/sakif/snipvault/internal/handler"
	"github.com/sakif/snipvault/internal/middleware"
	"github.com/sakif/snipvault/internal/model"
	sqliteRepo "github.com/sakif/snipvault/internal/repository/sqlite"
	"github.com/sakif/snipvault/internal/search"
	"github.com/sakif/snipvault/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// Embedding provider settings. When OpenAIAPIKey is empty the server
	// runs text-search-only: semantic requests fall back transparently.
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	EmbeddingModel string
}

// Server owns the router and the resources that need closing on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New wires the full dependency graph:
// DB → repositories → embedding client → services/searcher → handlers.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// embeddingClient builds the embedding client, with or without a provider.
// A nil provider is a valid configuration: every Embed call reports
// unavailable and search falls back to text matching.
func (s *Server) embeddingClient() (*embedding.Client, error) {
	if s.config.OpenAIAPIKey == "" {
		s.logger.Warn("no embedding API key configured; semantic search will fall back to text")
		return embedding.NewClient(nil, model.EmbeddingDimensions, s.logger), nil
	}

	provider, err := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
		APIKey:  s.config.OpenAIAPIKey,
		BaseURL: s.config.OpenAIBaseURL,
		Model:   s.config.EmbeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}
	return embedding.NewClient(provider, model.EmbeddingDimensions, s.logger), nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	embedder, err := s.embeddingClient()
	if err != nil {
		return err
	}

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	} else {
		s.logger.Warn("GitHub OAuth not configured; only email/password login is available")
	}

	authService := service.NewAuthService(s.db, s.db, tokens, auth.NewPasswordService(), s.logger)
	snippetService := service.NewSnippetService(s.db, s.db, embedder, s.logger)
	collectionService := service.NewCollectionService(s.db, s.logger)
	searcher := search.NewSearcher(s.db, embedder, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)
	collectionHandler := handler.NewCollectionHandler(collectionService, s.logger)
	searchHandler := handler.NewSearchHandler(searcher, snippetService, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/me", authHandler.HandleMe)
		r.Put("/me", authHandler.HandleUpdateMe)

		r.Route("/snippets", func(r chi.Router) {
			r.Get("/", snippetHandler.HandleList)
			r.Post("/", snippetHandler.HandleCreate)
			r.Get("/stats", snippetHandler.HandleStats)
			r.Get("/counts", snippetHandler.HandleCounts)
			r.Get("/{id}", snippetHandler.HandleGet)
			r.Put("/{id}", snippetHandler.HandleUpdate)
			r.Delete("/{id}", snippetHandler.HandleDelete)
			r.Patch("/{id}/visibility", snippetHandler.HandleSetVisibility)
			r.Patch("/{id}/move", snippetHandler.HandleMove)
		})

		r.Route("/collections", func(r chi.Router) {
			r.Get("/", collectionHandler.HandleList)
			r.Post("/", collectionHandler.HandleCreate)
			r.Get("/{id}", collectionHandler.HandleGet)
			r.Put("/{id}", collectionHandler.HandleRename)
			r.Delete("/{id}", collectionHandler.HandleDelete)
		})

		r.Post("/search", searchHandler.HandleSearch)
	})

	// The explore surface is anonymous; OptionalAuth attaches an identity
	// when present without requiring one.
	s.router.Route("/explore", func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))

		r.Get("/", searchHandler.HandleExploreList)
		r.Post("/search", searchHandler.HandleExploreSearch)
		r.Get("/{id}", searchHandler.HandleExploreGet)
	})

	return nil
}

// Start runs the listener until SIGINT/SIGTERM, then drains in-flight
// requests and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
