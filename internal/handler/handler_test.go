package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/snipvault/internal/auth"
	"github.com/sakif/snipvault/internal/embedding"
	"github.com/sakif/snipvault/internal/handler"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository/sqlite"
	"github.com/sakif/snipvault/internal/search"
	"github.com/sakif/snipvault/internal/service"
)

// fixture wires handlers to real services over an in-memory database.
// Only the embedding provider is absent, so semantic operations take the
// text fallback path.
type fixture struct {
	db          *sqlite.DB
	snippets    *handler.SnippetHandler
	collections *handler.CollectionHandler
	search      *handler.SearchHandler
	auth        *handler.AuthHandler

	snippetSvc    *service.SnippetService
	collectionSvc *service.CollectionService
	authSvc       *service.AuthService

	user        *model.User
	defaultColl *model.Collection
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	embedder := embedding.NewClient(nil, model.EmbeddingDimensions, logger)

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars")
	if err != nil {
		t.Fatalf("creating token service: %v", err)
	}

	snippetSvc := service.NewSnippetService(db, db, embedder, logger)
	collectionSvc := service.NewCollectionService(db, logger)
	authSvc := service.NewAuthService(db, db, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), logger)
	searcher := search.NewSearcher(db, embedder, logger)

	f := &fixture{
		db:            db,
		snippets:      handler.NewSnippetHandler(snippetSvc, logger),
		collections:   handler.NewCollectionHandler(collectionSvc, logger),
		search:        handler.NewSearchHandler(searcher, snippetSvc, logger),
		auth:          handler.NewAuthHandler(authSvc, nil, logger),
		snippetSvc:    snippetSvc,
		collectionSvc: collectionSvc,
		authSvc:       authSvc,
	}

	user := &model.User{Name: "Ada", Email: "ada@example.com"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	coll, err := db.EnsureDefault(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("seeding default collection: %v", err)
	}
	f.user = user
	f.defaultColl = coll

	return f
}

// jsonRequest builds a request with an optional JSON body, the caller's
// identity in the context, and chi URL params.
func jsonRequest(t *testing.T, method, target string, body any, userID string, params map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if userID != "" {
		ctx = auth.WithUserID(ctx, userID)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return out
}

func validSnippetInput() service.SnippetInput {
	return service.SnippetInput{
		Title:    "Binary search",
		Code:     "func search(xs []int, x int) int { return -1 }",
		Language: "go",
		Tags:     []string{"algorithms"},
	}
}

// createSnippet creates a snippet through the service layer and returns it.
func (f *fixture) createSnippet(t *testing.T, userID string, in service.SnippetInput) *model.Snippet {
	t.Helper()
	result, err := f.snippetSvc.Create(context.Background(), userID, in)
	if err != nil {
		t.Fatalf("creating snippet: %v", err)
	}
	return result.Snippet
}
