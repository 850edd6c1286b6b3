package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snipvault/internal/auth"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
	"github.com/sakif/snipvault/internal/service"
)

// SnippetHandler serves the authenticated snippet CRUD endpoints.
type SnippetHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

func NewSnippetHandler(snippets *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, logger: logger}
}

// snippetResponse decorates a snippet with the embedding outcome so
// clients can surface "semantic search won't find this yet".
type snippetResponse struct {
	*model.Snippet
	EmbeddingFailed bool `json:"embeddingFailed,omitempty"`
}

// mustUserID reads the userID set by the RequireAuth middleware. Routes
// using this handler are always behind that middleware.
func mustUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
	}
	return userID, ok
}

// queryInt parses an integer query parameter, returning def when absent
// or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// HandleCreate saves a new snippet.
//
// HTTP: POST /api/snippets
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var in service.SnippetInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.snippets.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snippetResponse{
		Snippet:         result.Snippet,
		EmbeddingFailed: result.EmbeddingFailed,
	})
}

// HandleList returns the caller's snippets, most recently updated first.
//
// HTTP: GET /api/snippets?collection=&language=&limit=
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	results, err := h.snippets.List(r.Context(), userID, repository.SnippetListOptions{
		CollectionID: r.URL.Query().Get("collection"),
		Language:     r.URL.Query().Get("language"),
		Limit:        queryInt(r, "limit", 0),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snippets": results})
}

// HandleGet returns one of the caller's snippets.
//
// HTTP: GET /api/snippets/{id}
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	result, err := h.snippets.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleUpdate replaces a snippet's editable fields.
//
// HTTP: PUT /api/snippets/{id}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var in service.SnippetInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.snippets.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippetResponse{
		Snippet:         result.Snippet,
		EmbeddingFailed: result.EmbeddingFailed,
	})
}

// HandleDelete removes a snippet.
//
// HTTP: DELETE /api/snippets/{id}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	if err := h.snippets.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetVisibility toggles a snippet between private and public.
//
// HTTP: PATCH /api/snippets/{id}/visibility
func (h *SnippetHandler) HandleSetVisibility(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		IsPublic bool `json:"isPublic"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.snippets.SetVisibility(r.Context(), userID, chi.URLParam(r, "id"), req.IsPublic); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isPublic": req.IsPublic})
}

// HandleMove places a snippet in another collection.
//
// HTTP: PATCH /api/snippets/{id}/move
func (h *SnippetHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		CollectionID string `json:"collectionId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.snippets.Move(r.Context(), userID, chi.URLParam(r, "id"), req.CollectionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"collectionId": req.CollectionID})
}

// HandleStats returns the caller's dashboard counts.
//
// HTTP: GET /api/snippets/stats
func (h *SnippetHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	stats, err := h.snippets.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleCounts returns snippet counts keyed by collection id.
//
// HTTP: GET /api/snippets/counts
func (h *SnippetHandler) HandleCounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	counts, err := h.snippets.CollectionCounts(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"counts": counts})
}
