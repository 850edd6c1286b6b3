package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snipvault/internal/service"
)

// CollectionHandler serves the authenticated collection endpoints.
type CollectionHandler struct {
	collections *service.CollectionService
	logger      *slog.Logger
}

func NewCollectionHandler(collections *service.CollectionService, logger *slog.Logger) *CollectionHandler {
	return &CollectionHandler{collections: collections, logger: logger}
}

// HandleCreate adds a collection.
//
// HTTP: POST /api/collections
func (h *CollectionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	coll, err := h.collections.Create(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, coll)
}

// HandleList returns the caller's collections, default first.
//
// HTTP: GET /api/collections
func (h *CollectionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	collections, err := h.collections.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": collections})
}

// HandleGet returns one collection.
//
// HTTP: GET /api/collections/{id}
func (h *CollectionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	coll, err := h.collections.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coll)
}

// HandleRename changes a collection's name.
//
// HTTP: PUT /api/collections/{id}
func (h *CollectionHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	coll, err := h.collections.Rename(r.Context(), userID, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coll)
}

// HandleDelete removes a collection; its snippets move to the default
// collection.
//
// HTTP: DELETE /api/collections/{id}
func (h *CollectionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	if err := h.collections.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
