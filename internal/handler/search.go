package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snipvault/internal/repository"
	"github.com/sakif/snipvault/internal/search"
	"github.com/sakif/snipvault/internal/service"
)

// SearchHandler serves the owner search endpoint and the public explore
// surface.
type SearchHandler struct {
	searcher *search.Searcher
	snippets *service.SnippetService
	logger   *slog.Logger
}

func NewSearchHandler(searcher *search.Searcher, snippets *service.SnippetService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, snippets: snippets, logger: logger}
}

// HandleSearch searches the caller's own snippets.
//
// HTTP: POST /api/search
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req search.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.searcher.SearchOwner(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleExploreSearch searches all public snippets. Anonymous.
//
// HTTP: POST /explore/search
func (h *SearchHandler) HandleExploreSearch(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.searcher.SearchPublic(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleExploreList returns the paged public feed, newest first, with the
// total so clients can render page controls.
//
// HTTP: GET /explore?language=&limit=&offset=
func (h *SearchHandler) HandleExploreList(w http.ResponseWriter, r *http.Request) {
	language := r.URL.Query().Get("language")

	results, err := h.snippets.ListPublic(r.Context(), repository.PublicListOptions{
		Language: language,
		Limit:    queryInt(r, "limit", 0),
		Offset:   queryInt(r, "offset", 0),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	total, err := h.snippets.CountPublic(r.Context(), language)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"snippets": results,
		"total":    total,
	})
}

// HandleExploreGet returns one public snippet with author attribution.
// Anonymous.
//
// HTTP: GET /explore/{id}
func (h *SearchHandler) HandleExploreGet(w http.ResponseWriter, r *http.Request) {
	result, err := h.snippets.GetPublic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
