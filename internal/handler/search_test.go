package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/snipvault/internal/handler"
	"github.com/sakif/snipvault/internal/search"
)

// seedSearchData creates one private and one public snippet for the
// fixture user, plus a public snippet from a second user.
func seedSearchData(t *testing.T, f *fixture) {
	t.Helper()

	private := validSnippetInput()
	private.Title = "Context timeout helper"
	f.createSnippet(t, f.user.ID, private)

	public := validSnippetInput()
	public.Title = "Retry with backoff"
	public.IsPublic = true
	f.createSnippet(t, f.user.ID, public)
}

func TestSearchHandler_HandleSearch(t *testing.T) {
	f := newFixture(t)
	seedSearchData(t, f)

	t.Run("text match", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/search",
			search.Request{Query: "timeout"}, f.user.ID, nil)
		rr := httptest.NewRecorder()

		f.search.HandleSearch(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeBody[search.Response](t, rr)
		assert.Equal(t, search.ModeText, resp.Mode)
		if assert.Len(t, resp.Results, 1) {
			assert.Equal(t, "Context timeout helper", resp.Results[0].Title)
		}
	})

	t.Run("semantic falls back without provider", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/search",
			search.Request{Query: "retry", Mode: search.ModeSemantic}, f.user.ID, nil)
		rr := httptest.NewRecorder()

		f.search.HandleSearch(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeBody[search.Response](t, rr)
		assert.Equal(t, search.ModeText, resp.Mode)
		assert.Len(t, resp.Results, 1)
	})

	t.Run("empty query", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/search",
			search.Request{Query: "   "}, f.user.ID, nil)
		rr := httptest.NewRecorder()

		f.search.HandleSearch(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		body := decodeBody[handler.ErrorResponse](t, rr)
		assert.Equal(t, "query", body.Field)
	})

	t.Run("anonymous", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/search",
			search.Request{Query: "timeout"}, "", nil)
		rr := httptest.NewRecorder()

		f.search.HandleSearch(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestSearchHandler_HandleExploreSearch(t *testing.T) {
	f := newFixture(t)
	seedSearchData(t, f)

	t.Run("only public snippets", func(t *testing.T) {
		// "helper" appears in a private title; explore must not see it.
		req := jsonRequest(t, http.MethodPost, "/explore/search",
			search.Request{Query: "helper"}, "", nil)
		rr := httptest.NewRecorder()

		f.search.HandleExploreSearch(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeBody[search.Response](t, rr)
		assert.Empty(t, resp.Results)
	})

	t.Run("public hit carries author", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/explore/search",
			search.Request{Query: "backoff"}, "", nil)
		rr := httptest.NewRecorder()

		f.search.HandleExploreSearch(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeBody[search.Response](t, rr)
		if assert.Len(t, resp.Results, 1) {
			assert.Equal(t, "Retry with backoff", resp.Results[0].Title)
			assert.Equal(t, f.user.Name, resp.Results[0].AuthorName)
		}
	})
}

func TestSearchHandler_HandleExploreList(t *testing.T) {
	f := newFixture(t)
	seedSearchData(t, f)

	req := jsonRequest(t, http.MethodGet, "/explore", nil, "", nil)
	rr := httptest.NewRecorder()

	f.search.HandleExploreList(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	type page struct {
		Snippets []struct {
			Title string `json:"title"`
		} `json:"snippets"`
		Total int `json:"total"`
	}
	resp := decodeBody[page](t, rr)

	assert.Equal(t, 1, resp.Total)
	if assert.Len(t, resp.Snippets, 1) {
		assert.Equal(t, "Retry with backoff", resp.Snippets[0].Title)
	}
}

func TestSearchHandler_HandleExploreGet(t *testing.T) {
	f := newFixture(t)

	private := f.createSnippet(t, f.user.ID, validSnippetInput())

	req := jsonRequest(t, http.MethodGet, "/explore/"+private.ID, nil, "",
		map[string]string{"id": private.ID})
	rr := httptest.NewRecorder()

	f.search.HandleExploreGet(rr, req)

	// Private snippets are invisible on explore, even to their owner.
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
