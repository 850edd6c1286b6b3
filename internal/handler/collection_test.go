package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/snipvault/internal/model"
)

func TestCollectionHandler_HandleCreate(t *testing.T) {
	f := newFixture(t)

	t.Run("valid collection", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/collections",
			map[string]string{"name": "Work"}, f.user.ID, nil)
		rr := httptest.NewRecorder()

		f.collections.HandleCreate(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		coll := decodeBody[model.Collection](t, rr)
		assert.Equal(t, "Work", coll.Name)
		assert.False(t, coll.IsDefault)
	})

	t.Run("duplicate name", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/collections",
			map[string]string{"name": "Work"}, f.user.ID, nil)
		rr := httptest.NewRecorder()

		f.collections.HandleCreate(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("blank name", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/collections",
			map[string]string{"name": "   "}, f.user.ID, nil)
		rr := httptest.NewRecorder()

		f.collections.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCollectionHandler_HandleList(t *testing.T) {
	f := newFixture(t)

	if _, err := f.collectionSvc.Create(t.Context(), f.user.ID, "Archive"); err != nil {
		t.Fatalf("creating collection: %v", err)
	}

	req := jsonRequest(t, http.MethodGet, "/api/collections", nil, f.user.ID, nil)
	rr := httptest.NewRecorder()

	f.collections.HandleList(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody[map[string][]model.Collection](t, rr)
	if assert.Len(t, body["collections"], 2) {
		// Default collection sorts first.
		assert.True(t, body["collections"][0].IsDefault)
	}
}

func TestCollectionHandler_HandleRename(t *testing.T) {
	f := newFixture(t)

	coll, err := f.collectionSvc.Create(t.Context(), f.user.ID, "Work")
	if err != nil {
		t.Fatalf("creating collection: %v", err)
	}

	req := jsonRequest(t, http.MethodPut, "/api/collections/"+coll.ID,
		map[string]string{"name": "Projects"}, f.user.ID, map[string]string{"id": coll.ID})
	rr := httptest.NewRecorder()

	f.collections.HandleRename(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	renamed := decodeBody[model.Collection](t, rr)
	assert.Equal(t, "Projects", renamed.Name)
}

func TestCollectionHandler_HandleDelete(t *testing.T) {
	f := newFixture(t)

	t.Run("default collection is protected", func(t *testing.T) {
		req := jsonRequest(t, http.MethodDelete, "/api/collections/"+f.defaultColl.ID,
			nil, f.user.ID, map[string]string{"id": f.defaultColl.ID})
		rr := httptest.NewRecorder()

		f.collections.HandleDelete(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("regular collection", func(t *testing.T) {
		coll, err := f.collectionSvc.Create(t.Context(), f.user.ID, "Scratch")
		if err != nil {
			t.Fatalf("creating collection: %v", err)
		}

		req := jsonRequest(t, http.MethodDelete, "/api/collections/"+coll.ID,
			nil, f.user.ID, map[string]string{"id": coll.ID})
		rr := httptest.NewRecorder()

		f.collections.HandleDelete(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}
