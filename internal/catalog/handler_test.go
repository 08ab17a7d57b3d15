package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoflow/backend/internal/middleware"
	"github.com/dojoflow/backend/internal/models"
	"github.com/dojoflow/backend/internal/store"
)

type fakeMedia struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeMedia) Upload(_ context.Context, key string, data []byte, contentType string) error {
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeMedia) Download(_ context.Context, key string) ([]byte, string, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("no such object %s", key)
	}
	return data, f.types[key], nil
}

func (f *fakeMedia) Remove(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func newRouter(t *testing.T) (chi.Router, *store.MemoryStore, *fakeMedia, *models.User) {
	t.Helper()
	mem := store.NewMemoryStore()
	owner, err := mem.CreateUser(context.Background(), &models.User{
		Email: "owner@example.com", HashedPassword: "x",
	})
	require.NoError(t, err)

	media := newFakeMedia()
	h := NewHandler(NewService(mem, mem, mem, true, nil), media)

	r := chi.NewRouter()
	r.Route("/api/techniques", func(r chi.Router) {
		r.Get("/", h.ListTechniques)
		r.Post("/", h.CreateTechnique)
		r.Get("/{id}", h.GetTechnique)
		r.Patch("/{id}", h.UpdateTechnique)
		r.Delete("/{id}", h.DeleteTechnique)
		r.Patch("/{id}/link", h.LinkTechnique)
		r.Put("/{id}/demonstration", h.UploadDemonstration)
		r.Get("/{id}/demonstration", h.DownloadDemonstration)
	})
	r.Route("/api/sequences", func(r chi.Router) {
		r.Get("/", h.ListSequences)
		r.Post("/", h.CreateSequence)
		r.Get("/{id}", h.GetSequence)
		r.Patch("/{id}", h.UpdateSequence)
		r.Delete("/{id}", h.DeleteSequence)
		r.Post("/{id}/follow", h.FollowSequence)
		r.Delete("/{id}/follow", h.UnfollowSequence)
	})
	return r, mem, media, owner
}

func doJSON(t *testing.T, r chi.Router, actor *models.User, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), actor))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_TechniqueLifecycle(t *testing.T) {
	r, _, _, owner := newRouter(t)

	rec := doJSON(t, r, owner, http.MethodPost, "/api/techniques",
		`{"name":"ikkyo","timing":"omote","direction":"irimi"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var tech models.Technique
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tech))
	assert.Equal(t, owner.ID, tech.OwnerID)

	rec = doJSON(t, r, owner, http.MethodPatch, "/api/techniques/"+tech.ID,
		`{"description":"first control"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, owner, http.MethodGet, "/api/techniques/"+tech.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tech))
	assert.Equal(t, "first control", tech.Description)

	rec = doJSON(t, r, owner, http.MethodDelete, "/api/techniques/"+tech.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, owner, http.MethodGet, "/api/techniques/"+tech.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_CreateTechnique_Invalid(t *testing.T) {
	r, _, _, owner := newRouter(t)

	rec := doJSON(t, r, owner, http.MethodPost, "/api/techniques", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, owner, http.MethodPost, "/api/techniques", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_SequenceOwnership(t *testing.T) {
	r, mem, _, owner := newRouter(t)

	other, err := mem.CreateUser(context.Background(), &models.User{
		Email: "other@example.com", HashedPassword: "x",
	})
	require.NoError(t, err)

	rec := doJSON(t, r, owner, http.MethodPost, "/api/techniques",
		`{"name":"shihonage","timing":"ura","direction":"tenkan"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var tech models.Technique
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tech))

	rec = doJSON(t, r, owner, http.MethodPost, "/api/sequences",
		fmt.Sprintf(`{"name":"Combo","techniques":[%q]}`, tech.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	var seq models.Sequence
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seq))

	rec = doJSON(t, r, other, http.MethodDelete, "/api/sequences/"+seq.ID, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// A non-owner may still follow.
	rec = doJSON(t, r, other, http.MethodPost, "/api/sequences/"+seq.ID+"/follow", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	u, err := mem.GetUserByID(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Contains(t, u.SequenceRefs, seq.ID)
}

func TestHandler_CreateSequence_UnknownTechnique(t *testing.T) {
	r, _, _, owner := newRouter(t)

	rec := doJSON(t, r, owner, http.MethodPost, "/api/sequences",
		`{"name":"X","techniques":["missing"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Unauthenticated(t *testing.T) {
	r, _, _, _ := newRouter(t)

	rec := doJSON(t, r, nil, http.MethodPost, "/api/techniques", `{"name":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Demonstration(t *testing.T) {
	r, _, media, owner := newRouter(t)

	rec := doJSON(t, r, owner, http.MethodPost, "/api/techniques",
		`{"name":"kotegaeshi","timing":"omote","direction":"tenkan"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var tech models.Technique
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tech))

	req := httptest.NewRequest(http.MethodPut, "/api/techniques/"+tech.ID+"/demonstration",
		bytes.NewReader([]byte("video-bytes")))
	req.Header.Set("Content-Type", "video/mp4")
	req = req.WithContext(middleware.WithActor(req.Context(), owner))
	up := httptest.NewRecorder()
	r.ServeHTTP(up, req)
	require.Equal(t, http.StatusNoContent, up.Code)

	rec = doJSON(t, r, owner, http.MethodGet, "/api/techniques/"+tech.ID+"/demonstration", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "video-bytes", rec.Body.String())

	// Deleting the technique removes the stored object.
	rec = doJSON(t, r, owner, http.MethodDelete, "/api/techniques/"+tech.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, media.objects)
}

func TestHandler_DemonstrationMissing(t *testing.T) {
	r, _, _, owner := newRouter(t)

	rec := doJSON(t, r, owner, http.MethodPost, "/api/techniques",
		`{"name":"ukemi","timing":"omote","direction":"irimi"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var tech models.Technique
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tech))

	rec = doJSON(t, r, owner, http.MethodGet, "/api/techniques/"+tech.ID+"/demonstration", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
