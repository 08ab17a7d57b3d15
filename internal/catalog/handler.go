package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dojoflow/backend/internal/domain"
	"github.com/dojoflow/backend/internal/middleware"
	"github.com/dojoflow/backend/internal/models"
	"github.com/dojoflow/backend/internal/web"
)

// maxDemoBytes caps demonstration media uploads at 32 MiB.
const maxDemoBytes = 32 << 20

// MediaStore defines the interface for demonstration media storage.
type MediaStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// Handler holds the technique and sequence HTTP handlers.
type Handler struct {
	svc   *Service
	media MediaStore
}

func NewHandler(svc *Service, media MediaStore) *Handler {
	return &Handler{svc: svc, media: media}
}

func actor(r *http.Request) (*models.User, error) {
	u, ok := middleware.Actor(r.Context())
	if !ok {
		return nil, domain.BadCredentials()
	}
	return u, nil
}

// ── techniques ───────────────────────────────────────────

// CreateTechnique handles POST /api/techniques.
func (h *Handler) CreateTechnique(w http.ResponseWriter, r *http.Request) {
	owner, err := actor(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	var req models.CreateTechniqueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteError(w, domain.Validation("invalid request body"))
		return
	}
	t, err := h.svc.CreateTechnique(r.Context(), owner, req)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, t)
}

// ListTechniques handles GET /api/techniques.
func (h *Handler) ListTechniques(w http.ResponseWriter, r *http.Request) {
	ts, err := h.svc.ListTechniques(r.Context())
	if err != nil {
		web.WriteError(w, err)
		return
	}
	if ts == nil {
		ts = []models.Technique{}
	}
	web.WriteJSON(w, http.StatusOK, ts)
}

// GetTechnique handles GET /api/techniques/{id}.
func (h *Handler) GetTechnique(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTechnique(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, t)
}

// UpdateTechnique handles PATCH /api/techniques/{id}.
func (h *Handler) UpdateTechnique(w http.ResponseWriter, r *http.Request) {
	owner, err := actor(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	var patch models.TechniquePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		web.WriteError(w, domain.Validation("invalid request body"))
		return
	}
	if _, err := h.svc.UpdateTechnique(r.Context(), owner, chi.URLParam(r, "id"), patch); err != nil {
		web.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTechnique handles DELETE /api/techniques/{id}. Stored demonstration
// media is removed best-effort after the cascade.
func (h *Handler) DeleteTechnique(w http.ResponseWriter, r *http.Request) {
	owner, err := actor(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	t, err := h.svc.DeleteTechnique(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	if h.media != nil && isMediaKey(t.Demonstration) {
		h.media.Remove(r.Context(), t.Demonstration)
	}
	w.WriteHeader(http.StatusNoContent)
}

// LinkTechnique handles PATCH /api/techniques/{id}/link: records the
// technique in the calling user's collection without touching the
// technique itself.
func (h *Handler) LinkTechnique(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	if err := h.svc.LinkTechnique(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		web.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadDemonstration handles PUT /api/techniques/{id}/demonstration. The
// object key is recorded on the technique record.
func (h *Handler) UploadDemonstration(w http.ResponseWriter, r *http.Request) {
	owner, err := actor(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	id := chi.URLParam(r, "id")

	data, err := io.ReadAll(io.LimitReader(r.Body, maxDemoBytes+1))
	if err != nil {
		web.WriteError(w, domain.Internal(err))
		return
	}
	if len(data) == 0 {
		web.WriteError(w, domain.Validation("empty demonstration upload"))
		return
	}
	if len(data) > maxDemoBytes {
		web.WriteError(w, domain.Validation("demonstration upload exceeds size limit"))
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	t, err := h.svc.GetTechnique(r.Context(), id)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	if err := RequireOwnership(owner, t); err != nil {
		web.WriteError(w, err)
		return
	}

	key := mediaKey(id)
	patch := models.TechniquePatch{Demonstration: &key}
	if err := h.media.Upload(r.Context(), key, data, contentType); err != nil {
		web.WriteError(w, domain.Internal(err))
		return
	}
	if _, err := h.svc.UpdateTechnique(r.Context(), owner, id, patch); err != nil {
		web.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadDemonstration handles GET /api/techniques/{id}/demonstration.
func (h *Handler) DownloadDemonstration(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTechnique(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	if !isMediaKey(t.Demonstration) {
		web.WriteError(w, domain.NotFound("demonstration", t.ID))
		return
	}
	data, ct, err := h.media.Download(r.Context(), t.Demonstration)
	if err != nil {
		web.WriteError(w, domain.Internal(err))
		return
	}
	w.Header().Set("Content-Type", ct)
	w.Write(data)
}

// ── sequences ────────────────────────────────────────────

// CreateSequence handles POST /api/sequences.
func (h *Handler) CreateSequence(w http.ResponseWriter, r *http.Request) {
	owner, err := actor(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	var req models.CreateSequenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteError(w, domain.Validation("invalid request body"))
		return
	}
	seq, err := h.svc.CreateSequence(r.Context(), owner, req.Name, req.Techniques)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, seq)
}

// ListSequences handles GET /api/sequences.
func (h *Handler) ListSequences(w http.ResponseWriter, r *http.Request) {
	seqs, err := h.svc.ListSequences(r.Context())
	if err != nil {
		web.WriteError(w, err)
		return
	}
	if seqs == nil {
		seqs = []models.Sequence{}
	}
	web.WriteJSON(w, http.StatusOK, seqs)
}

// GetSequence handles GET /api/sequences/{id}.
func (h *Handler) GetSequence(w http.ResponseWriter, r *http.Request) {
	seq, err := h.svc.GetSequence(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, seq)
}

// UpdateSequence handles PATCH /api/sequences/{id}.
func (h *Handler) UpdateSequence(w http.ResponseWriter, r *http.Request) {
	owner, err := actor(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	var patch models.SequencePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		web.WriteError(w, domain.Validation("invalid request body"))
		return
	}
	if _, err := h.svc.UpdateSequence(r.Context(), owner, chi.URLParam(r, "id"), patch); err != nil {
		web.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSequence handles DELETE /api/sequences/{id}.
func (h *Handler) DeleteSequence(w http.ResponseWriter, r *http.Request) {
	owner, err := actor(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	if err := h.svc.DeleteSequence(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		web.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FollowSequence handles POST /api/sequences/{id}/follow.
func (h *Handler) FollowSequence(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	if err := h.svc.FollowSequence(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		web.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnfollowSequence handles DELETE /api/sequences/{id}/follow.
func (h *Handler) UnfollowSequence(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	if err := h.svc.UnfollowSequence(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		web.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mediaKey(techniqueID string) string {
	return fmt.Sprintf("techniques/%s", techniqueID)
}

func isMediaKey(demonstration string) bool {
	return strings.HasPrefix(demonstration, "techniques/")
}
