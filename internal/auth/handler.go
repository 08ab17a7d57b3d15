package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dojoflow/backend/internal/domain"
	"github.com/dojoflow/backend/internal/middleware"
	"github.com/dojoflow/backend/internal/models"
	"github.com/dojoflow/backend/internal/web"
)

// Handler holds the identity HTTP handlers.
type Handler struct {
	svc   *Service
	users UserStore
}

func NewHandler(svc *Service, users UserStore) *Handler {
	return &Handler{svc: svc, users: users}
}

// SignUp creates a new user. POST /api/sign-up
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		web.WriteError(w, domain.Validation("invalid request body"))
		return
	}
	user, err := h.svc.SignUp(r.Context(), creds)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, user.Sanitized())
}

// SignIn authenticates and returns the user with a fresh token.
// POST /api/sign-in
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		web.WriteError(w, domain.Validation("invalid request body"))
		return
	}
	user, err := h.svc.SignIn(r.Context(), creds.Email, creds.Password)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, user)
}

// SignOut revokes the current session token. DELETE /api/sign-out
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.Actor(r.Context())
	if !ok {
		web.WriteError(w, domain.BadCredentials())
		return
	}
	if err := h.svc.SignOut(r.Context(), actor); err != nil {
		web.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword rotates the actor's password. PATCH /api/change-password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.Actor(r.Context())
	if !ok {
		web.WriteError(w, domain.BadCredentials())
		return
	}
	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteError(w, domain.Validation("invalid request body"))
		return
	}
	if err := h.svc.ChangePassword(r.Context(), actor, req.Old, req.New); err != nil {
		web.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateProfile patches the allow-listed profile fields.
// PATCH /api/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.Actor(r.Context())
	if !ok {
		web.WriteError(w, domain.BadCredentials())
		return
	}
	var patch models.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		web.WriteError(w, domain.Validation("invalid request body"))
		return
	}
	if _, err := h.svc.UpdateProfile(r.Context(), actor, patch); err != nil {
		web.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the currently authenticated user. GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.Actor(r.Context())
	if !ok {
		web.WriteError(w, domain.BadCredentials())
		return
	}
	web.WriteJSON(w, http.StatusOK, actor.Sanitized())
}

// ListUsers returns all users, or a single match when ?user_name= is given.
// GET /api/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("user_name"); name != "" {
		user, err := h.users.FindUserByName(r.Context(), name)
		if err != nil {
			web.WriteError(w, err)
			return
		}
		web.WriteJSON(w, http.StatusOK, []*models.User{user.Sanitized()})
		return
	}

	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		web.WriteError(w, err)
		return
	}
	out := make([]*models.User, 0, len(users))
	for i := range users {
		out = append(out, users[i].Sanitized())
	}
	web.WriteJSON(w, http.StatusOK, out)
}

// GetUser returns a single user by id. GET /api/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, user.Sanitized())
}
