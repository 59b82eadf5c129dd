package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bachecahq/bacheca/internal/messages"
	"github.com/bachecahq/bacheca/internal/model"
	"github.com/bachecahq/bacheca/internal/service"
	"github.com/bachecahq/bacheca/internal/store"
)

// UserHandler serves the admin user-management panel. All routes run behind
// Authenticate + RequireAdmin.
type UserHandler struct {
	store   *store.Store
	authSvc *service.AuthService
	msgs    messages.Catalog
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(st *store.Store, authSvc *service.AuthService, msgs messages.Catalog) *UserHandler {
	return &UserHandler{store: st, authSvc: authSvc, msgs: msgs}
}

// List returns every account.
// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, h.msgs.Resolve(messages.GenericError))
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Create registers a new non-admin account.
// POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, h.msgs.Resolve(messages.MissingFields))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, h.msgs.Resolve(messages.MissingFields))
		return
	}

	user, err := h.authSvc.CreateUser(r.Context(), req.Username, req.Password, false)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, h.msgs.Resolve(messages.DuplicateUsername))
			return
		}
		writeError(w, http.StatusInternalServerError, h.msgs.Resolve(messages.GenericError))
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Delete removes an account along with its posts and sessions. The built-in
// admin account is refused with a 400.
// DELETE /api/users/{userId}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	if err := h.authSvc.DeleteUser(r.Context(), userID); err != nil {
		switch {
		case errors.Is(err, service.ErrProtectedUser):
			writeError(w, http.StatusBadRequest, h.msgs.Resolve(messages.AdminUndeletable))
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, h.msgs.Resolve(messages.UserNotFound))
		default:
			writeError(w, http.StatusInternalServerError, h.msgs.Resolve(messages.GenericError))
		}
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: h.msgs.Resolve(messages.UserDeleted)})
}

type changePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// ChangePassword rotates an account's password and revokes its sessions.
// PUT /api/users/{userId}/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var req changePasswordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, h.msgs.Resolve(messages.MissingFields))
		return
	}
	if req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, h.msgs.Resolve(messages.MissingFields))
		return
	}

	if err := h.authSvc.ChangePassword(r.Context(), userID, req.NewPassword); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, h.msgs.Resolve(messages.UserNotFound))
			return
		}
		writeError(w, http.StatusInternalServerError, h.msgs.Resolve(messages.GenericError))
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: h.msgs.Resolve(messages.PasswordUpdated)})
}
