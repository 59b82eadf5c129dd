package handler

import (
	"errors"
	"net/http"

	"github.com/bachecahq/bacheca/internal/messages"
	"github.com/bachecahq/bacheca/internal/model"
	"github.com/bachecahq/bacheca/internal/server/middleware"
	"github.com/bachecahq/bacheca/internal/service"
)

// AuthHandler serves login, logout, and the current-identity check.
type AuthHandler struct {
	authSvc *service.AuthService
	msgs    messages.Catalog
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, msgs messages.Catalog) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, msgs: msgs}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a user and sets the session cookie.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, h.msgs.Resolve(messages.MissingFields))
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, h.msgs.Resolve(messages.MissingFields))
		return
	}

	user, sess, err := h.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, h.msgs.Resolve(messages.InvalidCredentials))
			return
		}
		writeError(w, http.StatusInternalServerError, h.msgs.Resolve(messages.GenericError))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(h.authSvc.SessionTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, model.IdentityOf(user))
}

// Logout terminates the server-side session and clears the cookie. It always
// succeeds from the client's point of view, even with no valid session.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(middleware.SessionCookie); err == nil {
		_ = h.authSvc.Logout(r.Context(), c.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: h.msgs.Resolve(messages.LogoutDone)})
}

// Me returns the identity behind the session cookie. Runs behind the
// Authenticate middleware, so reaching it implies a valid session.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	writeJSON(w, http.StatusOK, model.IdentityOf(user))
}
