package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bachecahq/bacheca/internal/messages"
	"github.com/bachecahq/bacheca/internal/model"
	"github.com/bachecahq/bacheca/internal/server/middleware"
	"github.com/bachecahq/bacheca/internal/store"
)

// PostHandler serves the shared feed: list, search, per-author listing,
// creation, and deletion. All routes run behind Authenticate.
type PostHandler struct {
	store *store.Store
	msgs  messages.Catalog
}

// NewPostHandler creates a PostHandler.
func NewPostHandler(st *store.Store, msgs messages.Catalog) *PostHandler {
	return &PostHandler{store: st, msgs: msgs}
}

// List returns every post, newest first.
// GET /api/posts
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.ListPosts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, h.msgs.Resolve(messages.GenericError))
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(posts))
}

// Search returns posts whose content matches the q parameter. A blank query
// is equivalent to List, mirroring what the client does before debouncing.
// GET /api/posts/search?q=
func (h *PostHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	var posts []model.Post
	var err error
	if q == "" {
		posts, err = h.store.ListPosts(r.Context())
	} else {
		posts, err = h.store.SearchPosts(r.Context(), q)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, h.msgs.Resolve(messages.GenericError))
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(posts))
}

// ByUser returns all posts authored by one user, newest first. An unknown
// user id yields an empty list, not a 404, matching the original behavior.
// GET /api/posts/user/{userId}
func (h *PostHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	authorID := chi.URLParam(r, "userId")

	posts, err := h.store.ListPostsByAuthor(r.Context(), authorID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, h.msgs.Resolve(messages.GenericError))
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(posts))
}

type createPostRequest struct {
	Content string `json:"content"`
}

// Create publishes a new post authored by the session user.
// POST /api/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, h.msgs.Resolve(messages.EmptyContent))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, h.msgs.Resolve(messages.EmptyContent))
		return
	}

	user := middleware.GetUser(r.Context())
	post := &model.Post{
		ID:         uuid.New().String(),
		AuthorID:   user.ID,
		AuthorName: user.Username,
		Content:    req.Content,
	}
	if err := h.store.CreatePost(r.Context(), post); err != nil {
		writeError(w, http.StatusInternalServerError, h.msgs.Resolve(messages.GenericError))
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// Delete removes a post. Only the author or an admin may delete it.
// DELETE /api/posts/{postId}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")

	post, err := h.store.GetPost(r.Context(), postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, h.msgs.Resolve(messages.PostNotFound))
			return
		}
		writeError(w, http.StatusInternalServerError, h.msgs.Resolve(messages.GenericError))
		return
	}

	user := middleware.GetUser(r.Context())
	if post.AuthorID != user.ID && !user.IsAdmin {
		writeError(w, http.StatusForbidden, h.msgs.Resolve(messages.AccessDenied))
		return
	}

	if err := h.store.DeletePost(r.Context(), postID); err != nil {
		writeError(w, http.StatusInternalServerError, h.msgs.Resolve(messages.GenericError))
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: h.msgs.Resolve(messages.PostDeleted)})
}

// emptyIfNil keeps empty list responses as [] rather than null.
func emptyIfNil(posts []model.Post) []model.Post {
	if posts == nil {
		return []model.Post{}
	}
	return posts
}
