package client

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/bachecahq/bacheca/internal/messages"
	"github.com/bachecahq/bacheca/internal/model"
)

// PostController manages the post list for the shared feed or for a single
// author's profile. Mutations are pessimistic: the list is refetched after
// every successful create or delete rather than patched locally.
//
// Every fetch carries a generation number; a response is applied only when
// its generation is still the latest issued. That guards against a stale
// search result landing after a newer one ("last to resolve wins" is the bug
// class this avoids).
type PostController struct {
	client   *Client
	session  *SessionStore
	notifier Notifier
	msgs     messages.Catalog

	mu       sync.Mutex
	authorID string // non-empty for the profile view
	posts    []model.Post
	input    string
	gen      uint64
}

// NewPostController creates a controller for the shared feed.
func NewPostController(c *Client, session *SessionStore, notifier Notifier, msgs messages.Catalog) *PostController {
	return &PostController{client: c, session: session, notifier: notifier, msgs: msgs}
}

// NewProfileController creates a controller scoped to one author's posts.
func NewProfileController(c *Client, session *SessionStore, notifier Notifier, msgs messages.Catalog, authorID string) *PostController {
	pc := NewPostController(c, session, notifier, msgs)
	pc.authorID = authorID
	return pc
}

// Posts returns the currently displayed list.
func (pc *PostController) Posts() []model.Post {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return append([]model.Post(nil), pc.posts...)
}

// Input returns the draft content, retained across failed submissions.
func (pc *PostController) Input() string {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.input
}

// Refresh fetches the full list (or the author's list, on a profile) and
// replaces the held posts in server order. The client never re-sorts.
func (pc *PostController) Refresh(ctx context.Context) {
	path := "/api/posts"
	if pc.authorID != "" {
		path = "/api/posts/user/" + url.PathEscape(pc.authorID)
	}
	pc.fetch(ctx, path)
}

// Search fetches posts matching query. A blank query behaves as Refresh.
// Callers are expected to route keystrokes through a Debouncer rather than
// calling this on every change.
func (pc *PostController) Search(ctx context.Context, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		pc.Refresh(ctx)
		return
	}
	pc.fetch(ctx, "/api/posts/search?q="+url.QueryEscape(query))
}

// Create publishes the given content. Blank content is rejected locally
// with no network call. On success the draft input is cleared and the list
// refetched; on failure the input is kept so the user can retry.
func (pc *PostController) Create(ctx context.Context, content string) error {
	pc.mu.Lock()
	pc.input = content
	pc.mu.Unlock()

	if strings.TrimSpace(content) == "" {
		return nil
	}

	var created model.Post
	if err := pc.client.post(ctx, "/api/posts", map[string]string{"content": content}, &created); err != nil {
		pc.fail(err)
		return err
	}

	pc.mu.Lock()
	pc.input = ""
	pc.mu.Unlock()
	pc.notifier.Success(pc.msgs.Resolve(messages.PostCreated))
	pc.Refresh(ctx)
	return nil
}

// Delete removes a post and refetches the list, whether or not the post is
// visible under the current filter. On failure the list stays as it was,
// except for a 404: the post is already gone server-side, so the list is
// refetched to drop the stale entry.
func (pc *PostController) Delete(ctx context.Context, postID string) error {
	if err := pc.client.delete(ctx, "/api/posts/"+url.PathEscape(postID)); err != nil {
		pc.fail(err)
		if apiErr, ok := err.(*APIError); ok && apiErr.Kind == KindNotFound {
			pc.Refresh(ctx)
		}
		return err
	}

	pc.notifier.Success(pc.msgs.Resolve(messages.PostDeleted))
	pc.Refresh(ctx)
	return nil
}

// CanDelete reports whether the delete control should be offered for a post:
// the author themselves, or any admin.
func (pc *PostController) CanDelete(p model.Post) bool {
	id := pc.session.Identity()
	if id == nil {
		return false
	}
	return id.IsAdmin || p.AuthorID == id.ID
}

// fetch performs one generation-guarded list request. A 401 clears the
// session instead of surfacing an error.
func (pc *PostController) fetch(ctx context.Context, path string) {
	pc.mu.Lock()
	pc.gen++
	gen := pc.gen
	pc.mu.Unlock()

	var posts []model.Post
	if err := pc.client.get(ctx, path, &posts); err != nil {
		pc.fail(err)
		return
	}

	pc.mu.Lock()
	if gen == pc.gen {
		pc.posts = posts
	}
	pc.mu.Unlock()
}

// fail converts an operation failure into either a session invalidation
// (401) or a negative notification (everything else).
func (pc *PostController) fail(err error) {
	if IsUnauthenticated(err) {
		pc.session.Invalidate()
		return
	}
	if apiErr, ok := err.(*APIError); ok {
		pc.notifier.Error(apiErr.Display(pc.msgs))
		return
	}
	pc.notifier.Error(pc.msgs.Resolve(messages.NetworkError))
}
