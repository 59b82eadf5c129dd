package client

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/bachecahq/bacheca/internal/messages"
	"github.com/bachecahq/bacheca/internal/model"
)

// ConfirmFunc asks the user to acknowledge a destructive action. It must
// return true for the action to proceed; the request is never sent first.
type ConfirmFunc func(user model.User) bool

// AdminController manages the user-management panel: listing, creating and
// deleting accounts, and rotating passwords. The router guard keeps
// non-admin sessions away from this view before any call is made; the
// controller re-checks anyway and silently refuses.
type AdminController struct {
	client   *Client
	session  *SessionStore
	notifier Notifier
	msgs     messages.Catalog
	confirm  ConfirmFunc

	mu           sync.Mutex
	users        []model.User
	formUsername string
	formPassword string
	staged       map[string]string // userID -> staged new password (editor open)
}

// NewAdminController creates an AdminController. A nil confirm refuses every
// delete, which is the safe default for a headless embedding.
func NewAdminController(c *Client, session *SessionStore, notifier Notifier, msgs messages.Catalog, confirm ConfirmFunc) *AdminController {
	return &AdminController{
		client:   c,
		session:  session,
		notifier: notifier,
		msgs:     msgs,
		confirm:  confirm,
		staged:   make(map[string]string),
	}
}

// Users returns the currently held account list.
func (ac *AdminController) Users() []model.User {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return append([]model.User(nil), ac.users...)
}

// SetForm stages the new-user form fields.
func (ac *AdminController) SetForm(username, password string) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.formUsername = username
	ac.formPassword = password
}

// Form returns the staged new-user form fields.
func (ac *AdminController) Form() (username, password string) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return ac.formUsername, ac.formPassword
}

// ListUsers fetches all accounts. Only admin sessions may call it; for
// anyone else it is a no-op, since the router guard already redirected them.
func (ac *AdminController) ListUsers(ctx context.Context) {
	if !ac.isAdmin() {
		return
	}

	var users []model.User
	if err := ac.client.get(ctx, "/api/users", &users); err != nil {
		ac.fail(err)
		return
	}

	ac.mu.Lock()
	ac.users = users
	ac.mu.Unlock()
}

// CreateUser submits the staged form. On success the form is cleared and
// the list refetched; on failure the form is kept for correction.
func (ac *AdminController) CreateUser(ctx context.Context) error {
	username, password := ac.Form()
	if strings.TrimSpace(username) == "" || password == "" {
		ac.notifier.Error(ac.msgs.Resolve(messages.MissingFields))
		return nil
	}

	body := map[string]string{"username": username, "password": password}
	var created model.User
	if err := ac.client.post(ctx, "/api/users", body, &created); err != nil {
		ac.fail(err)
		return err
	}

	ac.SetForm("", "")
	ac.notifier.Success(ac.msgs.Resolve(messages.UserCreated))
	ac.ListUsers(ctx)
	return nil
}

// CanDelete reports whether the delete control is offered for an account.
// The built-in admin account never gets one; the server refuses it too, but
// the client doesn't rely on that alone.
func (ac *AdminController) CanDelete(u model.User) bool {
	return u.Username != model.AdminUsername
}

// DeleteUser removes an account after the confirmation step has been
// acknowledged. On success the list is refetched; on failure it is left
// unchanged.
func (ac *AdminController) DeleteUser(ctx context.Context, userID string) error {
	ac.mu.Lock()
	var target *model.User
	for i := range ac.users {
		if ac.users[i].ID == userID {
			target = &ac.users[i]
			break
		}
	}
	ac.mu.Unlock()

	if target == nil || !ac.CanDelete(*target) {
		return nil
	}
	if ac.confirm == nil || !ac.confirm(*target) {
		return nil
	}

	if err := ac.client.delete(ctx, "/api/users/"+url.PathEscape(userID)); err != nil {
		ac.fail(err)
		// A 404 means the account vanished under us; refetch so the
		// stale row disappears.
		if apiErr, ok := err.(*APIError); ok && apiErr.Kind == KindNotFound {
			ac.ListUsers(ctx)
		}
		return err
	}

	ac.notifier.Success(ac.msgs.Resolve(messages.UserDeleted))
	ac.ListUsers(ctx)
	return nil
}

// StagePassword opens the password editor for an account with the given
// draft value.
func (ac *AdminController) StagePassword(userID, password string) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.staged[userID] = password
}

// StagedPassword returns the draft password for an account and whether its
// editor is open.
func (ac *AdminController) StagedPassword(userID string) (string, bool) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	pw, ok := ac.staged[userID]
	return pw, ok
}

// ChangePassword submits the staged password for an account. It no-ops when
// either the account id or the staged value is empty. On success the editor
// closes and the staged value is cleared; on failure both stay for retry.
func (ac *AdminController) ChangePassword(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	ac.mu.Lock()
	password := ac.staged[userID]
	ac.mu.Unlock()
	if password == "" {
		return nil
	}

	body := map[string]string{"new_password": password}
	if err := ac.client.put(ctx, "/api/users/"+url.PathEscape(userID)+"/password", body, nil); err != nil {
		ac.fail(err)
		if apiErr, ok := err.(*APIError); ok && apiErr.Kind == KindNotFound {
			ac.ListUsers(ctx)
		}
		return err
	}

	ac.mu.Lock()
	delete(ac.staged, userID)
	ac.mu.Unlock()
	ac.notifier.Success(ac.msgs.Resolve(messages.PasswordUpdated))
	return nil
}

func (ac *AdminController) isAdmin() bool {
	id := ac.session.Identity()
	return id != nil && id.IsAdmin
}

func (ac *AdminController) fail(err error) {
	if IsUnauthenticated(err) {
		ac.session.Invalidate()
		return
	}
	if apiErr, ok := err.(*APIError); ok {
		ac.notifier.Error(apiErr.Display(ac.msgs))
		return
	}
	ac.notifier.Error(ac.msgs.Resolve(messages.NetworkError))
}
