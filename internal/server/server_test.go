package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bachecahq/bacheca/internal/messages"
	"github.com/bachecahq/bacheca/internal/model"
	"github.com/bachecahq/bacheca/internal/service"
	"github.com/bachecahq/bacheca/internal/store"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const testPassword = "supersecretpassword"

// testEnv holds all the shared state for integration tests.
type testEnv struct {
	server  *Server
	store   *store.Store
	authSvc *service.AuthService
}

// newTestEnv creates a fresh test environment with an in-memory store, the
// default admin account, and a fully wired Server.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.Open("sqlite", "") // in-memory SQLite
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	authSvc := service.NewAuthService(st, time.Hour)
	if _, err := authSvc.EnsureDefaultAdmin(context.Background()); err != nil {
		t.Fatalf("EnsureDefaultAdmin: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(DefaultConfig(), st, authSvc, messages.Default(), logger)

	return &testEnv{server: srv, store: st, authSvc: authSvc}
}

// seedUser creates a regular account with the shared test password.
func (e *testEnv) seedUser(t *testing.T, username string) *model.User {
	t.Helper()
	user, err := e.authSvc.CreateUser(context.Background(), username, testPassword, false)
	if err != nil {
		t.Fatalf("seedUser %q: %v", username, err)
	}
	return user
}

// login authenticates and returns the value of the session cookie.
func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	body := jsonBody(t, map[string]string{"username": username, "password": password})
	rr := e.do(t, "POST", "/api/auth/login", body, "")
	assertStatus(t, rr, http.StatusOK)

	cookie := sessionCookie(rr)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("login: no session cookie set")
	}
	return cookie.Value
}

// adminSession logs in as the seeded default admin.
func (e *testEnv) adminSession(t *testing.T) string {
	t.Helper()
	return e.login(t, "admin", "admin")
}

// do executes an HTTP request against the test server. A non-empty session
// is sent as the session cookie.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, session string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: "session_id", Value: session})
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	return nil
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("jsonBody: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

// createPost publishes a post as the given session and returns its id.
func (e *testEnv) createPost(t *testing.T, session, content string) string {
	t.Helper()
	rr := e.do(t, "POST", "/api/posts", jsonBody(t, map[string]string{"content": content}), session)
	assertStatus(t, rr, http.StatusCreated)

	var post model.Post
	decodeJSON(t, rr, &post)
	if post.ID == "" {
		t.Fatal("createPost: empty post id")
	}
	return post.ID
}

// ---------------------------------------------------------------------------
// Health checks
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/healthz", nil, "")
	assertStatus(t, rr, http.StatusOK)

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/readyz", nil, "")
	assertStatus(t, rr, http.StatusOK)

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
}

// ---------------------------------------------------------------------------
// Login / logout / me
// ---------------------------------------------------------------------------

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "mario")

	body := jsonBody(t, map[string]string{"username": "mario", "password": testPassword})
	rr := env.do(t, "POST", "/api/auth/login", body, "")
	assertStatus(t, rr, http.StatusOK)

	var identity model.Identity
	decodeJSON(t, rr, &identity)
	if identity.ID != user.ID {
		t.Errorf("id = %q, want %q", identity.ID, user.ID)
	}
	if identity.Username != "mario" {
		t.Errorf("username = %q, want mario", identity.Username)
	}
	if identity.IsAdmin {
		t.Error("is_admin = true, want false")
	}

	cookie := sessionCookie(rr)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if cookie.Path != "/" {
		t.Errorf("cookie path = %q, want /", cookie.Path)
	}
	if cookie.MaxAge <= 0 {
		t.Errorf("cookie max-age = %d, want > 0", cookie.MaxAge)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")

	body := jsonBody(t, map[string]string{"username": "mario", "password": "wrongpassword"})
	rr := env.do(t, "POST", "/api/auth/login", body, "")
	assertStatus(t, rr, http.StatusUnauthorized)

	var errResp model.ErrorResponse
	decodeJSON(t, rr, &errResp)
	if errResp.Error.Message != "Credenziali non valide" {
		t.Errorf("message = %q, want %q", errResp.Error.Message, "Credenziali non valide")
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	body := jsonBody(t, map[string]string{"username": "nobody", "password": testPassword})
	rr := env.do(t, "POST", "/api/auth/login", body, "")
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")

	rr := env.do(t, "POST", "/api/auth/login", jsonBody(t, map[string]string{"username": "mario"}), "")
	assertStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, "POST", "/api/auth/login", jsonBody(t, map[string]string{"password": testPassword}), "")
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestLogin_InvalidJSONBody(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/auth/login", bytes.NewBufferString("{invalid json"), "")
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	rr := env.do(t, "GET", "/api/auth/me", nil, session)
	assertStatus(t, rr, http.StatusOK)

	var identity model.Identity
	decodeJSON(t, rr, &identity)
	if identity.ID != user.ID {
		t.Errorf("id = %q, want %q", identity.ID, user.ID)
	}
}

func TestMe_NoSession(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/auth/me", nil, "")
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestMe_BogusSession(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/auth/me", nil, "not-a-real-session-token")
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	rr := env.do(t, "POST", "/api/auth/logout", nil, session)
	assertStatus(t, rr, http.StatusOK)

	var resp model.MessageResponse
	decodeJSON(t, rr, &resp)
	if resp.Message != "Logout effettuato con successo" {
		t.Errorf("message = %q", resp.Message)
	}

	cookie := sessionCookie(rr)
	if cookie == nil {
		t.Fatal("expected the session cookie to be cleared")
	}
	if cookie.MaxAge >= 0 {
		t.Errorf("cookie max-age = %d, want < 0", cookie.MaxAge)
	}

	// The server-side session is gone too.
	rr = env.do(t, "GET", "/api/auth/me", nil, session)
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestLogout_WithoutSession(t *testing.T) {
	env := newTestEnv(t)

	// Logout never fails, even with nothing to log out of.
	rr := env.do(t, "POST", "/api/auth/logout", nil, "")
	assertStatus(t, rr, http.StatusOK)
}

func TestExpiredSession(t *testing.T) {
	st, err := store.Open("sqlite", "")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	// A TTL in the past makes every session expired on arrival.
	authSvc := service.NewAuthService(st, -time.Minute)
	if _, err := authSvc.EnsureDefaultAdmin(context.Background()); err != nil {
		t.Fatalf("EnsureDefaultAdmin: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		server:  New(DefaultConfig(), st, authSvc, messages.Default(), logger),
		store:   st,
		authSvc: authSvc,
	}

	body := jsonBody(t, map[string]string{"username": "admin", "password": "admin"})
	rr := env.do(t, "POST", "/api/auth/login", body, "")
	assertStatus(t, rr, http.StatusOK)
	session := sessionCookie(rr).Value

	rr = env.do(t, "GET", "/api/auth/me", nil, session)
	assertStatus(t, rr, http.StatusUnauthorized)
}

// ---------------------------------------------------------------------------
// Posts
// ---------------------------------------------------------------------------

func TestPosts_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/posts"},
		{"POST", "/api/posts"},
		{"GET", "/api/posts/search?q=ciao"},
		{"GET", "/api/posts/user/some-id"},
		{"DELETE", "/api/posts/some-id"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			var body io.Reader
			if ep.method == "POST" {
				body = jsonBody(t, map[string]string{})
			}
			rr := env.do(t, ep.method, ep.path, body, "")
			assertStatus(t, rr, http.StatusUnauthorized)
		})
	}
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	rr := env.do(t, "POST", "/api/posts", jsonBody(t, map[string]string{"content": "primo post"}), session)
	assertStatus(t, rr, http.StatusCreated)

	var post model.Post
	decodeJSON(t, rr, &post)
	if post.ID == "" {
		t.Error("expected non-empty post id")
	}
	if post.AuthorID != user.ID {
		t.Errorf("author_id = %q, want %q", post.AuthorID, user.ID)
	}
	if post.AuthorName != "mario" {
		t.Errorf("author_name = %q, want mario", post.AuthorName)
	}
	if post.Content != "primo post" {
		t.Errorf("content = %q, want %q", post.Content, "primo post")
	}
	if post.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestCreatePost_EmptyContent(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	for _, content := range []string{"", "   ", "\n\t"} {
		rr := env.do(t, "POST", "/api/posts", jsonBody(t, map[string]string{"content": content}), session)
		assertStatus(t, rr, http.StatusBadRequest)
	}
}

func TestListPosts_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	env.createPost(t, session, "vecchio")
	time.Sleep(5 * time.Millisecond) // distinct created_at
	env.createPost(t, session, "nuovo")

	rr := env.do(t, "GET", "/api/posts", nil, session)
	assertStatus(t, rr, http.StatusOK)

	var posts []model.Post
	decodeJSON(t, rr, &posts)
	if len(posts) != 2 {
		t.Fatalf("post count = %d, want 2", len(posts))
	}
	if posts[0].Content != "nuovo" || posts[1].Content != "vecchio" {
		t.Errorf("order = [%q, %q], want newest first", posts[0].Content, posts[1].Content)
	}
}

func TestListPosts_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	rr := env.do(t, "GET", "/api/posts", nil, session)
	assertStatus(t, rr, http.StatusOK)

	body := bytes.TrimSpace(rr.Body.Bytes())
	if !bytes.Equal(body, []byte("[]")) {
		t.Errorf("empty list body = %s, want []", body)
	}
}

func TestSearchPosts(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	env.createPost(t, session, "La pizza napoletana")
	env.createPost(t, session, "Il calcio italiano")

	rr := env.do(t, "GET", "/api/posts/search?q=pizza", nil, session)
	assertStatus(t, rr, http.StatusOK)

	var posts []model.Post
	decodeJSON(t, rr, &posts)
	if len(posts) != 1 {
		t.Fatalf("match count = %d, want 1", len(posts))
	}
	if posts[0].Content != "La pizza napoletana" {
		t.Errorf("match = %q", posts[0].Content)
	}
}

func TestSearchPosts_CaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	env.createPost(t, session, "La PIZZA napoletana")

	rr := env.do(t, "GET", "/api/posts/search?q=pizza", nil, session)
	assertStatus(t, rr, http.StatusOK)

	var posts []model.Post
	decodeJSON(t, rr, &posts)
	if len(posts) != 1 {
		t.Errorf("match count = %d, want 1", len(posts))
	}
}

func TestSearchPosts_BlankQueryReturnsAll(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	env.createPost(t, session, "uno")
	env.createPost(t, session, "due")

	rr := env.do(t, "GET", "/api/posts/search?q=", nil, session)
	assertStatus(t, rr, http.StatusOK)

	var posts []model.Post
	decodeJSON(t, rr, &posts)
	if len(posts) != 2 {
		t.Errorf("count = %d, want 2", len(posts))
	}
}

func TestSearchPosts_NoMatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	env.createPost(t, session, "qualcosa")

	rr := env.do(t, "GET", "/api/posts/search?q=inesistente", nil, session)
	assertStatus(t, rr, http.StatusOK)

	var posts []model.Post
	decodeJSON(t, rr, &posts)
	if len(posts) != 0 {
		t.Errorf("count = %d, want 0", len(posts))
	}
}

func TestSearchPosts_LikeWildcardsAreLiteral(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	env.createPost(t, session, "sconto del 100% oggi")
	env.createPost(t, session, "nessuna percentuale")

	rr := env.do(t, "GET", "/api/posts/search?q=100%25", nil, session)
	assertStatus(t, rr, http.StatusOK)

	var posts []model.Post
	decodeJSON(t, rr, &posts)
	if len(posts) != 1 {
		t.Fatalf("match count = %d, want 1 (%% must not act as a wildcard)", len(posts))
	}
	if posts[0].Content != "sconto del 100% oggi" {
		t.Errorf("match = %q", posts[0].Content)
	}
}

func TestPostsByUser(t *testing.T) {
	env := newTestEnv(t)
	mario := env.seedUser(t, "mario")
	env.seedUser(t, "luigi")
	marioSession := env.login(t, "mario", testPassword)
	luigiSession := env.login(t, "luigi", testPassword)

	env.createPost(t, marioSession, "di mario")
	env.createPost(t, luigiSession, "di luigi")

	rr := env.do(t, "GET", "/api/posts/user/"+mario.ID, nil, luigiSession)
	assertStatus(t, rr, http.StatusOK)

	var posts []model.Post
	decodeJSON(t, rr, &posts)
	if len(posts) != 1 {
		t.Fatalf("count = %d, want 1", len(posts))
	}
	if posts[0].AuthorName != "mario" {
		t.Errorf("author_name = %q, want mario", posts[0].AuthorName)
	}
}

func TestPostsByUser_UnknownIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	rr := env.do(t, "GET", "/api/posts/user/no-such-user", nil, session)
	assertStatus(t, rr, http.StatusOK)

	var posts []model.Post
	decodeJSON(t, rr, &posts)
	if len(posts) != 0 {
		t.Errorf("count = %d, want 0", len(posts))
	}
}

func TestDeletePost_Author(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)
	postID := env.createPost(t, session, "da cancellare")

	rr := env.do(t, "DELETE", "/api/posts/"+postID, nil, session)
	assertStatus(t, rr, http.StatusOK)

	var resp model.MessageResponse
	decodeJSON(t, rr, &resp)
	if resp.Message != "Post eliminato con successo" {
		t.Errorf("message = %q", resp.Message)
	}

	rr = env.do(t, "DELETE", "/api/posts/"+postID, nil, session)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestDeletePost_NotOwner(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	env.seedUser(t, "luigi")
	marioSession := env.login(t, "mario", testPassword)
	luigiSession := env.login(t, "luigi", testPassword)

	postID := env.createPost(t, marioSession, "di mario")

	rr := env.do(t, "DELETE", "/api/posts/"+postID, nil, luigiSession)
	assertStatus(t, rr, http.StatusForbidden)

	var errResp model.ErrorResponse
	decodeJSON(t, rr, &errResp)
	if errResp.Error.Message != "Accesso negato" {
		t.Errorf("message = %q, want %q", errResp.Error.Message, "Accesso negato")
	}
}

func TestDeletePost_AdminOverridesOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	marioSession := env.login(t, "mario", testPassword)
	adminSession := env.adminSession(t)

	postID := env.createPost(t, marioSession, "da moderare")

	rr := env.do(t, "DELETE", "/api/posts/"+postID, nil, adminSession)
	assertStatus(t, rr, http.StatusOK)
}

func TestDeletePost_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	rr := env.do(t, "DELETE", "/api/posts/no-such-post", nil, session)
	assertStatus(t, rr, http.StatusNotFound)
}

// ---------------------------------------------------------------------------
// User management
// ---------------------------------------------------------------------------

func TestUsers_NonAdminForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "mario")
	session := env.login(t, "mario", testPassword)

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/users"},
		{"POST", "/api/users"},
		{"DELETE", "/api/users/some-id"},
		{"PUT", "/api/users/some-id/password"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			var body io.Reader
			if ep.method == "POST" || ep.method == "PUT" {
				body = jsonBody(t, map[string]string{})
			}
			rr := env.do(t, ep.method, ep.path, body, session)
			assertStatus(t, rr, http.StatusForbidden)
		})
	}
}

func TestUserCRUD(t *testing.T) {
	env := newTestEnv(t)
	session := env.adminSession(t)

	// --- Create ---
	body := jsonBody(t, map[string]string{"username": "mario", "password": testPassword})
	rr := env.do(t, "POST", "/api/users", body, session)
	assertStatus(t, rr, http.StatusCreated)

	var created model.User
	decodeJSON(t, rr, &created)
	if created.Username != "mario" {
		t.Errorf("username = %q, want mario", created.Username)
	}
	if created.IsAdmin {
		t.Error("is_admin = true, want false")
	}

	// --- List (admin + mario) ---
	rr = env.do(t, "GET", "/api/users", nil, session)
	assertStatus(t, rr, http.StatusOK)

	var users []model.User
	decodeJSON(t, rr, &users)
	if len(users) != 2 {
		t.Fatalf("user count = %d, want 2", len(users))
	}

	// --- New user can log in ---
	env.login(t, "mario", testPassword)

	// --- Delete ---
	rr = env.do(t, "DELETE", "/api/users/"+created.ID, nil, session)
	assertStatus(t, rr, http.StatusOK)

	rr = env.do(t, "DELETE", "/api/users/"+created.ID, nil, session)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestCreateUser_DoesNotLeakHash(t *testing.T) {
	env := newTestEnv(t)
	session := env.adminSession(t)

	body := jsonBody(t, map[string]string{"username": "mario", "password": testPassword})
	rr := env.do(t, "POST", "/api/users", body, session)
	assertStatus(t, rr, http.StatusCreated)

	var raw map[string]interface{}
	decodeJSON(t, rr, &raw)
	if _, ok := raw["password_hash"]; ok {
		t.Error("response must not contain password_hash")
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	session := env.adminSession(t)

	body := jsonBody(t, map[string]string{"username": "mario", "password": testPassword})
	rr := env.do(t, "POST", "/api/users", body, session)
	assertStatus(t, rr, http.StatusCreated)

	body = jsonBody(t, map[string]string{"username": "mario", "password": "altrapassword"})
	rr = env.do(t, "POST", "/api/users", body, session)
	assertStatus(t, rr, http.StatusConflict)

	var errResp model.ErrorResponse
	decodeJSON(t, rr, &errResp)
	if errResp.Error.Message != "Nome utente già esistente" {
		t.Errorf("message = %q", errResp.Error.Message)
	}
}

func TestCreateUser_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	session := env.adminSession(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing password", map[string]string{"username": "mario"}},
		{"missing username", map[string]string{"password": testPassword}},
		{"blank username", map[string]string{"username": "   ", "password": testPassword}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "POST", "/api/users", jsonBody(t, tt.body), session)
			assertStatus(t, rr, http.StatusBadRequest)
		})
	}
}

func TestDeleteUser_CascadesPostsAndSessions(t *testing.T) {
	env := newTestEnv(t)
	mario := env.seedUser(t, "mario")
	marioSession := env.login(t, "mario", testPassword)
	adminSession := env.adminSession(t)

	env.createPost(t, marioSession, "sparirà")

	rr := env.do(t, "DELETE", "/api/users/"+mario.ID, nil, adminSession)
	assertStatus(t, rr, http.StatusOK)

	// The user's posts are gone.
	rr = env.do(t, "GET", "/api/posts", nil, adminSession)
	assertStatus(t, rr, http.StatusOK)
	var posts []model.Post
	decodeJSON(t, rr, &posts)
	if len(posts) != 0 {
		t.Errorf("post count after delete = %d, want 0", len(posts))
	}

	// And so is the session.
	rr = env.do(t, "GET", "/api/auth/me", nil, marioSession)
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestDeleteUser_AdminAccountProtected(t *testing.T) {
	env := newTestEnv(t)
	session := env.adminSession(t)

	admin, err := env.store.GetUserByUsername(context.Background(), "admin")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}

	rr := env.do(t, "DELETE", "/api/users/"+admin.ID, nil, session)
	assertStatus(t, rr, http.StatusBadRequest)

	var errResp model.ErrorResponse
	decodeJSON(t, rr, &errResp)
	if errResp.Error.Message != "Impossibile eliminare l'utente admin" {
		t.Errorf("message = %q", errResp.Error.Message)
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	env := newTestEnv(t)
	session := env.adminSession(t)

	rr := env.do(t, "DELETE", "/api/users/no-such-user", nil, session)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	mario := env.seedUser(t, "mario")
	marioSession := env.login(t, "mario", testPassword)
	adminSession := env.adminSession(t)

	body := jsonBody(t, map[string]string{"new_password": "nuovapassword"})
	rr := env.do(t, "PUT", "/api/users/"+mario.ID+"/password", body, adminSession)
	assertStatus(t, rr, http.StatusOK)

	var resp model.MessageResponse
	decodeJSON(t, rr, &resp)
	if resp.Message != "Password aggiornata con successo" {
		t.Errorf("message = %q", resp.Message)
	}

	// Existing sessions are revoked.
	rr = env.do(t, "GET", "/api/auth/me", nil, marioSession)
	assertStatus(t, rr, http.StatusUnauthorized)

	// The old password no longer works, the new one does.
	loginBody := jsonBody(t, map[string]string{"username": "mario", "password": testPassword})
	rr = env.do(t, "POST", "/api/auth/login", loginBody, "")
	assertStatus(t, rr, http.StatusUnauthorized)

	env.login(t, "mario", "nuovapassword")
}

func TestChangePassword_NotFound(t *testing.T) {
	env := newTestEnv(t)
	session := env.adminSession(t)

	body := jsonBody(t, map[string]string{"new_password": "nuovapassword"})
	rr := env.do(t, "PUT", "/api/users/no-such-user/password", body, session)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestChangePassword_Blank(t *testing.T) {
	env := newTestEnv(t)
	mario := env.seedUser(t, "mario")
	session := env.adminSession(t)

	body := jsonBody(t, map[string]string{"new_password": ""})
	rr := env.do(t, "PUT", "/api/users/"+mario.ID+"/password", body, session)
	assertStatus(t, rr, http.StatusBadRequest)
}

// ---------------------------------------------------------------------------
// OpenAPI spec endpoint
// ---------------------------------------------------------------------------

func TestOpenAPISpec(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/openapi.json", nil, "")
	assertStatus(t, rr, http.StatusOK)

	var spec map[string]interface{}
	decodeJSON(t, rr, &spec)

	if spec["openapi"] != "3.1.0" {
		t.Errorf("openapi version = %v, want 3.1.0", spec["openapi"])
	}
	info, ok := spec["info"].(map[string]interface{})
	if !ok {
		t.Fatal("expected info to be an object")
	}
	if info["title"] != "Bacheca API" {
		t.Errorf("info.title = %v, want Bacheca API", info["title"])
	}
}

// ---------------------------------------------------------------------------
// Error response format
// ---------------------------------------------------------------------------

func TestErrorResponseFormat(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/posts", nil, "")
	assertStatus(t, rr, http.StatusUnauthorized)

	var errResp struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeJSON(t, rr, &errResp)

	if errResp.Error.Code != 401 {
		t.Errorf("error.code = %d, want 401", errResp.Error.Code)
	}
	if errResp.Error.Message == "" {
		t.Error("expected non-empty error.message")
	}
}

// ---------------------------------------------------------------------------
// CORS
// ---------------------------------------------------------------------------

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("OPTIONS", "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()
	env.server.ServeHTTP(rr, req)

	if rr.Code < 200 || rr.Code >= 300 {
		t.Errorf("CORS preflight status = %d, want 2xx", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("expected Access-Control-Allow-Credentials: true")
	}
}
