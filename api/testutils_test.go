package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// testClock advances one second on every reading so stored timestamps are
// distinct and strictly increasing.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStorage(t *testing.T) *storage {
	t.Helper()

	var cfg config
	cfg.DB.DSN = "sqlite:///" + filepath.Join(t.TempDir(), "test.db")
	cfg.DB.MaxOpenConns = 4
	cfg.DB.MaxIdleConns = 4
	cfg.DB.MaxIdleTime = time.Minute

	db, d, err := openDB(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	if err := applyMigrations(db, d); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	st := newStorage(db, d, newTestClock().now)
	st.users.cost = bcrypt.MinCost
	return st
}

func newTestApplication(t *testing.T) *application {
	t.Helper()

	var cfg config
	cfg.Env = "testing"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = time.Hour

	return &application{
		config:  cfg,
		logger:  log.New(io.Discard, "", 0),
		storage: newTestStorage(t),
		tokens:  newTokenIssuer([]byte(cfg.JWT.Secret), cfg.JWT.TTL, time.Now),
	}
}

type testServer struct {
	handler http.Handler
}

func newTestServer(app *application) *testServer {
	return &testServer{handler: composeRoutes(app)}
}

// do sends a request through the full middleware chain. An empty token sends no
// Authorization header.
func (ts *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) registerAndLogin(t *testing.T, email, password string) string {
	t.Helper()
	creds := `{"email":"` + email + `","password":"` + password + `"}`
	if rr := ts.do(t, http.MethodPost, "/auth/register", "", creds); rr.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rr.Code, rr.Body)
	}
	rr := ts.do(t, http.MethodPost, "/auth/login", "", creds)
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rr.Code, rr.Body)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, rr, &out)
	if out.AccessToken == "" {
		t.Fatalf("login %s: empty access token", email)
	}
	return out.AccessToken
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rr, &out)
	return out.Error
}

type taskJSON struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	IsDone      bool    `json:"is_done"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func strPtr(s string) *string {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}

// kindOf returns the kind of the first appError in err's chain, or zero.
func kindOf(err error) errorKind {
	var appErr *appError
	if errors.As(err, &appErr) {
		return appErr.kind
	}
	return 0
}
