package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"assettrack/internal/config"
	"assettrack/internal/http/handlers"
	"assettrack/internal/repos"
)

const (
	auditorEmail = "auditor@assettrack.test"
	adminEmail   = "admin@assettrack.test"
	password     = "Passw0rd!"
)

type testEnv struct {
	app  *fiber.App
	deps *handlers.Deps
	db   *sqlx.DB
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.DBDSN = ":memory:"
	cfg.TemplatesDir = "../../web/templates"
	cfg.StaticDir = "../../web/static"
	return cfg
}

// newEnv builds the full app over a seeded in-memory store with a clock that
// advances one second per reading.
func newEnv(t *testing.T, opts handlers.AppOptions) *testEnv {
	t.Helper()
	cfg := testConfig()
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := repos.SeedDemo(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var n atomic.Int64
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return start.Add(time.Duration(n.Add(1)) * time.Second) }

	if opts.LoginMax == 0 {
		opts.LoginMax = 100
	}
	deps := handlers.NewDeps(db, cfg, clock)
	return &testEnv{app: handlers.NewApp(deps, opts), deps: deps, db: db}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	return resp
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

type session struct {
	sid  string
	csrf string
}

func (s session) attach(req *http.Request) {
	if s.sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: s.sid})
	}
	if s.csrf != "" {
		req.AddCookie(&http.Cookie{Name: "csrf_", Value: s.csrf})
	}
}

func (e *testEnv) csrfToken(t *testing.T) string {
	t.Helper()
	resp := e.do(t, httptest.NewRequest("GET", "/login", nil))
	tok := cookieValue(resp, "csrf_")
	if tok == "" {
		t.Fatal("csrf token missing")
	}
	return tok
}

func (e *testEnv) postLogin(t *testing.T, csrf, email, pass string) *http.Response {
	t.Helper()
	form := url.Values{"csrf": {csrf}, "email": {email}, "password": {pass}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: csrf})
	return e.do(t, req)
}

func (e *testEnv) login(t *testing.T, email string) session {
	t.Helper()
	tok := e.csrfToken(t)
	resp := e.postLogin(t, tok, email, password)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	sid := cookieValue(resp, "sid")
	if sid == "" {
		t.Fatalf("login %s: no session cookie", email)
	}
	return session{sid: sid, csrf: tok}
}

func (e *testEnv) postForm(t *testing.T, s session, path string, form url.Values) *http.Response {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if s.csrf != "" {
		form.Set("csrf", s.csrf)
	}
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.attach(req)
	return e.do(t, req)
}

func (e *testEnv) get(t *testing.T, s session, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	s.attach(req)
	return e.do(t, req)
}

func (e *testEnv) postJSON(t *testing.T, s session, path string, body any) *http.Response {
	t.Helper()
	return e.sendJSON(t, s, "POST", path, body)
}

func (e *testEnv) sendJSON(t *testing.T, s session, method, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	s.attach(req)
	return e.do(t, req)
}

func (e *testEnv) del(t *testing.T, s session, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("DELETE", path, nil)
	s.attach(req)
	return e.do(t, req)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status %d, want %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want)
	}
}
