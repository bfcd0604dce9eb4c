package handlers_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"assettrack/internal/http/handlers"
	applog "assettrack/internal/log"
)

type logEntry struct {
	Level  string         `json:"level"`
	Kind   string         `json:"kind"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Fields map[string]any `json:"fields"`
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// captureLogs redirects the event logger while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var lb lockedBuffer
	old := applog.Logger().Out
	applog.SetOutput(&lb)
	defer applog.SetOutput(old)

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(lb.buf.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findAction(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}

func TestAuthLogging(t *testing.T) {
	env := newEnv(t, handlers.AppOptions{})
	tok := env.csrfToken(t)

	fail := captureLogs(t, func() { env.postLogin(t, tok, auditorEmail, "badpass!") })
	e, ok := findAction(fail, "auth.login.fail")
	if !ok || e.Kind != "security" || e.Level != "warning" {
		t.Fatalf("auth.login.fail entry = %+v (found %v)", e, ok)
	}
	if e.Fields["email"] != auditorEmail {
		t.Fatalf("fail entry fields = %+v", e.Fields)
	}

	ok2 := captureLogs(t, func() { env.postLogin(t, tok, auditorEmail, password) })
	if _, ok := findAction(ok2, "auth.login.success"); !ok {
		t.Fatal("auth.login.success not logged")
	}
}

func TestAuditEventsLogged(t *testing.T) {
	env := newEnv(t, handlers.AppOptions{})
	s := env.login(t, auditorEmail)
	env.postJSON(t, s, "/api/v1/audits", map[string]any{"id": "log-1", "title": "Logged"})

	entries := captureLogs(t, func() {
		env.postJSON(t, s, "/api/v1/audits/log-1/scan", map[string]any{"code": "LT-001"})
		env.postJSON(t, s, "/api/v1/audits/log-1/finalize", nil)
	})

	scan, ok := findAction(entries, "audit.scan")
	if !ok || scan.Kind != "audit" || scan.UserID != "u-auditor" {
		t.Fatalf("audit.scan entry = %+v (found %v)", scan, ok)
	}
	if scan.Fields["audit_id"] != "log-1" || scan.Fields["asset_id"] != "lt-001" {
		t.Fatalf("audit.scan fields = %+v", scan.Fields)
	}
	rejected, ok := findAction(entries, "request.rejected")
	if !ok || rejected.Fields["err"] == nil {
		t.Fatalf("rejected finalize not logged: %+v", entries)
	}
}

func TestCheckoutAndTicketEventsLogged(t *testing.T) {
	env := newEnv(t, handlers.AppOptions{})
	s := env.login(t, auditorEmail)

	entries := captureLogs(t, func() {
		env.postJSON(t, s, "/api/v1/assignments", map[string]any{"id": "log-as", "asset": "MN-001"})
		env.postJSON(t, s, "/api/v1/tickets", map[string]any{"id": "log-tk", "asset": "MN-001", "title": "Dead pixel"})
	})

	out, ok := findAction(entries, "assignment.checkout")
	if !ok || out.UserID != "u-auditor" || out.Fields["asset_id"] != "mn-001" {
		t.Fatalf("assignment.checkout entry = %+v (found %v)", out, ok)
	}
	tk, ok := findAction(entries, "ticket.open")
	if !ok || tk.Fields["ticket_id"] != "log-tk" {
		t.Fatalf("ticket.open entry = %+v (found %v)", tk, ok)
	}
}
