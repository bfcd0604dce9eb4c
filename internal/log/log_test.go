package log_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"assettrack/internal/domain"
	applog "assettrack/internal/log"
)

type line struct {
	Level  string         `json:"level"`
	Kind   string         `json:"kind"`
	Action string         `json:"action"`
	ReqID  string         `json:"req_id"`
	UserID string         `json:"user_id"`
	Path   string         `json:"path"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

func TestEventsCarryRequestContext(t *testing.T) {
	var buf bytes.Buffer
	old := applog.Logger().Out
	applog.SetOutput(&buf)
	t.Cleanup(func() { applog.SetOutput(old) })

	app := fiber.New()
	app.Use(requestid.New())
	app.Get("/audits/:id", func(c *fiber.Ctx) error {
		c.Locals("user", &domain.User{ID: "u-auditor"})
		applog.Audit(c, "audit.start", map[string]any{"audit_id": c.Params("id")})
		applog.Error(c, "audit.start.fail", errors.New("boom"), nil)
		return c.SendStatus(fiber.StatusNoContent)
	})
	if _, err := app.Test(httptest.NewRequest("GET", "/audits/a1", nil)); err != nil {
		t.Fatal(err)
	}

	var got []line
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var l line
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			t.Fatalf("not json: %q", raw)
		}
		got = append(got, l)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 lines, got %d", len(got))
	}
	if got[0].Action != "audit.start" || got[0].Kind != "audit" || got[0].Level != "info" {
		t.Fatalf("unexpected first line %+v", got[0])
	}
	if got[0].ReqID == "" || got[0].UserID != "u-auditor" || got[0].Path != "/audits/a1" {
		t.Fatalf("request context missing: %+v", got[0])
	}
	if got[0].Fields["audit_id"] != "a1" {
		t.Fatalf("fields missing: %+v", got[0].Fields)
	}
	if got[1].Level != "error" || got[1].Err != "boom" {
		t.Fatalf("unexpected error line %+v", got[1])
	}
}
