package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"
)

// NewViews loads the page templates from dir with the helpers they use.
func NewViews(dir string) *html.Engine {
	engine := html.New(dir, ".html")
	engine.AddFunc("deref", func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	})
	engine.AddFunc("stamp", func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04")
	})
	return engine
}

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := c.Locals("user"); u != nil {
		data["User"] = u
	}
	if tok := csrfToken(c); tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

// csrfToken prefers the token the middleware stored; the cookie carries the
// same value when the middleware skipped this request.
func csrfToken(c *fiber.Ctx) string {
	if tok, ok := c.Locals("csrf").(string); ok && tok != "" {
		return tok
	}
	return c.Cookies("csrf_")
}
