package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"assettrack/internal/log"
	"assettrack/internal/services"
	"assettrack/internal/validate"
)

type AuthHandler struct {
	Auth *services.AuthService
	// SecureCookie marks the session cookie HTTPS-only.
	SecureCookie bool
}

func (h *AuthHandler) sessionCookie(value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     "sid",
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.SecureCookie,
		Expires:  expires,
	}
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": ""})
}

func (h *AuthHandler) loginFailed(c *fiber.Ctx, email, reason string) error {
	log.Security(c.Status(fiber.StatusUnauthorized), "auth.login.fail", map[string]any{"email": email, "reason": reason})
	return render(c, "login", fiber.Map{"Err": "Invalid email or password", "Email": email})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	email, ok := validate.Email(c.FormValue("email"))
	if !ok {
		return h.loginFailed(c, c.FormValue("email"), "bad_format")
	}
	pass := c.FormValue("password")
	if !validate.Password(pass) {
		return h.loginFailed(c, email, "bad_password_format")
	}

	// rotate the session id on login
	sid := uuid.NewString()
	if _, err := h.Auth.Login(c.UserContext(), sid, email, pass); err != nil {
		return h.loginFailed(c, email, "bad_credentials")
	}
	c.Cookie(h.sessionCookie(sid, time.Time{}))

	log.Audit(c, "auth.login.success", map[string]any{"email": email})
	return c.Redirect("/audits")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sid := c.Cookies("sid"); sid != "" {
		if err := h.Auth.Logout(c.UserContext(), sid); err != nil {
			return err
		}
	}
	c.Cookie(h.sessionCookie("", time.Now().Add(-time.Hour)))
	log.Audit(c, "auth.logout", nil)
	return c.Redirect("/login")
}
