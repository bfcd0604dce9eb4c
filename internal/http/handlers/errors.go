package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "assettrack/internal/log"
	"assettrack/internal/services"
)

const msgInternal = "Something went wrong. Please try again."

// StatusFor maps service error kinds onto HTTP status codes.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict
	case errors.As(err, &fe):
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func publicMessage(err error, status int) string {
	var fe *fiber.Error
	switch {
	case status >= fiber.StatusInternalServerError:
		return msgInternal
	case errors.Is(err, services.ErrConflict):
		return "The record already exists or was changed by someone else. Please retry."
	case errors.As(err, &fe):
		return fe.Message
	}
	return err.Error()
}

// ErrorHandler is the app-wide fiber error handler. It logs the failure once
// and answers with JSON under /api/ and the error page elsewhere.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	c.Status(status)
	if status >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
	} else {
		applog.Info(c, "request.rejected", map[string]any{"err": err.Error()})
	}

	msg := publicMessage(err, status)
	if strings.HasPrefix(c.Path(), "/api/") {
		body := fiber.Map{"error": msg}
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			body["fields"] = verr.Fields
		}
		return c.JSON(body)
	}
	if rerr := render(c, "notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.SendString(msg)
	}
	return nil
}
