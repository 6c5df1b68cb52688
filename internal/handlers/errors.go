package handlers

import (
	"errors"

	"tutorfinder/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Recorder receives directory counters. A nil Recorder records nothing.
type Recorder interface {
	ReviewSubmitted()
	RecordDeleted(recordType string)
}

// respondError maps a service error to its status code and writes {error: message}.
// Backend failures are logged and answered without detail.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, services.ErrValidation):
		status = fiber.StatusBadRequest
		message = publicMessage(err, services.ErrValidation)
	case errors.Is(err, services.ErrConflict):
		status = fiber.StatusConflict
		message = publicMessage(err, services.ErrConflict)
	case errors.Is(err, services.ErrInvalidCredentials):
		status = fiber.StatusUnauthorized
		message = "Invalid credentials"
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
		message = publicMessage(err, services.ErrNotFound)
	case errors.Is(err, services.ErrUnavailable):
		status = fiber.StatusServiceUnavailable
		message = "service unavailable"
	default:
		message = "internal server error"
	}

	if status >= fiber.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// publicMessage strips the sentinel prefix ("validation failed: Missing ID" -> "Missing ID").
func publicMessage(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}
