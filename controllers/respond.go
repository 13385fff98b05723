// Package controllers translates HTTP requests into service calls and service
// failures into the JSON error envelope. No business rules live here.
package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"betline/helpers"
	"betline/services"
)

// fail maps the service error taxonomy onto HTTP statuses. Unknown errors are
// logged and surface as a generic 500; no internals leak to the client.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrLimitExceeded),
		errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrValidation):
		return helpers.JSONErrorStatus(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrExternalService):
		return helpers.JSONErrorStatus(c, fiber.StatusBadGateway, err.Error())
	default:
		logrus.WithError(err).WithField("path", c.Path()).Error("unhandled service error")
		return helpers.JSONErrorStatus(c, fiber.StatusInternalServerError, "INTERNAL_ERROR")
	}
}
