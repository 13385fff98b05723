package controllers

import (
	"github.com/gofiber/fiber/v2"

	"betline/helpers"
	"betline/middlewares"
	"betline/services"
)

type NotificationController struct {
	Notifications *services.NotificationService
}

func (ct *NotificationController) List(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	unreadOnly := c.QueryBool("unread", false)
	items, err := ct.Notifications.List(account.ID, unreadOnly)
	if err != nil {
		return fail(c, err)
	}

	unread, err := ct.Notifications.UnreadCount(account.ID)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Notifications", fiber.Map{
		"unread": unread,
		"items":  items,
	})
}

func (ct *NotificationController) MarkRead(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return helpers.JSONError(c, "INVALID_NOTIFICATION_ID")
	}

	if err := ct.Notifications.MarkRead(account.ID, uint(id)); err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Notification read", nil)
}

func (ct *NotificationController) Delete(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return helpers.JSONError(c, "INVALID_NOTIFICATION_ID")
	}

	if err := ct.Notifications.Delete(account.ID, uint(id)); err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Notification deleted", nil)
}
