package handlers

import (
	"github.com/bidnbuy/backend/middleware"
	"github.com/bidnbuy/backend/utils"
	"github.com/gofiber/fiber/v2"
)

// MyNotifications returns the caller's notifications, newest first.
func (a *WebApp) MyNotifications(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	unreadOnly := c.QueryBool("unread", false)

	notifications, err := a.Notifications.ListByUser(c.Context(), user.ID, unreadOnly)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, toNotificationResponses(notifications), "")
}

// MarkNotificationRead marks one of the caller's notifications as read.
func (a *WebApp) MarkNotificationRead(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return utils.SendBadRequest(c, "Invalid notification id", nil)
	}

	ok, err := a.Notifications.MarkRead(c.Context(), user.ID, int64(id))
	if err != nil {
		return err
	}
	if !ok {
		return utils.SendNotFound(c, "Notification not found")
	}
	return utils.SendNoContent(c)
}

// MarkAllNotificationsRead marks every unread notification as read.
func (a *WebApp) MarkAllNotificationsRead(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	if err := a.Notifications.MarkAllRead(c.Context(), user.ID); err != nil {
		return err
	}
	return utils.SendNoContent(c)
}
