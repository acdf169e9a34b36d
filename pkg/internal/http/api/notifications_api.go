package api

import (
	"git.solsynth.dev/hypernet/murmur/pkg/internal/http/exts"
	"github.com/gofiber/fiber/v2"
)

func (v *controller) listNotifications(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	items, err := v.Notifications.List(c.UserContext(), exts.GetUserID(c))
	if err != nil {
		return err
	}

	return c.JSON(items)
}

func (v *controller) countUnreadNotifications(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	count, err := v.Notifications.CountUnread(c.UserContext(), exts.GetUserID(c))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"count": count})
}

func (v *controller) deleteNotifications(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	if err := v.Notifications.DeleteAll(c.UserContext(), exts.GetUserID(c)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}

func (v *controller) deleteNotification(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	id, err := idParam(c, "notificationId")
	if err != nil {
		return err
	}

	if err := v.Notifications.DeleteOne(c.UserContext(), id, exts.GetUserID(c)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}
