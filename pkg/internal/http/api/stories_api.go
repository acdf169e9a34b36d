package api

import (
	"git.solsynth.dev/hypernet/murmur/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func (v *controller) createStory(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	var data struct {
		Text string `json:"text" validate:"max=4096"`
		Img  string `json:"img"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	} else if len(data.Text) == 0 && len(data.Img) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "story must have either text or media")
	}

	item, err := v.Stories.CreateStory(c.UserContext(), exts.GetUserID(c), services.StoryInput{
		Text: data.Text,
		Img:  data.Img,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

func (v *controller) listMyStories(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	items, err := v.Stories.GetActiveStoriesByUser(c.UserContext(), exts.GetUserID(c))
	if err != nil {
		return err
	}

	return c.JSON(items)
}

func (v *controller) listFollowingStories(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	items, err := v.Stories.GetFollowingStories(c.UserContext(), exts.GetUserID(c))
	if err != nil {
		return err
	}

	return c.JSON(items)
}

func (v *controller) listUserStories(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	userID, err := idParam(c, "userId")
	if err != nil {
		return err
	}

	items, err := v.Stories.GetActiveStoriesByUser(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(items)
}

func (v *controller) getStory(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	id, err := idParam(c, "storyId")
	if err != nil {
		return err
	}

	item, err := v.Stories.GetStory(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(item)
}

func (v *controller) deleteStory(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	id, err := idParam(c, "storyId")
	if err != nil {
		return err
	}

	if err := v.Stories.DeleteStory(c.UserContext(), id, exts.GetUserID(c)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}
