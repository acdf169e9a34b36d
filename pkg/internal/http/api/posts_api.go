package api

import (
	"git.solsynth.dev/hypernet/murmur/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func (v *controller) listAllPosts(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	items, err := v.Feeds.GetAllPosts(c.UserContext(), paginationOf(c))
	if err != nil {
		return err
	}

	return c.JSON(items)
}

func (v *controller) listFollowingPosts(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	items, err := v.Feeds.GetFollowingFeed(c.UserContext(), exts.GetUserID(c), paginationOf(c))
	if err != nil {
		return err
	}

	return c.JSON(items)
}

func (v *controller) listLikedPosts(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	userID, err := idParam(c, "userId")
	if err != nil {
		return err
	}

	items, err := v.Feeds.GetLikedPosts(c.UserContext(), userID, paginationOf(c))
	if err != nil {
		return err
	}

	return c.JSON(items)
}

func (v *controller) listUserPosts(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	items, err := v.Feeds.GetUserFeed(c.UserContext(), c.Params("username"), paginationOf(c))
	if err != nil {
		return err
	}

	return c.JSON(items)
}

func (v *controller) listBookmarkedPosts(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	items, err := v.Feeds.GetBookmarkedPosts(c.UserContext(), exts.GetUserID(c), paginationOf(c))
	if err != nil {
		return err
	}

	return c.JSON(items)
}

func (v *controller) getPost(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	id, err := idParam(c, "postId")
	if err != nil {
		return err
	}

	item, err := v.Feeds.GetPost(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(item)
}

func (v *controller) createPost(c *fiber.Ctx) error {
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
		return fiber.NewError(fiber.StatusBadRequest, "post must have either text or image")
	}

	item, err := v.Feeds.CreatePost(c.UserContext(), exts.GetUserID(c), services.PostInput{
		Text: data.Text,
		Img:  data.Img,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

func (v *controller) likeUnlikePost(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	id, err := idParam(c, "postId")
	if err != nil {
		return err
	}

	likes, liked, err := v.Engagement.LikeUnlike(c.UserContext(), id, exts.GetUserID(c))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"liked": liked,
		"likes": likes,
	})
}

func (v *controller) commentOnPost(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	id, err := idParam(c, "postId")
	if err != nil {
		return err
	}

	var data struct {
		Text string `json:"text" validate:"required,max=4096"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	item, err := v.Engagement.Comment(c.UserContext(), id, exts.GetUserID(c), data.Text)
	if err != nil {
		return err
	}

	return c.JSON(item)
}

func (v *controller) repostPost(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	id, err := idParam(c, "postId")
	if err != nil {
		return err
	}

	item, created, err := v.Feeds.RepostPost(c.UserContext(), id, exts.GetUserID(c))
	if err != nil {
		return err
	}
	if !created {
		return c.JSON(fiber.Map{"reposted": false})
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

func (v *controller) bookmarkPost(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	id, err := idParam(c, "postId")
	if err != nil {
		return err
	}

	bookmarked, err := v.Feeds.BookmarkToggle(c.UserContext(), id, exts.GetUserID(c))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"bookmarked": bookmarked})
}

func (v *controller) deletePost(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	id, err := idParam(c, "postId")
	if err != nil {
		return err
	}

	if err := v.Feeds.DeletePost(c.UserContext(), id, exts.GetUserID(c)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}
