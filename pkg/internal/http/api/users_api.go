package api

import (
	"git.solsynth.dev/hypernet/murmur/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func (v *controller) getUserProfile(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	user, err := v.Accounts.GetUserByName(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}

	return c.JSON(user)
}

func (v *controller) listSuggestedUsers(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	users, err := v.Graph.SuggestedUsers(c.UserContext(), exts.GetUserID(c), c.QueryInt("take", 0))
	if err != nil {
		return err
	}

	return c.JSON(users)
}

func (v *controller) listFollowingUsers(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	users, err := v.Graph.ListFollowing(c.UserContext(), exts.GetUserID(c))
	if err != nil {
		return err
	}

	return c.JSON(users)
}

func (v *controller) searchUsers(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	probe := c.Query("q")
	if len(probe) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "q is required")
	}

	users, err := v.Accounts.SearchUsers(c.UserContext(), probe, paginationOf(c))
	if err != nil {
		return err
	}

	return c.JSON(users)
}

func (v *controller) followUnfollowUser(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	target, err := idParam(c, "userId")
	if err != nil {
		return err
	}

	followed, err := v.Graph.FollowUnfollow(c.UserContext(), exts.GetUserID(c), target)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"followed": followed})
}

func (v *controller) updateUser(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	var data struct {
		FullName        string `json:"full_name" validate:"max=256"`
		Email           string `json:"email"`
		Username        string `json:"username" validate:"max=64"`
		Bio             string `json:"bio" validate:"max=4096"`
		Link            string `json:"link" validate:"max=1024"`
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
		ProfileImg      string `json:"profile_img"`
		CoverImg        string `json:"cover_img"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	user, err := v.Accounts.UpdateProfile(c.UserContext(), exts.GetUserID(c), services.ProfilePatch{
		FullName:        data.FullName,
		Email:           data.Email,
		Username:        data.Username,
		Bio:             data.Bio,
		Link:            data.Link,
		CurrentPassword: data.CurrentPassword,
		NewPassword:     data.NewPassword,
		ProfileImg:      data.ProfileImg,
		CoverImg:        data.CoverImg,
	})
	if err != nil {
		return err
	}

	return c.JSON(user)
}
