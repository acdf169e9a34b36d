package api

import (
	"time"

	"git.solsynth.dev/hypernet/murmur/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/models"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func (v *controller) grantToken(c *fiber.Ctx, user models.User) (string, error) {
	token, err := v.Tokens.IssueToken(user.ID)
	if err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	c.Cookie(&fiber.Cookie{
		Name:     exts.TokenCookie,
		Value:    token,
		Expires:  time.Now().Add(v.Tokens.TTL()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return token, nil
}

func (v *controller) signUp(c *fiber.Ctx) error {
	var data struct {
		FullName string `json:"full_name" validate:"required"`
		Username string `json:"username" validate:"required,max=64"`
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	user, err := v.Accounts.SignUp(c.UserContext(), services.SignUpInput{
		FullName: data.FullName,
		Username: data.Username,
		Email:    data.Email,
		Password: data.Password,
	})
	if err != nil {
		return err
	}

	token, err := v.grantToken(c, user)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

func (v *controller) login(c *fiber.Ctx) error {
	var data struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	user, err := v.Accounts.Authenticate(c.UserContext(), data.Username, data.Password)
	if err != nil {
		return err
	}

	token, err := v.grantToken(c, user)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

func (v *controller) logout(c *fiber.Ctx) error {
	c.ClearCookie(exts.TokenCookie)
	return c.JSON(fiber.Map{"message": "logged out successfully"})
}

func (v *controller) getMe(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	user, err := v.Accounts.GetUser(c.UserContext(), exts.GetUserID(c))
	if err != nil {
		return err
	}

	return c.JSON(user)
}
