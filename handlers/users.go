package handlers

import (
	"github.com/bidnbuy/backend/middleware"
	"github.com/bidnbuy/backend/utils"
	"github.com/gofiber/fiber/v2"
)

// Me returns the caller's profile.
func (a *WebApp) Me(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	return utils.SendSuccess(c, toUserResponse(user), "")
}

type updateMeBody struct {
	Username    *string `json:"username"`
	PhoneNumber *string `json:"phone_number"`
	Bio         *string `json:"bio"`
}

// UpdateMe edits the caller's profile fields.
func (a *WebApp) UpdateMe(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var body updateMeBody
	if err := c.BodyParser(&body); err != nil {
		return utils.SendBadRequest(c, "Invalid request body", nil)
	}

	if body.Username != nil {
		user.Username = *body.Username
	}
	if body.PhoneNumber != nil {
		user.PhoneNumber = *body.PhoneNumber
	}
	if body.Bio != nil {
		user.Bio = *body.Bio
	}

	if err := a.Users.Update(c.Context(), user); err != nil {
		return err
	}
	return utils.SendSuccess(c, toUserResponse(user), "Profile updated")
}
