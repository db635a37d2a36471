package handlers

import (
	"time"

	"github.com/bidnbuy/backend/utils"
	"github.com/gofiber/fiber/v2"
)

type blockUserBody struct {
	Reason string `json:"reason"`
	// Days limits the ban; zero means permanent.
	Days int `json:"days"`
}

// BlockUser bans an account and clears its marketplace footprint.
func (a *WebApp) BlockUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return utils.SendBadRequest(c, "Invalid user id", nil)
	}

	var body blockUserBody
	if err := c.BodyParser(&body); err != nil {
		return utils.SendBadRequest(c, "Invalid request body", nil)
	}

	var until *time.Time
	if body.Days > 0 {
		t := time.Now().Add(time.Duration(body.Days) * 24 * time.Hour)
		until = &t
	}

	if err := a.Manager.BlockUser(c.Context(), int64(id), body.Reason, until); err != nil {
		return err
	}
	return utils.SendSuccess(c, nil, "User blocked")
}

// UnblockUser lifts a ban.
func (a *WebApp) UnblockUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return utils.SendBadRequest(c, "Invalid user id", nil)
	}

	if err := a.Manager.UnblockUser(c.Context(), int64(id)); err != nil {
		return err
	}
	return utils.SendSuccess(c, nil, "User unblocked")
}
