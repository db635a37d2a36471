package handlers

import (
	"errors"

	"github.com/bidnbuy/backend/database/repositories"
	"github.com/bidnbuy/backend/middleware"
	"github.com/bidnbuy/backend/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type placeBidBody struct {
	Amount decimal.Decimal `json:"amount"`
}

// PlaceBid records or raises the caller's bid on a lot.
func (a *WebApp) PlaceBid(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := lotIDParam(c)
	if err != nil {
		return err
	}

	var body placeBidBody
	if err := c.BodyParser(&body); err != nil {
		return utils.SendBadRequest(c, "Invalid request body", nil)
	}

	bid, err := a.Manager.PlaceBid(c.Context(), id, user, body.Amount)
	if err != nil {
		return err
	}
	return utils.SendCreated(c, toBidResponse(bid), "Bid placed")
}

// CancelBid withdraws the caller's active bid on a lot.
func (a *WebApp) CancelBid(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := lotIDParam(c)
	if err != nil {
		return err
	}

	if err := a.Manager.CancelBid(c.Context(), id, user.ID); err != nil {
		return err
	}
	return utils.SendNoContent(c)
}

// LotBids returns a lot's active bids, best first.
func (a *WebApp) LotBids(c *fiber.Ctx) error {
	id, err := lotIDParam(c)
	if err != nil {
		return err
	}

	if _, err := a.Lots.GetByID(c.Context(), id); err != nil {
		if errors.Is(err, repositories.ErrLotNotFound) {
			return utils.SendNotFound(c, "Lot not found")
		}
		return err
	}

	bids, err := a.Bids.GetActiveByLot(c.Context(), a.Bids.DB(), id)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, toBidResponses(bids), "")
}

// MyBids returns the caller's bids, optionally only the active ones.
func (a *WebApp) MyBids(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	activeOnly := c.QueryBool("active", false)

	bids, err := a.Bids.ListByUser(c.Context(), user.ID, activeOnly)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, toBidResponses(bids), "")
}
