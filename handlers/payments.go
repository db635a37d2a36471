package handlers

import (
	"github.com/bidnbuy/backend/middleware"
	"github.com/bidnbuy/backend/utils"
	"github.com/gofiber/fiber/v2"
)

// Pay settles a pending lot the caller is winning.
func (a *WebApp) Pay(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := lotIDParam(c)
	if err != nil {
		return err
	}

	payment, err := a.Manager.Pay(c.Context(), id, user)
	if err != nil {
		return err
	}
	return utils.SendCreated(c, toPaymentResponse(payment), "Payment accepted")
}

// MyPayments returns the caller's completed purchases.
func (a *WebApp) MyPayments(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	payments, err := a.Payments.ListByUser(c.Context(), user.ID)
	if err != nil {
		return err
	}

	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	return utils.SendSuccess(c, out, "")
}
