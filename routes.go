package main

import (
	"github.com/bidnbuy/backend/handlers"
	"github.com/bidnbuy/backend/middleware"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all application routes
func setupRoutes(app *fiber.App, webApp *handlers.WebApp, auth *middleware.Authenticator) {
	app.Get("/health", webApp.HealthCheck)

	// Public catalogue.
	app.Get("/lots", webApp.ListLots)
	app.Get("/lots/:id", webApp.GetLot)
	app.Get("/lots/:id/bids", webApp.LotBids)

	// Everything below requires a valid token.
	api := app.Group("/", auth.Authenticate())

	api.Get("/users/me", webApp.Me)
	api.Patch("/users/me", webApp.UpdateMe)

	api.Get("/my/lots", webApp.MyLots)
	api.Post("/lots", webApp.CreateLot)
	api.Patch("/lots/:id", webApp.UpdateLot)
	api.Delete("/lots/:id", webApp.DeleteLot)
	api.Post("/lots/:id/images", webApp.AddLotImage)
	api.Post("/lots/:id/close", webApp.CloseLot)
	api.Post("/lots/:id/restore", webApp.RestoreLot)

	api.Post("/lots/:id/bids", webApp.PlaceBid)
	api.Delete("/lots/:id/bids", webApp.CancelBid)
	api.Get("/my/bids", webApp.MyBids)

	api.Post("/lots/:id/pay", webApp.Pay)
	api.Get("/my/payments", webApp.MyPayments)

	api.Get("/notifications", webApp.MyNotifications)
	api.Post("/notifications/read-all", webApp.MarkAllNotificationsRead)
	api.Post("/notifications/:id/read", webApp.MarkNotificationRead)

	admin := api.Group("/admin", middleware.AdminRequired())
	admin.Post("/users/:id/block", webApp.BlockUser)
	admin.Post("/users/:id/unblock", webApp.UnblockUser)
	admin.Delete("/lots/:id", webApp.DeleteLot)
}
