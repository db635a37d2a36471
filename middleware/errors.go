package middleware

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/bidnbuy/backend/auction"
	"github.com/bidnbuy/backend/utils"
	"github.com/gofiber/fiber/v2"
)

// statusForKind maps a rejected operation to its HTTP status.
func statusForKind(kind auction.Kind) int {
	switch kind {
	case auction.KindNotFound:
		return fiber.StatusNotFound
	case auction.KindUnauthenticated:
		return fiber.StatusUnauthorized
	case auction.KindForbidden, auction.KindNotOwner, auction.KindNotLeader,
		auction.KindNotWinner, auction.KindBlocked:
		return fiber.StatusForbidden
	default:
		return fiber.StatusBadRequest
	}
}

// ErrorHandler is the app-wide fiber error handler. Domain rejections map
// to their HTTP status; anything else is a 500 and gets logged.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var ae *auction.Error
	if errors.As(err, &ae) {
		return utils.SendError(c, statusForKind(ae.Kind), strings.ToUpper(string(ae.Kind)), ae.Message, nil)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.SendError(c, fe.Code, "HTTP_ERROR", fe.Message, nil)
	}

	slog.Error("Unhandled request error",
		slog.String("type", "http"),
		slog.String("path", c.Path()),
		slog.String("method", c.Method()),
		slog.Any("error", err),
	)
	return utils.SendInternalServerError(c, "Internal server error")
}
