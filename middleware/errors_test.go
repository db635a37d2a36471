package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/bidnbuy/backend/auction"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind auction.Kind
		want int
	}{
		{auction.KindNotFound, fiber.StatusNotFound},
		{auction.KindUnauthenticated, fiber.StatusUnauthorized},
		{auction.KindForbidden, fiber.StatusForbidden},
		{auction.KindNotOwner, fiber.StatusForbidden},
		{auction.KindNotLeader, fiber.StatusForbidden},
		{auction.KindNotWinner, fiber.StatusForbidden},
		{auction.KindBlocked, fiber.StatusForbidden},
		{auction.KindInvalidState, fiber.StatusBadRequest},
		{auction.KindInvalidBid, fiber.StatusBadRequest},
		{auction.KindInvalidInput, fiber.StatusBadRequest},
		{auction.KindAlreadySold, fiber.StatusBadRequest},
		{auction.KindNoDeadline, fiber.StatusBadRequest},
		{auction.KindExpired, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, statusForKind(tt.kind))
		})
	}
}

func TestErrorHandler(t *testing.T) {
	newApp := func(err error) *fiber.App {
		app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
		app.Get("/", func(c *fiber.Ctx) error { return err })
		return app
	}

	t.Run("maps domain rejection to its status", func(t *testing.T) {
		app := newApp(&auction.Error{Kind: auction.KindNotWinner, Message: "nope"})

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("passes through fiber errors", func(t *testing.T) {
		app := newApp(fiber.NewError(fiber.StatusTeapot, "short and stout"))

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	})

	t.Run("hides unexpected errors behind a 500", func(t *testing.T) {
		app := newApp(assert.AnError)

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	})
}
