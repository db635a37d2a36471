package middleware

import (
	"strings"
	"time"

	"github.com/bidnbuy/backend/auth"
	"github.com/bidnbuy/backend/database/models"
	"github.com/bidnbuy/backend/database/repositories"
	"github.com/bidnbuy/backend/utils"
	"github.com/gofiber/fiber/v2"
)

const userLocalKey = "user"

// Authenticator resolves bearer tokens to local user accounts.
type Authenticator struct {
	verifier *auth.Verifier
	users    repositories.UserRepository
}

func NewAuthenticator(verifier *auth.Verifier, users repositories.UserRepository) *Authenticator {
	return &Authenticator{verifier: verifier, users: users}
}

// Authenticate verifies the bearer token, provisions a local account on
// first sight and rejects blocked users.
func (a *Authenticator) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return utils.SendUnauthorized(c, "Missing bearer token")
		}
		token := strings.TrimPrefix(header, "Bearer ")

		identity, err := a.verifier.Verify(c.Context(), token)
		if err != nil {
			return utils.SendUnauthorized(c, "Invalid token")
		}

		user, err := a.users.GetOrCreateBySub(c.Context(), identity.Subject, identity.Email, identity.Nickname)
		if err != nil {
			return utils.SendInternalServerError(c, "Failed to resolve account")
		}

		if user.BannedAt(time.Now()) {
			details := map[string]string{}
			if user.BanReason != "" {
				details["reason"] = user.BanReason
			}
			if user.BanUntil != nil {
				details["until"] = user.BanUntil.Format(time.RFC3339)
			}
			return utils.SendError(c, fiber.StatusForbidden, "BLOCKED", "Your account is blocked", details)
		}

		c.Locals(userLocalKey, user)
		return c.Next()
	}
}

// AdminRequired rejects non-admin callers. Must run after Authenticate.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			return utils.SendForbidden(c, "Admin access required")
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil outside an
// authenticated route.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalKey).(*models.User)
	return user
}
