package middlewares

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"betline/helpers"
	"betline/models"
)

const sessionCookie = "betline_session"

// SessionAuth resolves the session token (header first, cookie as fallback),
// loads the owning account and stores both in request locals.
func SessionAuth(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("X-Session-Token")
		if token == "" {
			token = c.Cookies(sessionCookie)
		}
		if token == "" {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
		}

		var session models.Session
		if err := db.Preload("Account").Where("sid = ?", token).First(&session).Error; err != nil {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_SESSION")
		}
		if session.Expired(time.Now()) || !session.Account.IsActive {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_EXPIRED")
		}

		c.Locals("account", session.Account)
		c.Locals("session", session)
		return c.Next()
	}
}

// RequireAdmin gates admin-only routes; must run after SessionAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		account, ok := c.Locals("account").(models.Account)
		if !ok || account.Role != models.RoleAdmin {
			return helpers.JSONErrorStatus(c, fiber.StatusForbidden, "ADMIN_ONLY")
		}
		return c.Next()
	}
}

// CurrentAccount pulls the authenticated account out of locals.
func CurrentAccount(c *fiber.Ctx) (models.Account, bool) {
	account, ok := c.Locals("account").(models.Account)
	return account, ok
}

// SessionCookieName is exported for the auth controller to set/clear it.
func SessionCookieName() string { return sessionCookie }
