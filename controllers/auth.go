package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"betline/helpers"
	"betline/middlewares"
	"betline/models"
	"betline/services"
)

type AuthController struct {
	Accounts *services.AccountService
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (ct *AuthController) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	account, err := ct.Accounts.Register(req.Name, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Account created", fiber.Map{
		"code":  account.Code,
		"email": account.Email,
		"role":  account.Role,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (ct *AuthController) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	session, err := ct.Accounts.Authenticate(req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     middlewares.SessionCookieName(),
		Value:    session.SID,
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return helpers.JSONSuccess(c, "Logged in", fiber.Map{
		"token":      session.SID,
		"expires_at": session.ExpiresAt,
		"account":    session.Account.Code,
		"role":       session.Account.Role,
	})
}

func (ct *AuthController) Logout(c *fiber.Ctx) error {
	if session, ok := c.Locals("session").(models.Session); ok {
		if err := ct.Accounts.Logout(session.SID); err != nil {
			return fail(c, err)
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:    middlewares.SessionCookieName(),
		Value:   "",
		Expires: time.Now().Add(-time.Hour),
	})
	return helpers.JSONSuccess(c, "Logged out", nil)
}

func (ct *AuthController) Profile(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}
	return helpers.JSONSuccess(c, "Profile", fiber.Map{
		"code":    account.Code,
		"email":   account.Email,
		"role":    account.Role,
		"balance": account.Balance,
	})
}
