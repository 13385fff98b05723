package controllers

import (
	"github.com/gofiber/fiber/v2"

	"betline/helpers"
	"betline/middlewares"
	"betline/services"
)

type PaymentController struct {
	Payments *services.PaymentService
}

type methodRequest struct {
	Provider string `json:"provider"`
	Ref      string `json:"ref"`
}

func (ct *PaymentController) AddMethod(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	var req methodRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	method, err := ct.Payments.AddMethod(account.ID, req.Provider, req.Ref)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Payment method added", method)
}

func (ct *PaymentController) ListMethods(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	methods, err := ct.Payments.ListMethods(account.ID)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Payment methods", methods)
}

func (ct *PaymentController) RemoveMethod(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	methodID, err := c.ParamsInt("id")
	if err != nil || methodID <= 0 {
		return helpers.JSONError(c, "INVALID_METHOD_ID")
	}

	if err := ct.Payments.DeactivateMethod(account.ID, uint(methodID)); err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Payment method removed", nil)
}

type moveMoneyRequest struct {
	MethodID uint    `json:"method_id"`
	Amount   float64 `json:"amount"`
}

func (ct *PaymentController) Deposit(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	var req moveMoneyRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	trx, err := ct.Payments.ProcessDeposit(account.ID, req.MethodID, req.Amount)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Deposit completed", fiber.Map{
		"ref_id":  trx.RefID,
		"amount":  trx.Amount,
		"status":  trx.Status,
		"balance": trx.BalanceAfter,
	})
}

func (ct *PaymentController) Withdraw(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	var req moveMoneyRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	trx, err := ct.Payments.ProcessWithdrawal(account.ID, req.MethodID, req.Amount)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Withdrawal completed", fiber.Map{
		"ref_id":  trx.RefID,
		"amount":  trx.Amount,
		"status":  trx.Status,
		"balance": trx.BalanceAfter,
	})
}

func (ct *PaymentController) Transactions(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	trxs, err := ct.Payments.ListTransactions(account.ID, c.QueryInt("limit", 100))
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Transactions", trxs)
}

type checkoutRequest struct {
	Package    string `json:"package"`
	SuccessURL string `json:"success_url"`
}

func (ct *PaymentController) StartCheckout(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	sess, err := ct.Payments.CreateCheckout(account.ID, req.Package, req.SuccessURL)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Checkout session created", sess)
}

// CheckoutReturn handles the processor's return URL. Safe to hit repeatedly:
// the session is credited at most once.
func (ct *PaymentController) CheckoutReturn(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	trx, credited, err := ct.Payments.ConfirmCheckout(sessionID)
	if err != nil {
		return fail(c, err)
	}

	message := "Checkout already credited"
	if credited {
		message = "Chips credited"
	}
	return helpers.JSONSuccess(c, message, fiber.Map{
		"ref_id":   trx.RefID,
		"amount":   trx.Amount,
		"credited": credited,
	})
}
