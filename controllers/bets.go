package controllers

import (
	"github.com/gofiber/fiber/v2"

	"betline/helpers"
	"betline/middlewares"
	"betline/services"
)

type BetController struct {
	Betting *services.BettingService
}

type placeBetRequest struct {
	EventID uint    `json:"event_id"`
	TeamID  uint    `json:"team_id"`
	Odds    float64 `json:"odds"`
	Stake   float64 `json:"stake"`
}

func (ct *BetController) Place(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	var req placeBetRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	bet, err := ct.Betting.PlaceBet(account.ID, req.EventID, req.TeamID, req.Odds, req.Stake)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Bet placed", fiber.Map{
		"bet_id": bet.ID,
		"stake":  bet.Stake,
		"odds":   bet.Odds,
		"payout": bet.Payout,
		"status": bet.Status,
	})
}

type placeSlipRequest struct {
	Selections []services.BetSelection `json:"selections"`
}

func (ct *BetController) PlaceSlip(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	var req placeSlipRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	bets, err := ct.Betting.PlaceBetSlip(account.ID, req.Selections)
	if err != nil {
		return fail(c, err)
	}

	ids := make([]uint, 0, len(bets))
	for _, b := range bets {
		ids = append(ids, b.ID)
	}
	return helpers.JSONSuccess(c, "Bet slip placed", fiber.Map{
		"bet_ids":  ids,
		"slip_ref": bets[0].SlipRef,
	})
}

func (ct *BetController) Cancel(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	betID, err := c.ParamsInt("id")
	if err != nil || betID <= 0 {
		return helpers.JSONError(c, "INVALID_BET_ID")
	}

	if err := ct.Betting.CancelBet(uint(betID), account.ID); err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Bet cancelled", nil)
}

func (ct *BetController) History(c *fiber.Ctx) error {
	account, ok := middlewares.CurrentAccount(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SESSION_REQUIRED")
	}

	bets, err := ct.Betting.History(account.ID, c.QueryInt("limit", 100))
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Bet history", bets)
}
