package controllers

import (
	"github.com/gofiber/fiber/v2"

	"betline/helpers"
	"betline/services"
)

type AdminController struct {
	Betting   *services.BettingService
	Odds      *services.OddsService
	Reporting *services.ReportingService
}

type recordOddsRequest struct {
	Odds   map[uint]float64 `json:"odds"`
	Source string           `json:"source"`
}

func (ct *AdminController) RecordOdds(c *fiber.Ctx) error {
	eventID, err := c.ParamsInt("id")
	if err != nil || eventID <= 0 {
		return helpers.JSONError(c, "INVALID_EVENT_ID")
	}

	var req recordOddsRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.Source == "" {
		req.Source = "manual"
	}

	if err := ct.Odds.RecordOdds(uint(eventID), req.Odds, req.Source); err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Odds recorded", nil)
}

func (ct *AdminController) AdjustForVolume(c *fiber.Ctx) error {
	eventID, err := c.ParamsInt("id")
	if err != nil || eventID <= 0 {
		return helpers.JSONError(c, "INVALID_EVENT_ID")
	}

	adjusted, err := ct.Odds.AdjustForVolume(uint(eventID))
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Volume adjustment run", fiber.Map{"adjusted": adjusted})
}

type settleEventRequest struct {
	WinnerTeamID uint `json:"winner_team_id"`
}

// SettleEvent applies an externally supplied outcome to every pending bet on
// the event.
func (ct *AdminController) SettleEvent(c *fiber.Ctx) error {
	eventID, err := c.ParamsInt("id")
	if err != nil || eventID <= 0 {
		return helpers.JSONError(c, "INVALID_EVENT_ID")
	}

	var req settleEventRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	report, err := ct.Betting.SettleEventBets(uint(eventID), req.WinnerTeamID)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Event settled", report)
}

func (ct *AdminController) CancelEvent(c *fiber.Ctx) error {
	eventID, err := c.ParamsInt("id")
	if err != nil || eventID <= 0 {
		return helpers.JSONError(c, "INVALID_EVENT_ID")
	}

	report, err := ct.Betting.CancelEventBets(uint(eventID))
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Event cancelled, pending bets refunded", report)
}

func (ct *AdminController) Summary(c *fiber.Ctx) error {
	summary, err := ct.Reporting.PlatformSummary()
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Platform summary", summary)
}

func (ct *AdminController) EventExposure(c *fiber.Ctx) error {
	eventID, err := c.ParamsInt("id")
	if err != nil || eventID <= 0 {
		return helpers.JSONError(c, "INVALID_EVENT_ID")
	}

	exposure, err := ct.Reporting.EventExposure(uint(eventID))
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Event exposure", exposure)
}

func (ct *AdminController) DailyRevenue(c *fiber.Ctx) error {
	series, err := ct.Reporting.DailyRevenueSeries(c.QueryInt("days", 30))
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Daily revenue", series)
}

func (ct *AdminController) TopBettors(c *fiber.Ctx) error {
	rows, err := ct.Reporting.TopBettors(c.QueryInt("limit", 10))
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Top bettors", rows)
}
