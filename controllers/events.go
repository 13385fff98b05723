package controllers

import (
	"github.com/gofiber/fiber/v2"

	"betline/helpers"
	"betline/services"
)

type EventController struct {
	Catalog *services.CatalogService
	Odds    *services.OddsService
}

func (ct *EventController) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	views, err := ct.Catalog.ListUpcoming(limit)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Upcoming events", views)
}

func (ct *EventController) Detail(c *fiber.Ctx) error {
	eventID, err := c.ParamsInt("id")
	if err != nil || eventID <= 0 {
		return helpers.JSONError(c, "INVALID_EVENT_ID")
	}
	view, err := ct.Catalog.EventDetail(uint(eventID))
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Event", view)
}

func (ct *EventController) CurrentOdds(c *fiber.Ctx) error {
	eventID, err := c.ParamsInt("id")
	if err != nil || eventID <= 0 {
		return helpers.JSONError(c, "INVALID_EVENT_ID")
	}
	odds, err := ct.Odds.GetCurrentOdds(uint(eventID))
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Current odds", odds)
}

func (ct *EventController) OddsHistory(c *fiber.Ctx) error {
	eventID, err := c.ParamsInt("id")
	if err != nil || eventID <= 0 {
		return helpers.JSONError(c, "INVALID_EVENT_ID")
	}
	rows, err := ct.Odds.History(uint(eventID), c.QueryInt("window_days", 7))
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Odds history", rows)
}

func (ct *EventController) Patterns(c *fiber.Ctx) error {
	eventID, err := c.ParamsInt("id")
	if err != nil || eventID <= 0 {
		return helpers.JSONError(c, "INVALID_EVENT_ID")
	}
	windowDays := c.QueryInt("window_days", 7)

	patterns, err := ct.Odds.AnalyzePatterns(uint(eventID), windowDays)
	if err != nil {
		return fail(c, err)
	}
	return helpers.JSONSuccess(c, "Odds patterns", patterns)
}
