package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"betline/providers/oddsfeed"
)

// Typed health payloads; one struct per endpoint.
type HealthStatus struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

type DatabaseHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type APIHealth struct {
	Status string `json:"status"`
	Feed   string `json:"feed"`
	Error  string `json:"error,omitempty"`
}

type FullHealth struct {
	Status   string         `json:"status"`
	Database DatabaseHealth `json:"database"`
	API      APIHealth      `json:"api"`
}

type HealthController struct {
	DB   *gorm.DB
	Feed *oddsfeed.Client
}

func (ct *HealthController) Overall(c *fiber.Ctx) error {
	return c.JSON(HealthStatus{Status: "ok", Time: time.Now().Format(time.RFC3339)})
}

func (ct *HealthController) Database(c *fiber.Ctx) error {
	resp := ct.checkDatabase()
	if resp.Status != "ok" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

func (ct *HealthController) API(c *fiber.Ctx) error {
	resp := ct.checkAPI()
	if resp.Status != "ok" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

func (ct *HealthController) Full(c *fiber.Ctx) error {
	resp := FullHealth{
		Status:   "ok",
		Database: ct.checkDatabase(),
		API:      ct.checkAPI(),
	}
	if resp.Database.Status != "ok" || resp.API.Status != "ok" {
		resp.Status = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

func (ct *HealthController) checkDatabase() DatabaseHealth {
	start := time.Now()
	sqlDB, err := ct.DB.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		return DatabaseHealth{Status: "down", Error: err.Error()}
	}
	return DatabaseHealth{Status: "ok", Latency: time.Since(start).String()}
}

func (ct *HealthController) checkAPI() APIHealth {
	if ct.Feed == nil || ct.Feed.BaseURL == "" {
		return APIHealth{Status: "ok", Feed: "disabled"}
	}
	if _, err := ct.Feed.FetchUpcoming(); err != nil {
		return APIHealth{Status: "down", Feed: ct.Feed.BaseURL, Error: err.Error()}
	}
	return APIHealth{Status: "ok", Feed: ct.Feed.BaseURL}
}
