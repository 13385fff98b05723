package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"gorm.io/gorm"

	"betline/controllers"
	"betline/metrics"
	"betline/middlewares"
)

func Setup(app *fiber.App, s *controllers.Set, db *gorm.DB) {
	// operational surface
	app.Get("/health", s.Health.Overall)
	app.Get("/health/database", s.Health.Database)
	app.Get("/health/api", s.Health.API)
	app.Get("/health/status", s.Health.Full)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// public
	auth := app.Group("/auth")
	auth.Post("/register", s.Auth.Register)
	auth.Post("/login", s.Auth.Login)

	events := app.Group("/events")
	events.Get("/", s.Events.List)
	events.Get("/:id", s.Events.Detail)
	events.Get("/:id/odds", s.Events.CurrentOdds)
	events.Get("/:id/odds/history", s.Events.OddsHistory)
	events.Get("/:id/patterns", s.Events.Patterns)

	// checkout return URL is unauthenticated: the processor redirects the
	// browser here and the session itself identifies the account.
	app.Get("/checkout/return", s.Payments.CheckoutReturn)

	// session-scoped
	user := app.Group("", middlewares.SessionAuth(db))
	user.Post("/auth/logout", s.Auth.Logout)
	user.Get("/profile", s.Auth.Profile)

	user.Post("/bets", s.Bets.Place)
	user.Post("/bets/slip", s.Bets.PlaceSlip)
	user.Post("/bets/:id/cancel", s.Bets.Cancel)
	user.Get("/bets", s.Bets.History)

	user.Post("/payments/deposit", s.Payments.Deposit)
	user.Post("/payments/withdraw", s.Payments.Withdraw)
	user.Get("/payments/transactions", s.Payments.Transactions)
	user.Post("/payments/methods", s.Payments.AddMethod)
	user.Get("/payments/methods", s.Payments.ListMethods)
	user.Delete("/payments/methods/:id", s.Payments.RemoveMethod)
	user.Post("/checkout/session", s.Payments.StartCheckout)

	user.Get("/notifications", s.Notifications.List)
	user.Post("/notifications/:id/read", s.Notifications.MarkRead)
	user.Delete("/notifications/:id", s.Notifications.Delete)

	// admin
	admin := user.Group("/admin", middlewares.RequireAdmin())
	admin.Post("/events/:id/odds", s.Admin.RecordOdds)
	admin.Post("/events/:id/adjust", s.Admin.AdjustForVolume)
	admin.Post("/events/:id/settle", s.Admin.SettleEvent)
	admin.Post("/events/:id/cancel", s.Admin.CancelEvent)
	admin.Get("/reports/summary", s.Admin.Summary)
	admin.Get("/reports/events/:id/exposure", s.Admin.EventExposure)
	admin.Get("/reports/revenue", s.Admin.DailyRevenue)
	admin.Get("/reports/top-bettors", s.Admin.TopBettors)
}
