package controllers

import (
	"gorm.io/gorm"

	"betline/providers/oddsfeed"
	"betline/services"
)

// Set bundles every controller for route registration.
type Set struct {
	Auth          *AuthController
	Events        *EventController
	Bets          *BetController
	Payments      *PaymentController
	Notifications *NotificationController
	Admin         *AdminController
	Health        *HealthController
}

type Deps struct {
	DB            *gorm.DB
	Feed          *oddsfeed.Client
	Accounts      *services.AccountService
	Catalog       *services.CatalogService
	Odds          *services.OddsService
	Betting       *services.BettingService
	Payments      *services.PaymentService
	Notifications *services.NotificationService
	Reporting     *services.ReportingService
}

func NewSet(d Deps) *Set {
	return &Set{
		Auth:          &AuthController{Accounts: d.Accounts},
		Events:        &EventController{Catalog: d.Catalog, Odds: d.Odds},
		Bets:          &BetController{Betting: d.Betting},
		Payments:      &PaymentController{Payments: d.Payments},
		Notifications: &NotificationController{Notifications: d.Notifications},
		Admin:         &AdminController{Betting: d.Betting, Odds: d.Odds, Reporting: d.Reporting},
		Health:        &HealthController{DB: d.DB, Feed: d.Feed},
	}
}
