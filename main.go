package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"betline/config"
	"betline/controllers"
	"betline/database"
	"betline/jobs"
	"betline/providers/email"
	"betline/providers/gateway"
	"betline/providers/oddsfeed"
	"betline/routes"
	"betline/services"
	"betline/tasks"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("no .env file found, using process environment")
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		logrus.WithField("addr", cfg.RedisAddr).Info("odds cache enabled")
	}

	var emailClient email.Client = email.Disabled{}
	if cfg.EmailAPIURL != "" {
		emailClient = email.NewHTTPClient(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom)
	}
	cardGateway := gateway.NewSimulatedGateway(cfg.GatewaySuccessRate, time.Now().UnixNano())
	checkout := gateway.NewRESTCheckout(cfg.CheckoutAPIURL, cfg.CheckoutAPIKey)
	feed := oddsfeed.NewClient(cfg.OddsFeedURL, cfg.OddsFeedKey)

	accounts := services.NewAccountService(db, cfg)
	notifier := services.NewNotificationService(db, emailClient)
	odds := services.NewOddsService(db, cache, cfg.OddsCacheTTL)
	catalog := services.NewCatalogService(db, cfg, odds)
	betting := services.NewBettingService(db, cfg, accounts, notifier)
	payments := services.NewPaymentService(db, cfg, cardGateway, checkout, accounts, betting, notifier)
	reporting := services.NewReportingService(db)

	set := controllers.NewSet(controllers.Deps{
		DB:            db,
		Feed:          feed,
		Accounts:      accounts,
		Catalog:       catalog,
		Odds:          odds,
		Betting:       betting,
		Payments:      payments,
		Notifications: notifier,
		Reporting:     reporting,
	})

	app := fiber.New()
	routes.Setup(app, set, db)

	jobs.StartOddsScheduler(cfg, db, feed, catalog, odds)
	tasks.StartMaintenance(db)

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	logrus.WithField("addr", addr).Info("server starting")

	go func() {
		if err := app.Listen(addr); err != nil {
			logrus.WithError(err).Fatal("server failed to start")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logrus.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logrus.WithError(err).Fatal("forced shutdown")
	}
	logrus.Info("server exited cleanly")
}
