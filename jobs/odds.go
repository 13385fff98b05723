package jobs

import (
	"time"

	"github.com/sirupsen/logrus"

	"betline/config"
	"betline/models"
	"betline/providers/oddsfeed"
	"betline/services"

	"gorm.io/gorm"
)

// StartOddsScheduler runs the two odds loops: polling the external feed into
// the catalog, and nudging prices on events with lopsided pending volume.
func StartOddsScheduler(cfg *config.Config, db *gorm.DB, feed *oddsfeed.Client, catalog *services.CatalogService, odds *services.OddsService) {
	if feed != nil && feed.BaseURL != "" {
		tickerFetch := time.NewTicker(cfg.OddsPollInterval)
		go func() {
			for range tickerFetch.C {
				events, err := feed.FetchUpcoming()
				if err != nil {
					logrus.WithError(err).Warn("odds feed poll failed")
					continue
				}
				synced, err := catalog.SyncFromFeed(events)
				if err != nil {
					logrus.WithError(err).Warn("odds feed sync failed")
					continue
				}
				logrus.WithField("events", synced).Debug("odds feed synced")
			}
		}()
	}

	tickerAdjust := time.NewTicker(cfg.VolumeAdjustInterval)
	go func() {
		for range tickerAdjust.C {
			adjustOpenEvents(cfg, db, odds)
		}
	}()
}

func adjustOpenEvents(cfg *config.Config, db *gorm.DB, odds *services.OddsService) {
	now := time.Now()
	var events []models.Event
	err := db.Where("outcome = '' AND starts_at > ?", now.Add(cfg.BetGraceWindow)).
		Find(&events).Error
	if err != nil {
		logrus.WithError(err).Error("volume adjustment: event scan failed")
		return
	}
	for _, e := range events {
		if _, err := odds.AdjustForVolume(e.ID); err != nil {
			logrus.WithError(err).WithField("event_id", e.ID).Warn("volume adjustment failed")
		}
	}
}
