package tasks

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"betline/models"
)

// CleanupExpiredSessions removes sessions past their expiry.
func CleanupExpiredSessions(db *gorm.DB) {
	result := db.Where("expires_at < ?", time.Now()).Delete(&models.Session{})
	if result.Error != nil {
		logrus.WithError(result.Error).Error("failed to delete expired sessions")
		return
	}
	if result.RowsAffected > 0 {
		logrus.WithField("deleted", result.RowsAffected).Info("expired sessions removed")
	}
}

// CleanupReadNotifications drops read notifications older than the retention
// window.
func CleanupReadNotifications(db *gorm.DB, olderThan time.Duration) {
	cutoff := time.Now().Add(-olderThan)
	result := db.Where("is_read = true AND created_at < ?", cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		logrus.WithError(result.Error).Error("failed to delete read notifications")
		return
	}
	if result.RowsAffected > 0 {
		logrus.WithField("deleted", result.RowsAffected).Info("read notifications removed")
	}
}

// StartMaintenance runs the cleanup loop.
func StartMaintenance(db *gorm.DB) {
	ticker := time.NewTicker(time.Hour)
	go func() {
		for range ticker.C {
			CleanupExpiredSessions(db)
			CleanupReadNotifications(db, 30*24*time.Hour)
		}
	}()
}
