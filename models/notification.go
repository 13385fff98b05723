package models

import "gorm.io/gorm"

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

type Notification struct {
	gorm.Model

	AccountID uint   `gorm:"index" json:"account_id"`
	Message   string `gorm:"size:255" json:"message"`
	Severity  string `gorm:"size:16;default:info" json:"severity"`
	IsRead    bool   `gorm:"default:false;index" json:"is_read"`
}
