package models

import (
	"time"

	"gorm.io/gorm"
)

// Bet status state machine: P -> W | L | C, every transition terminal.
const (
	BetStatusPending   = "P"
	BetStatusWon       = "W"
	BetStatusLost      = "L"
	BetStatusCancelled = "C"
)

type Bet struct {
	gorm.Model

	AccountID uint    `gorm:"index" json:"account_id"`
	EventID   uint    `gorm:"index" json:"event_id"`
	TeamID    uint    `gorm:"index" json:"team_id"`
	Odds      float64 `json:"odds"`
	Stake     float64 `json:"stake"`
	Payout    float64 `json:"payout"`
	Status    string  `gorm:"size:1;index;default:P" json:"status"`

	// SlipRef groups selections placed together as one slip; empty for singles.
	SlipRef   string     `gorm:"size:36;index" json:"slip_ref,omitempty"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}
