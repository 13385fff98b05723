package models

import (
	"time"

	"gorm.io/gorm"
)

// OutcomeCancelled marks a voided event; the empty outcome means the event is
// still open, anything else is the winning team code.
const OutcomeCancelled = "CANCELLED"

type Sport struct {
	gorm.Model

	Code string `gorm:"uniqueIndex;size:32" json:"code"`
	Name string `gorm:"size:64" json:"name"`
}

type Team struct {
	gorm.Model

	SportID uint   `gorm:"index" json:"sport_id"`
	Code    string `gorm:"uniqueIndex;size:32" json:"code"`
	Name    string `gorm:"size:64" json:"name"`
}

type Event struct {
	gorm.Model

	SportID     uint      `gorm:"index" json:"sport_id"`
	ExternalRef string    `gorm:"uniqueIndex;size:64" json:"external_ref"`
	HomeTeamID  uint      `gorm:"index" json:"home_team_id"`
	AwayTeamID  uint      `gorm:"index" json:"away_team_id"`
	StartsAt    time.Time `gorm:"index" json:"starts_at"`
	Outcome     string    `gorm:"size:32;index" json:"outcome"`
}

func (e *Event) Cancelled() bool { return e.Outcome == OutcomeCancelled }
func (e *Event) Settled() bool   { return e.Outcome != "" }

// Bettable: not started (minus the grace margin), not cancelled, not settled.
func (e *Event) Bettable(now time.Time, grace time.Duration) bool {
	return e.Outcome == "" && now.Before(e.StartsAt.Add(-grace))
}

// Live: started within the fixed live window and not yet settled.
func (e *Event) Live(now time.Time, window time.Duration) bool {
	return e.Outcome == "" && !now.Before(e.StartsAt) && now.Before(e.StartsAt.Add(window))
}

// OddsHistory is append-only; current odds for an event are the latest row per
// team.
type OddsHistory struct {
	gorm.Model

	EventID     uint      `gorm:"index:idx_event_team" json:"event_id"`
	TeamID      uint      `gorm:"index:idx_event_team" json:"team_id"`
	Odds        float64   `json:"odds"`
	Source      string    `gorm:"size:32" json:"source"`
	RetrievedAt time.Time `gorm:"index" json:"retrieved_at"`
}
