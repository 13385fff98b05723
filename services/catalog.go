package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"betline/config"
	"betline/models"
	"betline/providers/oddsfeed"
)

// CatalogService owns sports, teams and events. Odds values themselves belong
// to the odds engine; the catalog only maintains the fixtures they attach to.
type CatalogService struct {
	db   *gorm.DB
	cfg  *config.Config
	odds *OddsService
}

func NewCatalogService(db *gorm.DB, cfg *config.Config, odds *OddsService) *CatalogService {
	return &CatalogService{db: db, cfg: cfg, odds: odds}
}

// EventView is the browsing shape: the event plus liveness flags and current
// odds.
type EventView struct {
	Event    models.Event     `json:"event"`
	HomeTeam models.Team      `json:"home_team"`
	AwayTeam models.Team      `json:"away_team"`
	Live     bool             `json:"live"`
	Bettable bool             `json:"bettable"`
	Odds     map[uint]float64 `json:"odds"`
}

func (s *CatalogService) GetEvent(eventID uint) (*models.Event, error) {
	var event models.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: event %d", ErrNotFound, eventID)
		}
		return nil, err
	}
	return &event, nil
}

// EventDetail builds the full browsing view for one event.
func (s *CatalogService) EventDetail(eventID uint) (*EventView, error) {
	event, err := s.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	view := EventView{Event: *event}

	if err := s.db.First(&view.HomeTeam, event.HomeTeamID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := s.db.First(&view.AwayTeam, event.AwayTeamID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	view.Live = event.Live(now, s.cfg.LiveWindow)
	view.Bettable = event.Bettable(now, s.cfg.BetGraceWindow)

	odds, err := s.odds.GetCurrentOdds(eventID)
	if err != nil {
		logrus.WithError(err).WithField("event_id", eventID).Warn("current odds unavailable")
		odds = map[uint]float64{}
	}
	view.Odds = odds
	return &view, nil
}

// ListUpcoming returns open events ordered by start time, including events
// already in their live window.
func (s *CatalogService) ListUpcoming(limit int) ([]EventView, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	now := time.Now()
	var events []models.Event
	err := s.db.Where("outcome = '' AND starts_at >= ?", now.Add(-s.cfg.LiveWindow)).
		Order("starts_at asc").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	views := make([]EventView, 0, len(events))
	for _, e := range events {
		v, err := s.EventDetail(e.ID)
		if err != nil {
			logrus.WithError(err).WithField("event_id", e.ID).Warn("skipping event view")
			continue
		}
		views = append(views, *v)
	}
	return views, nil
}

// SyncFromFeed upserts fixtures reported by the odds feed and appends their
// prices through the odds engine. Existing odds are never rewritten; each poll
// appends a fresh snapshot.
func (s *CatalogService) SyncFromFeed(feedEvents []oddsfeed.FeedEvent) (int, error) {
	synced := 0
	for _, fe := range feedEvents {
		if err := s.syncOne(fe); err != nil {
			logrus.WithError(err).WithField("ref", fe.Ref).Warn("feed event skipped")
			continue
		}
		synced++
	}
	return synced, nil
}

func (s *CatalogService) syncOne(fe oddsfeed.FeedEvent) error {
	if fe.Ref == "" || fe.HomeTeam == "" || fe.AwayTeam == "" {
		return fmt.Errorf("%w: incomplete feed event", ErrValidation)
	}

	sport, err := s.ensureSport(fe.Sport)
	if err != nil {
		return err
	}
	home, err := s.ensureTeam(sport.ID, fe.HomeTeam)
	if err != nil {
		return err
	}
	away, err := s.ensureTeam(sport.ID, fe.AwayTeam)
	if err != nil {
		return err
	}

	var event models.Event
	err = s.db.Where("external_ref = ?", fe.Ref).First(&event).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		event = models.Event{
			SportID:     sport.ID,
			ExternalRef: fe.Ref,
			HomeTeamID:  home.ID,
			AwayTeamID:  away.ID,
			StartsAt:    fe.StartsAt,
		}
		if err := s.db.Create(&event).Error; err != nil {
			return fmt.Errorf("create event: %w", err)
		}
	case err != nil:
		return err
	default:
		if !event.StartsAt.Equal(fe.StartsAt) && !event.Settled() {
			if err := s.db.Model(&event).Update("starts_at", fe.StartsAt).Error; err != nil {
				return err
			}
		}
	}

	odds := map[uint]float64{}
	if v, ok := fe.Odds[fe.HomeTeam]; ok {
		odds[home.ID] = v
	}
	if v, ok := fe.Odds[fe.AwayTeam]; ok {
		odds[away.ID] = v
	}
	if len(odds) == 0 {
		return nil
	}
	return s.odds.RecordOdds(event.ID, odds, "feed")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (s *CatalogService) ensureSport(code string) (*models.Sport, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = "unknown"
	}
	var sport models.Sport
	err := s.db.Where("code = ?", code).First(&sport).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sport = models.Sport{Code: code, Name: titleCase(code)}
		err = s.db.Create(&sport).Error
	}
	if err != nil {
		return nil, err
	}
	return &sport, nil
}

func (s *CatalogService) ensureTeam(sportID uint, code string) (*models.Team, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	var team models.Team
	err := s.db.Where("code = ?", code).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		team = models.Team{SportID: sportID, Code: code, Name: titleCase(strings.ReplaceAll(code, "-", " "))}
		err = s.db.Create(&team).Error
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}
