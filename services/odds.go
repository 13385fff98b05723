package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"betline/helpers"
	"betline/models"
)

// Volume-adjustment heuristic: when one side carries most of the pending
// stake its price is nudged down, a lightly backed side is nudged up. This
// balances exposure; it does not rebalance to a target margin.
const (
	heavyShareThreshold = 0.65
	lightShareThreshold = 0.30
	heavyShareFactor    = 0.90
	lightShareFactor    = 1.05
	minOdds             = 1.01

	oddsSourceVolumeAdjust = "volume-adjust"
)

// OddsPattern summarizes a team's odds movement over a trailing window.
type OddsPattern struct {
	Samples int     `json:"samples"`
	Mean    float64 `json:"mean"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	StdDev  float64 `json:"std_dev"`
	Latest  float64 `json:"latest"`
	Trend   string  `json:"trend"` // rising, falling, stable
}

type OddsService struct {
	db       *gorm.DB
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewOddsService wires the odds engine. cache may be nil, which disables the
// read-through layer.
func NewOddsService(db *gorm.DB, cache *redis.Client, cacheTTL time.Duration) *OddsService {
	return &OddsService{db: db, cache: cache, cacheTTL: cacheTTL}
}

func oddsCacheKey(eventID uint) string {
	return fmt.Sprintf("odds:current:%d", eventID)
}

// GetCurrentOdds returns the latest recorded odds per team for the event.
func (s *OddsService) GetCurrentOdds(eventID uint) (map[uint]float64, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(context.Background(), oddsCacheKey(eventID)).Result()
		if err == nil {
			out := map[uint]float64{}
			if jerr := json.Unmarshal([]byte(raw), &out); jerr == nil {
				return out, nil
			}
		} else if err != redis.Nil {
			logrus.WithError(err).WithField("event_id", eventID).Warn("odds cache read failed")
		}
	}

	var rows []models.OddsHistory
	if err := s.db.Where("event_id = ?", eventID).Order("id desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load odds history: %w", err)
	}

	out := map[uint]float64{}
	for _, r := range rows {
		if _, seen := out[r.TeamID]; !seen {
			out[r.TeamID] = r.Odds
		}
	}

	s.cacheCurrent(eventID, out)
	return out, nil
}

// RecordOdds appends a history row per team; history is never rewritten.
func (s *OddsService) RecordOdds(eventID uint, odds map[uint]float64, source string) error {
	if len(odds) == 0 {
		return fmt.Errorf("%w: no odds to record", ErrValidation)
	}
	now := time.Now()
	rows := make([]models.OddsHistory, 0, len(odds))
	for teamID, value := range odds {
		if value < minOdds {
			return fmt.Errorf("%w: odds %.2f below minimum %.2f", ErrValidation, value, minOdds)
		}
		rows = append(rows, models.OddsHistory{
			EventID:     eventID,
			TeamID:      teamID,
			Odds:        helpers.Round2(value),
			Source:      source,
			RetrievedAt: now,
		})
	}
	// Stable order keeps ledgers and tests deterministic.
	sort.Slice(rows, func(i, j int) bool { return rows[i].TeamID < rows[j].TeamID })

	if err := s.db.Create(&rows).Error; err != nil {
		return fmt.Errorf("append odds history: %w", err)
	}

	current, err := s.currentFromDB(eventID)
	if err == nil {
		s.cacheCurrent(eventID, current)
	}
	return nil
}

func (s *OddsService) currentFromDB(eventID uint) (map[uint]float64, error) {
	var rows []models.OddsHistory
	if err := s.db.Where("event_id = ?", eventID).Order("id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := map[uint]float64{}
	for _, r := range rows {
		if _, seen := out[r.TeamID]; !seen {
			out[r.TeamID] = r.Odds
		}
	}
	return out, nil
}

func (s *OddsService) cacheCurrent(eventID uint, odds map[uint]float64) {
	if s.cache == nil || len(odds) == 0 {
		return
	}
	raw, err := json.Marshal(odds)
	if err != nil {
		return
	}
	if err := s.cache.Set(context.Background(), oddsCacheKey(eventID), raw, s.cacheTTL).Err(); err != nil {
		logrus.WithError(err).WithField("event_id", eventID).Warn("odds cache write failed")
	}
}

// History returns the raw odds rows for an event over the trailing window,
// oldest first.
func (s *OddsService) History(eventID uint, windowDays int) ([]models.OddsHistory, error) {
	if windowDays <= 0 || windowDays > 90 {
		windowDays = 7
	}
	since := time.Now().AddDate(0, 0, -windowDays)

	var rows []models.OddsHistory
	err := s.db.Where("event_id = ? AND retrieved_at >= ?", eventID, since).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load odds history: %w", err)
	}
	return rows, nil
}

// AdjustForVolume reads pending stake per team and nudges prices where one
// side's share of the handle is lopsided. Returns true when new odds were
// recorded.
func (s *OddsService) AdjustForVolume(eventID uint) (bool, error) {
	type stakeRow struct {
		TeamID uint
		Total  float64
	}
	var stakes []stakeRow
	err := s.db.Model(&models.Bet{}).
		Select("team_id, COALESCE(SUM(stake), 0) as total").
		Where("event_id = ? AND status = ?", eventID, models.BetStatusPending).
		Group("team_id").
		Scan(&stakes).Error
	if err != nil {
		logrus.WithError(err).WithField("event_id", eventID).Error("volume adjustment: stake read failed")
		return false, fmt.Errorf("read pending stakes: %w", err)
	}

	var total float64
	byTeam := map[uint]float64{}
	for _, r := range stakes {
		byTeam[r.TeamID] = r.Total
		total += r.Total
	}
	if total <= 0 {
		return false, nil
	}

	current, err := s.GetCurrentOdds(eventID)
	if err != nil {
		return false, err
	}

	adjusted := map[uint]float64{}
	for teamID, odds := range current {
		share := byTeam[teamID] / total
		var factor float64
		switch {
		case share > heavyShareThreshold:
			factor = heavyShareFactor
		case share < lightShareThreshold:
			factor = lightShareFactor
		default:
			continue
		}
		next := helpers.Scale(odds, factor)
		if next < minOdds {
			next = minOdds
		}
		if next != odds {
			adjusted[teamID] = next
		}
	}
	if len(adjusted) == 0 {
		return false, nil
	}

	if err := s.RecordOdds(eventID, adjusted, oddsSourceVolumeAdjust); err != nil {
		return false, err
	}
	logrus.WithFields(logrus.Fields{"event_id": eventID, "teams": len(adjusted)}).
		Info("odds adjusted for betting volume")
	return true, nil
}

// AnalyzePatterns computes per-team summary statistics and a two-bucket trend
// over the trailing window.
func (s *OddsService) AnalyzePatterns(eventID uint, windowDays int) (map[uint]OddsPattern, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	since := time.Now().AddDate(0, 0, -windowDays)

	var rows []models.OddsHistory
	err := s.db.Where("event_id = ? AND retrieved_at >= ?", eventID, since).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		logrus.WithError(err).WithField("event_id", eventID).Error("pattern analysis: history read failed")
		return map[uint]OddsPattern{}, fmt.Errorf("load odds history: %w", err)
	}

	series := map[uint][]float64{}
	for _, r := range rows {
		series[r.TeamID] = append(series[r.TeamID], r.Odds)
	}

	out := map[uint]OddsPattern{}
	for teamID, values := range series {
		out[teamID] = summarize(values)
	}
	return out, nil
}

func summarize(values []float64) OddsPattern {
	n := len(values)
	p := OddsPattern{Samples: n, Trend: "stable"}
	if n == 0 {
		return p
	}

	p.Min, p.Max = values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		if v < p.Min {
			p.Min = v
		}
		if v > p.Max {
			p.Max = v
		}
	}
	p.Mean = sum / float64(n)
	p.Latest = values[n-1]

	var variance float64
	for _, v := range values {
		variance += (v - p.Mean) * (v - p.Mean)
	}
	p.StdDev = math.Sqrt(variance / float64(n))

	if n >= 2 {
		half := n / 2
		firstAvg := avg(values[:half])
		secondAvg := avg(values[half:])
		switch {
		case secondAvg > firstAvg*1.05:
			p.Trend = "rising"
		case secondAvg < firstAvg*0.95:
			p.Trend = "falling"
		}
	}
	return p
}

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
