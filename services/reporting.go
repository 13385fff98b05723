package services

import (
	"time"

	"gorm.io/gorm"

	"betline/helpers"
	"betline/models"
)

// ReportingService aggregates across accounts, bets and payments for the
// admin dashboard. Read-only.
type ReportingService struct {
	db *gorm.DB
}

func NewReportingService(db *gorm.DB) *ReportingService {
	return &ReportingService{db: db}
}

type PlatformSummary struct {
	Accounts        int64   `json:"accounts"`
	OpenEvents      int64   `json:"open_events"`
	PendingBets     int64   `json:"pending_bets"`
	StakeVolume     float64 `json:"stake_volume"`
	PayoutVolume    float64 `json:"payout_volume"`
	GrossMargin     float64 `json:"gross_margin"`
	DepositVolume   float64 `json:"deposit_volume"`
	WithdrawalVolume float64 `json:"withdrawal_volume"`
}

func (s *ReportingService) PlatformSummary() (*PlatformSummary, error) {
	var out PlatformSummary

	if err := s.db.Model(&models.Account{}).Where("is_active = true").Count(&out.Accounts).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Event{}).Where("outcome = ''").Count(&out.OpenEvents).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Bet{}).Where("status = ?", models.BetStatusPending).Count(&out.PendingBets).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Bet{}).
		Select("COALESCE(SUM(stake), 0)").
		Where("status <> ?", models.BetStatusCancelled).
		Scan(&out.StakeVolume).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Bet{}).
		Select("COALESCE(SUM(payout), 0)").
		Where("status = ?", models.BetStatusWon).
		Scan(&out.PayoutVolume).Error; err != nil {
		return nil, err
	}
	out.GrossMargin = helpers.Round2(out.StakeVolume - out.PayoutVolume)

	if err := s.db.Model(&models.PaymentTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("type = ? AND status = ?", models.TrxTypeDeposit, models.TrxStatusCompleted).
		Scan(&out.DepositVolume).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.PaymentTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("type = ? AND status = ?", models.TrxTypeWithdrawal, models.TrxStatusCompleted).
		Scan(&out.WithdrawalVolume).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

type TeamExposure struct {
	TeamID          uint    `json:"team_id"`
	PendingStake    float64 `json:"pending_stake"`
	PotentialPayout float64 `json:"potential_payout"`
}

// EventExposure reports, per team, how much pending stake the book holds and
// what it owes if that team wins.
func (s *ReportingService) EventExposure(eventID uint) ([]TeamExposure, error) {
	var rows []TeamExposure
	err := s.db.Model(&models.Bet{}).
		Select("team_id, COALESCE(SUM(stake), 0) as pending_stake, COALESCE(SUM(payout), 0) as potential_payout").
		Where("event_id = ? AND status = ?", eventID, models.BetStatusPending).
		Group("team_id").
		Order("team_id").
		Scan(&rows).Error
	return rows, err
}

type DailyRevenue struct {
	Day         string  `json:"day"`
	Deposits    float64 `json:"deposits"`
	Withdrawals float64 `json:"withdrawals"`
}

// DailyRevenueSeries groups completed deposit and withdrawal volume by day
// over the trailing window.
func (s *ReportingService) DailyRevenueSeries(days int) ([]DailyRevenue, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	var rows []DailyRevenue
	err := s.db.Model(&models.PaymentTransaction{}).
		Select(`date(created_at) as day,
			COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) as deposits,
			COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) as withdrawals`,
			models.TrxTypeDeposit, models.TrxTypeWithdrawal).
		Where("status = ? AND created_at >= ?", models.TrxStatusCompleted, since).
		Group("date(created_at)").
		Order("day asc").
		Scan(&rows).Error
	return rows, err
}

type BettorRank struct {
	AccountID   uint    `json:"account_id"`
	Code        string  `json:"code"`
	TotalStaked float64 `json:"total_staked"`
	BetCount    int64   `json:"bet_count"`
}

// TopBettors ranks accounts by non-cancelled stake volume.
func (s *ReportingService) TopBettors(limit int) ([]BettorRank, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var rows []BettorRank
	err := s.db.Model(&models.Bet{}).
		Select("bets.account_id, accounts.code, COALESCE(SUM(bets.stake), 0) as total_staked, COUNT(bets.id) as bet_count").
		Joins("JOIN accounts ON accounts.id = bets.account_id").
		Where("bets.status <> ?", models.BetStatusCancelled).
		Group("bets.account_id, accounts.code").
		Order("total_staked desc").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
