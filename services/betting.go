package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"betline/config"
	"betline/helpers"
	"betline/metrics"
	"betline/models"
)

// BetSelection is one leg of a bet slip.
type BetSelection struct {
	EventID uint    `json:"event_id"`
	TeamID  uint    `json:"team_id"`
	Odds    float64 `json:"odds"`
	Stake   float64 `json:"stake"`
}

// SettlementReport is the outcome of a batch settlement: each bet commits on
// its own, so a partial failure leaves the failed subset pending for a retry.
type SettlementReport struct {
	EventID uint   `json:"event_id"`
	Settled int    `json:"settled"`
	Failed  []uint `json:"failed,omitempty"`
}

type BettingService struct {
	db       *gorm.DB
	cfg      *config.Config
	accounts *AccountService
	notifier *NotificationService
}

func NewBettingService(db *gorm.DB, cfg *config.Config, accounts *AccountService, notifier *NotificationService) *BettingService {
	return &BettingService{db: db, cfg: cfg, accounts: accounts, notifier: notifier}
}

// PlaceBet validates the stake against the account's role limits and the
// event's betting window, then atomically debits the balance, creates the
// pending bet, appends the ledger row and enqueues a notification. Any
// failure rolls the whole set back and leaves the balance untouched.
func (s *BettingService) PlaceBet(accountID, eventID, teamID uint, odds, stake float64) (*models.Bet, error) {
	account, err := s.accounts.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if err := s.checkStakeLimits(account, stake); err != nil {
		return nil, err
	}
	if odds < minOdds {
		return nil, fmt.Errorf("%w: odds %.2f below minimum", ErrValidation, odds)
	}
	if err := s.checkEventOpen(eventID, teamID); err != nil {
		return nil, err
	}

	stake = helpers.Round2(stake)
	bet := models.Bet{
		AccountID: accountID,
		EventID:   eventID,
		TeamID:    teamID,
		Odds:      odds,
		Stake:     stake,
		Payout:    helpers.Payout(stake, odds),
		Status:    models.BetStatusPending,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accounts.UpdateBalance(tx, accountID, stake, BalanceBet); err != nil {
			return err
		}
		if err := tx.Create(&bet).Error; err != nil {
			return fmt.Errorf("create bet: %w", err)
		}

		// Re-read inside the transaction: the pre-check snapshot can be
		// stale by the time the debit lands.
		var debited models.Account
		if err := tx.First(&debited, accountID).Error; err != nil {
			return fmt.Errorf("reload account: %w", err)
		}

		meta, _ := json.Marshal(map[string]any{"bet_ids": []uint{bet.ID}, "event_id": eventID})
		trx := models.PaymentTransaction{
			AccountID:     accountID,
			Type:          models.TrxTypeBet,
			Status:        models.TrxStatusCompleted,
			Amount:        stake,
			BalanceBefore: helpers.Round2(debited.Balance + stake),
			BalanceAfter:  debited.Balance,
			RefID:         uuid.New().String(),
			Note:          fmt.Sprintf("bet #%d stake", bet.ID),
			Metadata:      datatypes.JSON(meta),
		}
		if err := tx.Create(&trx).Error; err != nil {
			return fmt.Errorf("record bet transaction: %w", err)
		}

		msg := fmt.Sprintf("Bet placed: %s at %.2f, potential payout %s",
			helpers.FormatAmount(stake), odds, helpers.FormatAmount(bet.Payout))
		return s.notifier.Notify(tx, accountID, msg, models.SeverityInfo)
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"account_id": accountID,
			"event_id":   eventID,
		}).Warn("bet placement failed")
		return nil, err
	}

	metrics.BetsPlaced.Inc()
	return &bet, nil
}

// PlaceBetSlip places a batch of selections as one checkout action: the limit
// checks run against the total stake, the balance is debited once, every
// selection becomes its own pending bet sharing a slip reference, and one
// ledger row covers all resulting bet IDs.
func (s *BettingService) PlaceBetSlip(accountID uint, selections []BetSelection) ([]models.Bet, error) {
	if len(selections) == 0 {
		return nil, fmt.Errorf("%w: empty bet slip", ErrValidation)
	}
	account, err := s.accounts.GetByID(accountID)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, sel := range selections {
		if sel.Odds < minOdds {
			return nil, fmt.Errorf("%w: odds %.2f below minimum", ErrValidation, sel.Odds)
		}
		if sel.Stake <= 0 {
			return nil, fmt.Errorf("%w: stake must be positive", ErrValidation)
		}
		total += sel.Stake
	}
	total = helpers.Round2(total)
	if err := s.checkStakeLimits(account, total); err != nil {
		return nil, err
	}
	for _, sel := range selections {
		if err := s.checkEventOpen(sel.EventID, sel.TeamID); err != nil {
			return nil, err
		}
	}

	slipRef := uuid.New().String()
	bets := make([]models.Bet, 0, len(selections))

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accounts.UpdateBalance(tx, accountID, total, BalanceBet); err != nil {
			return err
		}

		betIDs := make([]uint, 0, len(selections))
		for _, sel := range selections {
			stake := helpers.Round2(sel.Stake)
			bet := models.Bet{
				AccountID: accountID,
				EventID:   sel.EventID,
				TeamID:    sel.TeamID,
				Odds:      sel.Odds,
				Stake:     stake,
				Payout:    helpers.Payout(stake, sel.Odds),
				Status:    models.BetStatusPending,
				SlipRef:   slipRef,
			}
			if err := tx.Create(&bet).Error; err != nil {
				return fmt.Errorf("create slip bet: %w", err)
			}
			bets = append(bets, bet)
			betIDs = append(betIDs, bet.ID)
		}

		var debited models.Account
		if err := tx.First(&debited, accountID).Error; err != nil {
			return fmt.Errorf("reload account: %w", err)
		}

		meta, _ := json.Marshal(map[string]any{"bet_ids": betIDs, "slip_ref": slipRef})
		trx := models.PaymentTransaction{
			AccountID:     accountID,
			Type:          models.TrxTypeBet,
			Status:        models.TrxStatusCompleted,
			Amount:        total,
			BalanceBefore: helpers.Round2(debited.Balance + total),
			BalanceAfter:  debited.Balance,
			RefID:         slipRef,
			Note:          fmt.Sprintf("bet slip, %d selections", len(selections)),
			Metadata:      datatypes.JSON(meta),
		}
		if err := tx.Create(&trx).Error; err != nil {
			return fmt.Errorf("record slip transaction: %w", err)
		}

		msg := fmt.Sprintf("Bet slip placed: %d selections, total stake %s",
			len(selections), helpers.FormatAmount(total))
		return s.notifier.Notify(tx, accountID, msg, models.SeverityInfo)
	})
	if err != nil {
		return nil, err
	}

	for range selections {
		metrics.BetsPlaced.Inc()
	}
	return bets, nil
}

// CancelBet voids a pending bet and refunds the stake. Only allowed while the
// event start is further away than the grace window. Re-cancelling an already
// cancelled bet fails with not-found because the pending filter no longer
// matches.
func (s *BettingService) CancelBet(betID, accountID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var bet models.Bet
		err := tx.Where("id = ? AND account_id = ? AND status = ?", betID, accountID, models.BetStatusPending).
			First(&bet).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: pending bet %d", ErrNotFound, betID)
			}
			return err
		}

		var event models.Event
		if err := tx.First(&event, bet.EventID).Error; err != nil {
			return fmt.Errorf("load event: %w", err)
		}
		if time.Now().After(event.StartsAt.Add(-s.cfg.BetGraceWindow)) {
			return fmt.Errorf("%w: too close to event start to cancel", ErrValidation)
		}

		return s.cancelPendingBet(tx, &bet, "bet cancelled by account")
	})
}

// cancelPendingBet flips P -> C with a conditional update and refunds the
// stake. Callers hold the surrounding transaction.
func (s *BettingService) cancelPendingBet(tx *gorm.DB, bet *models.Bet, note string) error {
	res := tx.Model(&models.Bet{}).
		Where("id = ? AND status = ?", bet.ID, models.BetStatusPending).
		Update("status", models.BetStatusCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: pending bet %d", ErrNotFound, bet.ID)
	}

	if err := s.accounts.UpdateBalance(tx, bet.AccountID, bet.Stake, BalanceRefund); err != nil {
		return err
	}

	var account models.Account
	if err := tx.First(&account, bet.AccountID).Error; err != nil {
		return err
	}
	trx := models.PaymentTransaction{
		AccountID:     bet.AccountID,
		Type:          models.TrxTypeRefund,
		Status:        models.TrxStatusCompleted,
		Amount:        bet.Stake,
		BalanceBefore: helpers.Round2(account.Balance - bet.Stake),
		BalanceAfter:  account.Balance,
		RefID:         uuid.New().String(),
		Note:          fmt.Sprintf("bet #%d refund: %s", bet.ID, note),
	}
	if err := tx.Create(&trx).Error; err != nil {
		return fmt.Errorf("record refund transaction: %w", err)
	}

	metrics.BetsSettled.WithLabelValues(models.BetStatusCancelled).Inc()
	msg := fmt.Sprintf("Bet #%d cancelled, %s refunded", bet.ID, helpers.FormatAmount(bet.Stake))
	return s.notifier.Notify(tx, bet.AccountID, msg, models.SeverityInfo)
}

// SettleBet resolves one pending bet with a caller-supplied outcome. Winner
// determination is external; this only applies the financial consequence.
// Settling a bet that is no longer pending is a no-op failure, so a second
// settle can never double-pay.
func (s *BettingService) SettleBet(betID uint, outcome string) error {
	if outcome != models.BetStatusWon && outcome != models.BetStatusLost {
		return fmt.Errorf("%w: outcome must be %q or %q", ErrValidation, models.BetStatusWon, models.BetStatusLost)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var bet models.Bet
		err := tx.Where("id = ? AND status = ?", betID, models.BetStatusPending).First(&bet).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: pending bet %d", ErrNotFound, betID)
			}
			return err
		}

		now := time.Now()
		res := tx.Model(&models.Bet{}).
			Where("id = ? AND status = ?", betID, models.BetStatusPending).
			Updates(map[string]any{"status": outcome, "settled_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: pending bet %d", ErrNotFound, betID)
		}

		metrics.BetsSettled.WithLabelValues(outcome).Inc()

		if outcome == models.BetStatusLost {
			msg := fmt.Sprintf("Bet #%d lost (stake %s)", bet.ID, helpers.FormatAmount(bet.Stake))
			return s.notifier.Notify(tx, bet.AccountID, msg, models.SeverityInfo)
		}

		if err := s.accounts.UpdateBalance(tx, bet.AccountID, bet.Payout, BalancePayout); err != nil {
			return err
		}
		var account models.Account
		if err := tx.First(&account, bet.AccountID).Error; err != nil {
			return err
		}
		trx := models.PaymentTransaction{
			AccountID:     bet.AccountID,
			Type:          models.TrxTypePayout,
			Status:        models.TrxStatusCompleted,
			Amount:        bet.Payout,
			BalanceBefore: helpers.Round2(account.Balance - bet.Payout),
			BalanceAfter:  account.Balance,
			RefID:         uuid.New().String(),
			Note:          fmt.Sprintf("bet #%d payout", bet.ID),
		}
		if err := tx.Create(&trx).Error; err != nil {
			return fmt.Errorf("record payout transaction: %w", err)
		}

		msg := fmt.Sprintf("Bet #%d won! %s credited", bet.ID, helpers.FormatAmount(bet.Payout))
		return s.notifier.Notify(tx, bet.AccountID, msg, models.SeverityInfo)
	})
}

// SettleEventBets records the event outcome and settles every pending bet for
// it. Each settlement commits on its own; a failure partway through leaves the
// failed bets pending and they are reported back for a retry. The conditional
// pending-state update makes retries double-pay-safe.
func (s *BettingService) SettleEventBets(eventID, winnerTeamID uint) (*SettlementReport, error) {
	var event models.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: event %d", ErrNotFound, eventID)
		}
		return nil, err
	}
	if event.Cancelled() {
		return nil, fmt.Errorf("%w: event is cancelled", ErrValidation)
	}

	var winner models.Team
	if err := s.db.First(&winner, winnerTeamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: team %d", ErrNotFound, winnerTeamID)
		}
		return nil, err
	}
	if winnerTeamID != event.HomeTeamID && winnerTeamID != event.AwayTeamID {
		return nil, fmt.Errorf("%w: team %s is not part of event %d", ErrValidation, winner.Code, eventID)
	}

	// Marking the outcome first closes the betting window; settling the
	// existing pending bets can then proceed at its own pace.
	if !event.Settled() {
		if err := s.db.Model(&event).Update("outcome", winner.Code).Error; err != nil {
			return nil, fmt.Errorf("mark event outcome: %w", err)
		}
	} else if event.Outcome != winner.Code {
		return nil, fmt.Errorf("%w: event already settled as %s", ErrValidation, event.Outcome)
	}

	var pending []models.Bet
	if err := s.db.Where("event_id = ? AND status = ?", eventID, models.BetStatusPending).
		Find(&pending).Error; err != nil {
		return nil, err
	}

	report := &SettlementReport{EventID: eventID}
	for _, bet := range pending {
		outcome := models.BetStatusLost
		if bet.TeamID == winnerTeamID {
			outcome = models.BetStatusWon
		}
		if err := s.SettleBet(bet.ID, outcome); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"bet_id":   bet.ID,
				"event_id": eventID,
			}).Error("bet settlement failed, leaving pending")
			report.Failed = append(report.Failed, bet.ID)
			continue
		}
		report.Settled++
	}
	return report, nil
}

// CancelEventBets voids the event and refunds every pending bet, grace window
// notwithstanding.
func (s *BettingService) CancelEventBets(eventID uint) (*SettlementReport, error) {
	var event models.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: event %d", ErrNotFound, eventID)
		}
		return nil, err
	}
	if event.Settled() && !event.Cancelled() {
		return nil, fmt.Errorf("%w: event already settled as %s", ErrValidation, event.Outcome)
	}

	if !event.Cancelled() {
		if err := s.db.Model(&event).Update("outcome", models.OutcomeCancelled).Error; err != nil {
			return nil, fmt.Errorf("mark event cancelled: %w", err)
		}
	}

	var pending []models.Bet
	if err := s.db.Where("event_id = ? AND status = ?", eventID, models.BetStatusPending).
		Find(&pending).Error; err != nil {
		return nil, err
	}

	report := &SettlementReport{EventID: eventID}
	for i := range pending {
		bet := pending[i]
		err := s.db.Transaction(func(tx *gorm.DB) error {
			return s.cancelPendingBet(tx, &bet, "event cancelled")
		})
		if err != nil {
			logrus.WithError(err).WithField("bet_id", bet.ID).Error("bet refund failed, leaving pending")
			report.Failed = append(report.Failed, bet.ID)
			continue
		}
		report.Settled++
	}
	return report, nil
}

// History returns the account's bets, newest first.
func (s *BettingService) History(accountID uint, limit int) ([]models.Bet, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var bets []models.Bet
	err := s.db.Where("account_id = ?", accountID).
		Order("id desc").
		Limit(limit).
		Find(&bets).Error
	return bets, err
}

// HasPendingBets backs the withdrawal policy check.
func (s *BettingService) HasPendingBets(accountID uint) (bool, error) {
	var n int64
	err := s.db.Model(&models.Bet{}).
		Where("account_id = ? AND status = ?", accountID, models.BetStatusPending).
		Count(&n).Error
	return n > 0, err
}

func (s *BettingService) checkStakeLimits(account *models.Account, stake float64) error {
	if stake <= 0 {
		return fmt.Errorf("%w: stake must be positive", ErrValidation)
	}
	limits := s.cfg.LimitsFor(account.Role)
	if stake > limits.MaxBet {
		return fmt.Errorf("%w: stake %s above the %s per-bet maximum %s",
			ErrLimitExceeded, helpers.FormatAmount(stake), account.Role, helpers.FormatAmount(limits.MaxBet))
	}

	dayStart := startOfDay(time.Now())
	var staked float64
	err := s.db.Model(&models.Bet{}).
		Select("COALESCE(SUM(stake), 0)").
		Where("account_id = ? AND created_at >= ? AND status <> ?",
			account.ID, dayStart, models.BetStatusCancelled).
		Scan(&staked).Error
	if err != nil {
		return fmt.Errorf("read daily stake: %w", err)
	}
	if staked+stake > limits.DailyLimit {
		return fmt.Errorf("%w: daily stake ceiling %s reached",
			ErrLimitExceeded, helpers.FormatAmount(limits.DailyLimit))
	}
	return nil
}

func (s *BettingService) checkEventOpen(eventID, teamID uint) error {
	var event models.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: event %d", ErrNotFound, eventID)
		}
		return err
	}
	if !event.Bettable(time.Now(), s.cfg.BetGraceWindow) {
		return fmt.Errorf("%w: event is not open for betting", ErrValidation)
	}
	if teamID != event.HomeTeamID && teamID != event.AwayTeamID {
		return fmt.Errorf("%w: team %d is not part of event %d", ErrValidation, teamID, eventID)
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
