package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"betline/config"
	"betline/helpers"
	"betline/metrics"
	"betline/models"
	"betline/providers/gateway"
)

type PaymentService struct {
	db       *gorm.DB
	cfg      *config.Config
	gateway  gateway.CardGateway
	checkout gateway.CheckoutClient
	accounts *AccountService
	betting  *BettingService
	notifier *NotificationService
}

func NewPaymentService(
	db *gorm.DB,
	cfg *config.Config,
	cardGateway gateway.CardGateway,
	checkout gateway.CheckoutClient,
	accounts *AccountService,
	betting *BettingService,
	notifier *NotificationService,
) *PaymentService {
	return &PaymentService{
		db:       db,
		cfg:      cfg,
		gateway:  cardGateway,
		checkout: checkout,
		accounts: accounts,
		betting:  betting,
		notifier: notifier,
	}
}

// AddMethod registers a payment method under the account with only a masked
// reference stored.
func (s *PaymentService) AddMethod(accountID uint, provider, ref string) (*models.PaymentMethod, error) {
	if provider == "" || len(ref) < 4 {
		return nil, fmt.Errorf("%w: provider and reference are required", ErrValidation)
	}
	method := models.PaymentMethod{
		AccountID: accountID,
		Provider:  provider,
		MaskedRef: helpers.MaskRef(ref),
		IsActive:  true,
	}
	if err := s.db.Create(&method).Error; err != nil {
		return nil, fmt.Errorf("create payment method: %w", err)
	}
	return &method, nil
}

func (s *PaymentService) ListMethods(accountID uint) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := s.db.Where("account_id = ? AND is_active = true", accountID).
		Order("id desc").
		Find(&methods).Error
	return methods, err
}

// DeactivateMethod soft-deletes: transactions may still reference the row, so
// it is never removed.
func (s *PaymentService) DeactivateMethod(accountID, methodID uint) error {
	res := s.db.Model(&models.PaymentMethod{}).
		Where("id = ? AND account_id = ? AND is_active = true", methodID, accountID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: payment method %d", ErrNotFound, methodID)
	}
	return nil
}

func (s *PaymentService) ownedMethod(accountID, methodID uint) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := s.db.Where("id = ? AND account_id = ? AND is_active = true", methodID, accountID).
		First(&method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: payment method %d", ErrNotFound, methodID)
		}
		return nil, err
	}
	return &method, nil
}

// ProcessDeposit charges the gateway and credits the balance. The pending
// ledger row is written before the gateway call so a crash mid-charge leaves
// an auditable trail.
func (s *PaymentService) ProcessDeposit(accountID, methodID uint, amount float64) (*models.PaymentTransaction, error) {
	account, err := s.accounts.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	method, err := s.ownedMethod(accountID, methodID)
	if err != nil {
		return nil, err
	}

	amount = helpers.Round2(amount)
	limits := s.cfg.LimitsFor(account.Role)
	if amount < limits.MinDeposit || amount > limits.MaxDeposit {
		return nil, fmt.Errorf("%w: deposit must be between %s and %s",
			ErrLimitExceeded, helpers.FormatAmount(limits.MinDeposit), helpers.FormatAmount(limits.MaxDeposit))
	}

	trx := models.PaymentTransaction{
		AccountID: accountID,
		MethodID:  &method.ID,
		Type:      models.TrxTypeDeposit,
		Status:    models.TrxStatusPending,
		Amount:    amount,
		RefID:     uuid.New().String(),
		Provider:  method.Provider,
	}
	if err := s.db.Create(&trx).Error; err != nil {
		return nil, fmt.Errorf("create deposit transaction: %w", err)
	}

	providerRef, gerr := s.gateway.Charge(method.MaskedRef, amount)
	if gerr != nil {
		s.markFailed(&trx, gerr)
		return &trx, fmt.Errorf("%w: %v", ErrExternalService, gerr)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accounts.UpdateBalance(tx, accountID, amount, BalanceDeposit); err != nil {
			return err
		}
		var after models.Account
		if err := tx.First(&after, accountID).Error; err != nil {
			return err
		}
		updates := map[string]any{
			"status":         models.TrxStatusCompleted,
			"provider_ref":   providerRef,
			"balance_before": helpers.Round2(after.Balance - amount),
			"balance_after":  after.Balance,
		}
		if err := tx.Model(&trx).Updates(updates).Error; err != nil {
			return err
		}
		msg := fmt.Sprintf("Deposit of %s completed", helpers.FormatAmount(amount))
		return s.notifier.Notify(tx, accountID, msg, models.SeverityInfo)
	})
	if err != nil {
		return nil, err
	}

	trx.Status = models.TrxStatusCompleted
	metrics.PaymentsProcessed.WithLabelValues(models.TrxTypeDeposit, models.TrxStatusCompleted).Inc()
	s.notifier.SendTemplatedEmail(account.Email, "deposit-receipt", map[string]string{
		"amount": helpers.FormatAmount(amount),
		"ref":    trx.RefID,
	})
	return &trx, nil
}

// ProcessWithdrawal refuses while pending bets are outstanding, debits the
// balance up front, then asks the gateway to pay out; a gateway failure rolls
// the debit back by re-crediting.
func (s *PaymentService) ProcessWithdrawal(accountID, methodID uint, amount float64) (*models.PaymentTransaction, error) {
	account, err := s.accounts.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	method, err := s.ownedMethod(accountID, methodID)
	if err != nil {
		return nil, err
	}

	pending, err := s.betting.HasPendingBets(accountID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, fmt.Errorf("%w: withdrawals are blocked while bets are pending", ErrLimitExceeded)
	}

	amount = helpers.Round2(amount)
	limits := s.cfg.LimitsFor(account.Role)
	if amount < limits.MinWithdrawal || amount > limits.MaxWithdrawal {
		return nil, fmt.Errorf("%w: withdrawal must be between %s and %s",
			ErrLimitExceeded, helpers.FormatAmount(limits.MinWithdrawal), helpers.FormatAmount(limits.MaxWithdrawal))
	}

	var trx models.PaymentTransaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accounts.UpdateBalance(tx, accountID, amount, BalanceWithdrawal); err != nil {
			return err
		}
		var after models.Account
		if err := tx.First(&after, accountID).Error; err != nil {
			return err
		}
		trx = models.PaymentTransaction{
			AccountID:     accountID,
			MethodID:      &method.ID,
			Type:          models.TrxTypeWithdrawal,
			Status:        models.TrxStatusPending,
			Amount:        amount,
			BalanceBefore: helpers.Round2(after.Balance + amount),
			BalanceAfter:  after.Balance,
			RefID:         uuid.New().String(),
			Provider:      method.Provider,
		}
		return tx.Create(&trx).Error
	})
	if err != nil {
		return nil, err
	}

	providerRef, gerr := s.gateway.Payout(method.MaskedRef, amount)
	if gerr != nil {
		// Undo the pre-emptive debit before surfacing the failure.
		rerr := s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.accounts.UpdateBalance(tx, accountID, amount, BalanceDeposit); err != nil {
				return err
			}
			return tx.Model(&trx).Update("status", models.TrxStatusFailed).Error
		})
		if rerr != nil {
			logrus.WithError(rerr).WithField("trx", trx.RefID).
				Error("withdrawal rollback failed, balance requires reconciliation")
		}
		metrics.PaymentsProcessed.WithLabelValues(models.TrxTypeWithdrawal, models.TrxStatusFailed).Inc()
		return &trx, fmt.Errorf("%w: %v", ErrExternalService, gerr)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":       models.TrxStatusCompleted,
			"provider_ref": providerRef,
		}
		if err := tx.Model(&trx).Updates(updates).Error; err != nil {
			return err
		}
		msg := fmt.Sprintf("Withdrawal of %s completed", helpers.FormatAmount(amount))
		return s.notifier.Notify(tx, accountID, msg, models.SeverityInfo)
	})
	if err != nil {
		return nil, err
	}

	trx.Status = models.TrxStatusCompleted
	metrics.PaymentsProcessed.WithLabelValues(models.TrxTypeWithdrawal, models.TrxStatusCompleted).Inc()
	s.notifier.SendTemplatedEmail(account.Email, "withdrawal-receipt", map[string]string{
		"amount": helpers.FormatAmount(amount),
		"ref":    trx.RefID,
	})
	return &trx, nil
}

func (s *PaymentService) markFailed(trx *models.PaymentTransaction, cause error) {
	if err := s.db.Model(trx).Update("status", models.TrxStatusFailed).Error; err != nil {
		logrus.WithError(err).WithField("trx", trx.RefID).Error("failed to mark transaction failed")
	}
	trx.Status = models.TrxStatusFailed
	metrics.PaymentsProcessed.WithLabelValues(trx.Type, models.TrxStatusFailed).Inc()
	logrus.WithError(cause).WithField("trx", trx.RefID).Warn("gateway declined transaction")
}

// CreateCheckout opens a hosted-checkout session for a chip package.
func (s *PaymentService) CreateCheckout(accountID uint, packageCode, successURL string) (*gateway.CheckoutSession, error) {
	account, err := s.accounts.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	pkg, ok := s.cfg.ChipPackages[packageCode]
	if !ok {
		return nil, fmt.Errorf("%w: chip package %q", ErrNotFound, packageCode)
	}
	sess, err := s.checkout.CreateSession(account.Code, pkg.Code, pkg.Price, successURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return sess, nil
}

// ConfirmCheckout credits chips for a paid hosted-checkout session. It
// re-fetches the session server side, refuses anything not paid, and is
// idempotent: the session id lands in the ledger's unique provider reference,
// so re-visiting the return URL can credit at most once. The bool result
// reports whether this call performed the credit.
func (s *PaymentService) ConfirmCheckout(sessionID string) (*models.PaymentTransaction, bool, error) {
	if sessionID == "" {
		return nil, false, fmt.Errorf("%w: session id is required", ErrValidation)
	}

	var existing models.PaymentTransaction
	err := s.db.Where("provider_ref = ?", sessionID).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	sess, err := s.checkout.GetSession(sessionID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	if !sess.Paid() {
		return nil, false, fmt.Errorf("%w: session is not paid", ErrValidation)
	}

	accountCode := sess.Metadata["account_code"]
	pkg, ok := s.cfg.ChipPackages[sess.Metadata["package"]]
	if accountCode == "" || !ok {
		return nil, false, fmt.Errorf("%w: session metadata incomplete", ErrValidation)
	}
	var account models.Account
	if err := s.db.Where("code = ?", accountCode).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("%w: account %s", ErrNotFound, accountCode)
		}
		return nil, false, err
	}

	var trx models.PaymentTransaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		method := models.PaymentMethod{
			AccountID: account.ID,
			Provider:  "checkout",
			MaskedRef: helpers.MaskRef(sess.ID),
			IsActive:  true,
		}
		if err := tx.Create(&method).Error; err != nil {
			return err
		}

		if err := s.accounts.UpdateBalance(tx, account.ID, pkg.Chips, BalanceDeposit); err != nil {
			return err
		}
		var after models.Account
		if err := tx.First(&after, account.ID).Error; err != nil {
			return err
		}

		meta, _ := json.Marshal(map[string]any{
			"session_id": sess.ID,
			"package":    pkg.Code,
			"price":      pkg.Price,
			"currency":   sess.Currency,
		})
		sid := sess.ID
		trx = models.PaymentTransaction{
			AccountID:     account.ID,
			MethodID:      &method.ID,
			Type:          models.TrxTypeDeposit,
			Status:        models.TrxStatusCompleted,
			Amount:        pkg.Chips,
			BalanceBefore: helpers.Round2(after.Balance - pkg.Chips),
			BalanceAfter:  after.Balance,
			RefID:         uuid.New().String(),
			Provider:      "checkout",
			ProviderRef:   &sid,
			Note:          fmt.Sprintf("chip package %s via checkout", pkg.Code),
			Metadata:      datatypes.JSON(meta),
		}
		if err := tx.Create(&trx).Error; err != nil {
			return err
		}
		msg := fmt.Sprintf("%s chips credited", helpers.FormatAmount(pkg.Chips))
		return s.notifier.Notify(tx, account.ID, msg, models.SeverityInfo)
	})
	if err != nil {
		// A concurrent confirmation of the same session loses the unique-index
		// race; report the surviving credit instead.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if ferr := s.db.Where("provider_ref = ?", sessionID).First(&existing).Error; ferr == nil {
				return &existing, false, nil
			}
		}
		return nil, false, err
	}

	metrics.PaymentsProcessed.WithLabelValues(models.TrxTypeDeposit, models.TrxStatusCompleted).Inc()
	return &trx, true, nil
}

// ListTransactions returns the account's ledger, newest first.
func (s *PaymentService) ListTransactions(accountID uint, limit int) ([]models.PaymentTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.PaymentTransaction
	err := s.db.Where("account_id = ?", accountID).
		Order("id desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
