package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"betline/config"
	"betline/helpers"
	"betline/models"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

// Balance mutation kinds accepted by UpdateBalance.
const (
	BalanceDeposit    = "deposit"
	BalanceWithdrawal = "withdrawal"
	BalanceBet        = "bet"
	BalancePayout     = "payout"
	BalanceRefund     = "refund"
)

type AccountService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewAccountService(db *gorm.DB, cfg *config.Config) *AccountService {
	return &AccountService{db: db, cfg: cfg}
}

// Register creates a new regular account with a zero balance.
func (s *AccountService) Register(name, email, password string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: name and a valid email are required", ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := models.Account{
		Code:         helpers.GenerateAccountCode(name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleRegular,
		IsActive:     true,
	}
	if err := s.db.Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: account already exists", ErrValidation)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &account, nil
}

// Authenticate verifies credentials and opens a session. Five consecutive
// failures lock the account for fifteen minutes.
func (s *AccountService) Authenticate(email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var account models.Account
	if err := s.db.Where("email = ? AND is_active = true", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	now := time.Now()
	if account.Locked(now) {
		return nil, fmt.Errorf("%w: account locked until %s", ErrUnauthorized, account.LockedUntil.Format(time.RFC3339))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		updates := map[string]any{"failed_logins": account.FailedLogins + 1}
		if account.FailedLogins+1 >= maxFailedLogins {
			until := now.Add(lockoutDuration)
			updates["locked_until"] = &until
			updates["failed_logins"] = 0
		}
		if uerr := s.db.Model(&account).Updates(updates).Error; uerr != nil {
			logrus.WithError(uerr).WithField("account", account.Code).Error("failed to record login failure")
		}
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	if account.FailedLogins > 0 || account.LockedUntil != nil {
		if err := s.db.Model(&account).Updates(map[string]any{"failed_logins": 0, "locked_until": nil}).Error; err != nil {
			logrus.WithError(err).WithField("account", account.Code).Error("failed to reset login attempts")
		}
	}

	session := models.Session{
		AccountID: account.ID,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Account = account
	return &session, nil
}

// Logout removes the session; unknown tokens are a no-op.
func (s *AccountService) Logout(sid string) error {
	return s.db.Where("sid = ?", sid).Delete(&models.Session{}).Error
}

func (s *AccountService) GetByID(id uint) (*models.Account, error) {
	var account models.Account
	if err := s.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: account %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &account, nil
}

// UpdateBalance is the sole mutator of Account.Balance. Credits
// (deposit/payout/refund) always apply; debits (withdrawal/bet) use an atomic
// conditional decrement and fail without touching state when the balance would
// go negative. Callers inside a transaction pass their tx handle so the
// mutation commits or rolls back with the rest of their writes.
func (s *AccountService) UpdateBalance(tx *gorm.DB, accountID uint, amount float64, kind string) error {
	if tx == nil {
		tx = s.db
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	amount = helpers.Round2(amount)

	switch kind {
	case BalanceDeposit, BalancePayout, BalanceRefund:
		res := tx.Model(&models.Account{}).
			Where("id = ?", accountID).
			UpdateColumn("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: account %d", ErrNotFound, accountID)
		}
	case BalanceWithdrawal, BalanceBet:
		// Conditional decrement: the WHERE guard makes concurrent debits safe
		// without a row lock; zero rows affected means the funds were not there.
		res := tx.Model(&models.Account{}).
			Where("id = ? AND balance >= ?", accountID, amount).
			UpdateColumn("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Account{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("%w: account %d", ErrNotFound, accountID)
			}
			return fmt.Errorf("%w: balance below %s", ErrInsufficientFunds, helpers.FormatAmount(amount))
		}
	default:
		return fmt.Errorf("%w: unknown balance kind %q", ErrValidation, kind)
	}
	return nil
}
