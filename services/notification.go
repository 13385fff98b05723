package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"betline/models"
	"betline/providers/email"
)

type NotificationService struct {
	db    *gorm.DB
	email email.Client
}

func NewNotificationService(db *gorm.DB, emailClient email.Client) *NotificationService {
	if emailClient == nil {
		emailClient = email.Disabled{}
	}
	return &NotificationService{db: db, email: emailClient}
}

// Notify persists an in-app notification inside the caller's transaction.
// Critical messages additionally go out by email, but only once the row is
// durable: inside a transaction the send waits for the commit, so a rollback
// never emails anyone. Email failures are logged, never propagated.
func (s *NotificationService) Notify(tx *gorm.DB, accountID uint, message, severity string) error {
	if tx == nil {
		tx = s.db
	}
	n := models.Notification{
		AccountID: accountID,
		Message:   message,
		Severity:  severity,
	}
	if err := tx.Create(&n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if severity == models.SeverityCritical {
		if _, inTx := tx.Statement.ConnPool.(gorm.TxCommitter); inTx {
			go s.alertWhenVisible(n.ID, accountID)
		} else {
			var account models.Account
			if err := tx.First(&account, accountID).Error; err == nil {
				go s.sendEmail(account.Email, "critical-alert", map[string]string{"message": message})
			}
		}
	}
	return nil
}

// alertWhenVisible emails a critical notification once the caller's
// transaction has committed and the row is readable through the base handle.
// The row never appearing means the transaction rolled back, and the alert
// is dropped with it.
func (s *NotificationService) alertWhenVisible(notificationID, accountID uint) {
	for i := 0; i < 6; i++ {
		var n models.Notification
		if err := s.db.First(&n, notificationID).Error; err == nil {
			var account models.Account
			if err := s.db.First(&account, accountID).Error; err != nil {
				return
			}
			s.sendEmail(account.Email, "critical-alert", map[string]string{"message": n.Message})
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// SendTemplatedEmail exposes the email boundary to flows that address a user
// directly (receipts, settlement results). Fire-and-forget.
func (s *NotificationService) SendTemplatedEmail(address, templateKey string, substitutions map[string]string) {
	go s.sendEmail(address, templateKey, substitutions)
}

func (s *NotificationService) sendEmail(address, templateKey string, substitutions map[string]string) {
	if err := s.email.SendTemplated(address, templateKey, substitutions); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"to":       address,
			"template": templateKey,
		}).Warn("email delivery failed")
	}
}

// List returns the account's inbox, unread first, newest first.
func (s *NotificationService) List(accountID uint, unreadOnly bool) ([]models.Notification, error) {
	q := s.db.Where("account_id = ?", accountID)
	if unreadOnly {
		q = q.Where("is_read = false")
	}
	var out []models.Notification
	if err := q.Order("is_read asc, id desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead flips the read flag; only the owning account may touch it.
func (s *NotificationService) MarkRead(accountID, notificationID uint) error {
	res := s.db.Model(&models.Notification{}).
		Where("id = ? AND account_id = ?", notificationID, accountID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: notification %d", ErrNotFound, notificationID)
	}
	return nil
}

func (s *NotificationService) Delete(accountID, notificationID uint) error {
	res := s.db.Where("id = ? AND account_id = ?", notificationID, accountID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: notification %d", ErrNotFound, notificationID)
	}
	return nil
}

// UnreadCount backs the inbox badge.
func (s *NotificationService) UnreadCount(accountID uint) (int64, error) {
	var n int64
	err := s.db.Model(&models.Notification{}).
		Where("account_id = ? AND is_read = false", accountID).
		Count(&n).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	return n, nil
}
