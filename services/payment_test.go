package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"betline/config"
	"betline/models"
	"betline/providers/email"
	"betline/providers/gateway"
)

// fakeCheckout serves sessions from memory and counts remote lookups.
type fakeCheckout struct {
	sessions map[string]*gateway.CheckoutSession
	fetches  int
}

func (f *fakeCheckout) CreateSession(accountCode, packageCode string, amount float64, successURL string) (*gateway.CheckoutSession, error) {
	sess := &gateway.CheckoutSession{
		ID:            fmt.Sprintf("cs_test_%d", len(f.sessions)+1),
		PaymentStatus: "open",
		AmountTotal:   amount,
		Currency:      "usd",
		Metadata:      map[string]string{"account_code": accountCode, "package": packageCode},
	}
	if f.sessions == nil {
		f.sessions = map[string]*gateway.CheckoutSession{}
	}
	f.sessions[sess.ID] = sess
	return sess, nil
}

func (f *fakeCheckout) GetSession(id string) (*gateway.CheckoutSession, error) {
	f.fetches++
	sess, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no such session %s", id)
	}
	return sess, nil
}

func newPaymentStack(t *testing.T, successRate float64) (*gorm.DB, *config.Config, *fakeCheckout, *BettingService, *PaymentService) {
	t.Helper()
	db := newTestDB(t)
	cfg := config.Load()
	accounts := NewAccountService(db, cfg)
	notifier := NewNotificationService(db, email.Disabled{})
	betting := NewBettingService(db, cfg, accounts, notifier)
	checkout := &fakeCheckout{}
	card := gateway.NewSimulatedGateway(successRate, 1)
	payments := NewPaymentService(db, cfg, card, checkout, accounts, betting, notifier)
	return db, cfg, checkout, betting, payments
}

func seedMethod(t *testing.T, payments *PaymentService, accountID uint) *models.PaymentMethod {
	t.Helper()
	method, err := payments.AddMethod(accountID, "visa", "4242424242424242")
	require.NoError(t, err)
	return method
}

func TestProcessDepositCreditsBalance(t *testing.T) {
	db, _, _, _, payments := newPaymentStack(t, 1)
	account := seedAccount(t, db, 100, models.RoleRegular)
	method := seedMethod(t, payments, account.ID)

	trx, err := payments.ProcessDeposit(account.ID, method.ID, 250)
	require.NoError(t, err)

	assert.Equal(t, models.TrxStatusCompleted, trx.Status)
	assert.InDelta(t, 350, reloadAccount(t, db, account.ID).Balance, 0.001)

	var stored models.PaymentTransaction
	require.NoError(t, db.First(&stored, trx.ID).Error)
	assert.Equal(t, models.TrxStatusCompleted, stored.Status)
	assert.InDelta(t, 100, stored.BalanceBefore, 0.001)
	assert.InDelta(t, 350, stored.BalanceAfter, 0.001)
	assert.NotNil(t, stored.ProviderRef)
}

func TestProcessDepositDeclinedLeavesAuditTrail(t *testing.T) {
	db, _, _, _, payments := newPaymentStack(t, 0)
	account := seedAccount(t, db, 100, models.RoleRegular)
	method := seedMethod(t, payments, account.ID)

	trx, err := payments.ProcessDeposit(account.ID, method.ID, 250)
	require.ErrorIs(t, err, ErrExternalService)

	assert.Equal(t, models.TrxStatusFailed, trx.Status)
	assert.InDelta(t, 100, reloadAccount(t, db, account.ID).Balance, 0.001)

	var stored models.PaymentTransaction
	require.NoError(t, db.First(&stored, trx.ID).Error)
	assert.Equal(t, models.TrxStatusFailed, stored.Status)
}

func TestProcessDepositEnforcesBounds(t *testing.T) {
	db, _, _, _, payments := newPaymentStack(t, 1)
	account := seedAccount(t, db, 100, models.RoleRegular)
	method := seedMethod(t, payments, account.ID)

	_, err := payments.ProcessDeposit(account.ID, method.ID, 5)
	require.ErrorIs(t, err, ErrLimitExceeded)

	_, err = payments.ProcessDeposit(account.ID, method.ID, 1_000_000)
	require.ErrorIs(t, err, ErrLimitExceeded)

	_, err = payments.ProcessDeposit(account.ID, 9999, 250)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProcessWithdrawalDebitsBalance(t *testing.T) {
	db, _, _, _, payments := newPaymentStack(t, 1)
	account := seedAccount(t, db, 1_000, models.RoleRegular)
	method := seedMethod(t, payments, account.ID)

	trx, err := payments.ProcessWithdrawal(account.ID, method.ID, 200)
	require.NoError(t, err)

	assert.Equal(t, models.TrxStatusCompleted, trx.Status)
	assert.InDelta(t, 800, reloadAccount(t, db, account.ID).Balance, 0.001)
}

func TestProcessWithdrawalBlockedByPendingBets(t *testing.T) {
	db, _, _, betting, payments := newPaymentStack(t, 1)
	account := seedAccount(t, db, 1_000, models.RoleRegular)
	method := seedMethod(t, payments, account.ID)
	event, home, _ := seedEvent(t, db, time.Now().Add(time.Hour))

	_, err := betting.PlaceBet(account.ID, event.ID, home.ID, 2.00, 100)
	require.NoError(t, err)

	_, err = payments.ProcessWithdrawal(account.ID, method.ID, 200)
	require.ErrorIs(t, err, ErrLimitExceeded)
	assert.InDelta(t, 900, reloadAccount(t, db, account.ID).Balance, 0.001)
}

func TestProcessWithdrawalInsufficientFunds(t *testing.T) {
	db, _, _, _, payments := newPaymentStack(t, 1)
	account := seedAccount(t, db, 100, models.RoleRegular)
	method := seedMethod(t, payments, account.ID)

	_, err := payments.ProcessWithdrawal(account.ID, method.ID, 200)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.InDelta(t, 100, reloadAccount(t, db, account.ID).Balance, 0.001)
}

func TestProcessWithdrawalGatewayFailureRecredits(t *testing.T) {
	db, _, _, _, payments := newPaymentStack(t, 0)
	account := seedAccount(t, db, 1_000, models.RoleRegular)
	method := seedMethod(t, payments, account.ID)

	trx, err := payments.ProcessWithdrawal(account.ID, method.ID, 200)
	require.ErrorIs(t, err, ErrExternalService)

	assert.InDelta(t, 1_000, reloadAccount(t, db, account.ID).Balance, 0.001)
	var stored models.PaymentTransaction
	require.NoError(t, db.First(&stored, trx.ID).Error)
	assert.Equal(t, models.TrxStatusFailed, stored.Status)
}

func TestCreateCheckoutResolvesPackage(t *testing.T) {
	db, cfg, checkout, _, payments := newPaymentStack(t, 1)
	account := seedAccount(t, db, 0, models.RoleRegular)

	sess, err := payments.CreateCheckout(account.ID, "starter", "https://betline.example/return")
	require.NoError(t, err)

	assert.Equal(t, account.Code, sess.Metadata["account_code"])
	assert.Equal(t, "starter", sess.Metadata["package"])
	assert.InDelta(t, cfg.ChipPackages["starter"].Price, sess.AmountTotal, 0.001)
	assert.Len(t, checkout.sessions, 1)

	_, err = payments.CreateCheckout(account.ID, "no-such-package", "https://betline.example/return")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmCheckoutCreditsExactlyOnce(t *testing.T) {
	db, cfg, checkout, _, payments := newPaymentStack(t, 1)
	account := seedAccount(t, db, 0, models.RoleRegular)

	sess, err := payments.CreateCheckout(account.ID, "starter", "https://betline.example/return")
	require.NoError(t, err)
	checkout.sessions[sess.ID].PaymentStatus = "paid"

	trx, credited, err := payments.ConfirmCheckout(sess.ID)
	require.NoError(t, err)
	assert.True(t, credited)
	assert.InDelta(t, cfg.ChipPackages["starter"].Chips, reloadAccount(t, db, account.ID).Balance, 0.001)
	require.NotNil(t, trx.ProviderRef)
	assert.Equal(t, sess.ID, *trx.ProviderRef)

	// Revisiting the return URL is a no-op served from the ledger.
	again, credited, err := payments.ConfirmCheckout(sess.ID)
	require.NoError(t, err)
	assert.False(t, credited)
	assert.Equal(t, trx.ID, again.ID)
	assert.InDelta(t, cfg.ChipPackages["starter"].Chips, reloadAccount(t, db, account.ID).Balance, 0.001)
	assert.Equal(t, 1, checkout.fetches)
}

func TestConfirmCheckoutRefusesUnpaidSession(t *testing.T) {
	db, _, _, _, payments := newPaymentStack(t, 1)
	account := seedAccount(t, db, 0, models.RoleRegular)

	sess, err := payments.CreateCheckout(account.ID, "starter", "https://betline.example/return")
	require.NoError(t, err)

	_, _, err = payments.ConfirmCheckout(sess.ID)
	require.ErrorIs(t, err, ErrValidation)
	assert.InDelta(t, 0, reloadAccount(t, db, account.ID).Balance, 0.001)

	_, _, err = payments.ConfirmCheckout("")
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = payments.ConfirmCheckout("cs_unknown")
	require.ErrorIs(t, err, ErrExternalService)
}

func TestPaymentMethodLifecycle(t *testing.T) {
	db, _, _, _, payments := newPaymentStack(t, 1)
	account := seedAccount(t, db, 0, models.RoleRegular)

	method, err := payments.AddMethod(account.ID, "visa", "4242424242424242")
	require.NoError(t, err)
	assert.Equal(t, "****4242", method.MaskedRef)

	_, err = payments.AddMethod(account.ID, "", "4242")
	require.ErrorIs(t, err, ErrValidation)

	methods, err := payments.ListMethods(account.ID)
	require.NoError(t, err)
	require.Len(t, methods, 1)

	require.NoError(t, payments.DeactivateMethod(account.ID, method.ID))
	methods, err = payments.ListMethods(account.ID)
	require.NoError(t, err)
	assert.Empty(t, methods)

	// The row survives deactivation for ledger references.
	var stored models.PaymentMethod
	require.NoError(t, db.First(&stored, method.ID).Error)
	assert.False(t, stored.IsActive)

	err = payments.DeactivateMethod(account.ID, method.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListTransactionsNewestFirst(t *testing.T) {
	db, _, _, _, payments := newPaymentStack(t, 1)
	account := seedAccount(t, db, 100, models.RoleRegular)
	method := seedMethod(t, payments, account.ID)

	first, err := payments.ProcessDeposit(account.ID, method.ID, 50)
	require.NoError(t, err)
	second, err := payments.ProcessDeposit(account.ID, method.ID, 60)
	require.NoError(t, err)

	out, err := payments.ListTransactions(account.ID, 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, second.ID, out[0].ID)
	assert.Equal(t, first.ID, out[1].ID)
}
