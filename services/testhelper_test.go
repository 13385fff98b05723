package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"betline/config"
	"betline/database"
	"betline/models"
	"betline/providers/email"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

var accountSeq int

func seedAccount(t *testing.T, db *gorm.DB, balance float64, role string) *models.Account {
	t.Helper()
	accountSeq++
	account := &models.Account{
		Code:         fmt.Sprintf("acct_%d", accountSeq),
		Email:        fmt.Sprintf("acct_%d@example.com", accountSeq),
		PasswordHash: "x",
		Role:         role,
		Balance:      balance,
		IsActive:     true,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

var eventSeq int

// seedEvent creates a sport, two teams and an event starting at startsAt.
func seedEvent(t *testing.T, db *gorm.DB, startsAt time.Time) (*models.Event, *models.Team, *models.Team) {
	t.Helper()
	eventSeq++
	sport := &models.Sport{Code: fmt.Sprintf("sport_%d", eventSeq), Name: "Test Sport"}
	require.NoError(t, db.Create(sport).Error)

	home := &models.Team{SportID: sport.ID, Code: fmt.Sprintf("home_%d", eventSeq), Name: "Home"}
	away := &models.Team{SportID: sport.ID, Code: fmt.Sprintf("away_%d", eventSeq), Name: "Away"}
	require.NoError(t, db.Create(home).Error)
	require.NoError(t, db.Create(away).Error)

	event := &models.Event{
		SportID:     sport.ID,
		ExternalRef: fmt.Sprintf("evt_%d", eventSeq),
		HomeTeamID:  home.ID,
		AwayTeamID:  away.ID,
		StartsAt:    startsAt,
	}
	require.NoError(t, db.Create(event).Error)
	return event, home, away
}

func reloadAccount(t *testing.T, db *gorm.DB, id uint) *models.Account {
	t.Helper()
	var account models.Account
	require.NoError(t, db.First(&account, id).Error)
	return &account
}

func reloadBet(t *testing.T, db *gorm.DB, id uint) *models.Bet {
	t.Helper()
	var bet models.Bet
	require.NoError(t, db.First(&bet, id).Error)
	return &bet
}

// newBettingStack wires the betting service over a fresh in-memory DB.
func newBettingStack(t *testing.T) (*gorm.DB, *config.Config, *AccountService, *BettingService) {
	t.Helper()
	db := newTestDB(t)
	cfg := config.Load()
	accounts := NewAccountService(db, cfg)
	notifier := NewNotificationService(db, email.Disabled{})
	betting := NewBettingService(db, cfg, accounts, notifier)
	return db, cfg, accounts, betting
}
