package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betline/models"
)

func TestPlatformSummaryAggregates(t *testing.T) {
	db, _, _, betting := newBettingStack(t)
	reporting := NewReportingService(db)

	heavy := seedAccount(t, db, 10_000, models.RoleRegular)
	light := seedAccount(t, db, 10_000, models.RoleRegular)
	event, home, away := seedEvent(t, db, time.Now().Add(time.Hour))

	_, err := betting.PlaceBet(heavy.ID, event.ID, home.ID, 2.00, 1_000)
	require.NoError(t, err)
	lost, err := betting.PlaceBet(light.ID, event.ID, away.ID, 3.00, 500)
	require.NoError(t, err)
	require.NoError(t, betting.SettleBet(lost.ID, models.BetStatusLost))

	summary, err := reporting.PlatformSummary()
	require.NoError(t, err)

	assert.EqualValues(t, 2, summary.Accounts)
	assert.EqualValues(t, 1, summary.OpenEvents)
	assert.EqualValues(t, 1, summary.PendingBets)
	assert.InDelta(t, 1_500, summary.StakeVolume, 0.001)
	assert.InDelta(t, 0, summary.PayoutVolume, 0.001)
	assert.InDelta(t, 1_500, summary.GrossMargin, 0.001)
}

func TestEventExposureGroupsByTeam(t *testing.T) {
	db, _, _, betting := newBettingStack(t)
	reporting := NewReportingService(db)

	first := seedAccount(t, db, 10_000, models.RoleRegular)
	second := seedAccount(t, db, 10_000, models.RoleRegular)
	event, home, away := seedEvent(t, db, time.Now().Add(time.Hour))

	_, err := betting.PlaceBet(first.ID, event.ID, home.ID, 2.00, 600)
	require.NoError(t, err)
	_, err = betting.PlaceBet(second.ID, event.ID, home.ID, 2.00, 400)
	require.NoError(t, err)
	_, err = betting.PlaceBet(second.ID, event.ID, away.ID, 4.00, 250)
	require.NoError(t, err)

	exposure, err := reporting.EventExposure(event.ID)
	require.NoError(t, err)
	require.Len(t, exposure, 2)

	byTeam := map[uint]TeamExposure{}
	for _, row := range exposure {
		byTeam[row.TeamID] = row
	}
	assert.InDelta(t, 1_000, byTeam[home.ID].PendingStake, 0.001)
	assert.InDelta(t, 2_000, byTeam[home.ID].PotentialPayout, 0.001)
	assert.InDelta(t, 250, byTeam[away.ID].PendingStake, 0.001)
	assert.InDelta(t, 1_000, byTeam[away.ID].PotentialPayout, 0.001)
}

func TestDailyRevenueSeries(t *testing.T) {
	db := newTestDB(t)
	reporting := NewReportingService(db)
	account := seedAccount(t, db, 0, models.RoleRegular)

	rows := []models.PaymentTransaction{
		{AccountID: account.ID, Type: models.TrxTypeDeposit, Status: models.TrxStatusCompleted, Amount: 100, RefID: "r1"},
		{AccountID: account.ID, Type: models.TrxTypeDeposit, Status: models.TrxStatusCompleted, Amount: 150, RefID: "r2"},
		{AccountID: account.ID, Type: models.TrxTypeWithdrawal, Status: models.TrxStatusCompleted, Amount: 80, RefID: "r3"},
		{AccountID: account.ID, Type: models.TrxTypeDeposit, Status: models.TrxStatusFailed, Amount: 999, RefID: "r4"},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	series, err := reporting.DailyRevenueSeries(7)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.InDelta(t, 250, series[0].Deposits, 0.001)
	assert.InDelta(t, 80, series[0].Withdrawals, 0.001)
}

func TestTopBettorsRanksByStake(t *testing.T) {
	db, _, _, betting := newBettingStack(t)
	reporting := NewReportingService(db)

	whale := seedAccount(t, db, 10_000, models.RoleRegular)
	minnow := seedAccount(t, db, 10_000, models.RoleRegular)
	event, home, away := seedEvent(t, db, time.Now().Add(time.Hour))

	_, err := betting.PlaceBet(whale.ID, event.ID, home.ID, 2.00, 900)
	require.NoError(t, err)
	_, err = betting.PlaceBet(minnow.ID, event.ID, away.ID, 2.00, 100)
	require.NoError(t, err)

	// Cancelled stakes fall out of the ranking.
	cancelled, err := betting.PlaceBet(minnow.ID, event.ID, away.ID, 2.00, 950)
	require.NoError(t, err)
	require.NoError(t, betting.CancelBet(cancelled.ID, minnow.ID))

	ranks, err := reporting.TopBettors(10)
	require.NoError(t, err)
	require.Len(t, ranks, 2)

	assert.Equal(t, whale.ID, ranks[0].AccountID)
	assert.InDelta(t, 900, ranks[0].TotalStaked, 0.001)
	assert.EqualValues(t, 1, ranks[0].BetCount)
	assert.Equal(t, minnow.ID, ranks[1].AccountID)
	assert.InDelta(t, 100, ranks[1].TotalStaked, 0.001)
}
