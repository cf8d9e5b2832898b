package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Jimmeey2323/referrals/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ReferralReward{}, &models.RunSummary{}))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return NewStore(db, zap.NewNop())
}

func pairRow(giving, receiving int64) *models.ReferralReward {
	return &models.ReferralReward{
		GivingMemberID:            giving,
		ReceivingMemberID:         receiving,
		ReceivingMemberEmail:      "new.member@example.com",
		ReceivingMemberVisits:     2,
		ReceivingMemberTotalSpend: decimal.NewFromFloat(49.90),
		HomeLocation:              "Kwality House",
		ProcessingStatus:          models.StatusQualified,
	}
}

func TestLookupUnknownPairReturnsNil(t *testing.T) {
	store := newTestStore(t)

	row, err := store.Lookup(context.Background(), 1, 102)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestCommitThenLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	row := pairRow(1, 102)
	row.GivingMemberRewarded = true
	require.NoError(t, store.Commit(ctx, row))

	got, err := store.Lookup(ctx, 1, 102)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.GivingMemberRewarded)
	assert.Equal(t, models.StatusQualified, got.ProcessingStatus)
	assert.Equal(t, "new.member@example.com", got.ReceivingMemberEmail)
}

func TestCommitSamePairTwiceKeepsOneRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, pairRow(1, 102)))
	require.NoError(t, store.Commit(ctx, pairRow(1, 102)))

	var count int64
	require.NoError(t, store.db.Model(&models.ReferralReward{}).
		Where("giving_member_id = ? AND receiving_member_id = ?", 1, 102).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCommitNeverClearsRewardedFlag(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := pairRow(1, 102)
	first.GivingMemberRewarded = true
	require.NoError(t, store.Commit(ctx, first))

	// A later sighting carries rewarded=false; the stored flag must survive.
	second := pairRow(1, 102)
	second.GivingMemberRewarded = false
	second.ReceivingMemberVisits = 7
	require.NoError(t, store.Commit(ctx, second))

	got, err := store.Lookup(ctx, 1, 102)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.GivingMemberRewarded)
	assert.Equal(t, 7, got.ReceivingMemberVisits)
}

func TestCommitRefreshesSnapshotFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, pairRow(1, 102)))

	updated := pairRow(1, 102)
	updated.ReceivingMemberEmail = "renamed@example.com"
	updated.ReceivingMemberVisits = 5
	updated.ReceivingMemberTotalSpend = decimal.NewFromFloat(120.00)
	updated.HomeLocation = "Supreme HQ"
	require.NoError(t, store.Commit(ctx, updated))

	got, err := store.Lookup(ctx, 1, 102)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "renamed@example.com", got.ReceivingMemberEmail)
	assert.Equal(t, 5, got.ReceivingMemberVisits)
	assert.Equal(t, "Supreme HQ", got.HomeLocation)
	assert.True(t, got.ReceivingMemberTotalSpend.Equal(decimal.NewFromFloat(120.00)))
}

func TestSamePairDifferentDirectionIsDistinct(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, pairRow(1, 102)))
	require.NoError(t, store.Commit(ctx, pairRow(102, 1)))

	var count int64
	require.NoError(t, store.db.Model(&models.ReferralReward{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRecordRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.RecordRun(ctx, &models.RunSummary{
		RunID:         "a2f1c7de-0000-4000-8000-000000000001",
		Candidates:    3,
		ReportRows:    3,
		RowsProcessed: 2,
		RewardsIssued: 1,
		Outcome:       "completed",
		StartedAt:     now.Add(-time.Second),
		FinishedAt:    now,
	}))

	var got models.RunSummary
	require.NoError(t, store.db.Where("run_id = ?", "a2f1c7de-0000-4000-8000-000000000001").First(&got).Error)
	assert.Equal(t, 1, got.RewardsIssued)
	assert.Equal(t, "completed", got.Outcome)
}
