package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urbanease/urbanease/internal/clock"
	"github.com/urbanease/urbanease/internal/config"
	"github.com/urbanease/urbanease/internal/earning/domain"
	earningrepo "github.com/urbanease/urbanease/internal/earning/repository"
	"github.com/urbanease/urbanease/internal/notification"
	"github.com/urbanease/urbanease/internal/testdb"
	pkgdb "github.com/urbanease/urbanease/pkg/db"
	"github.com/urbanease/urbanease/pkg/db/pagination"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type earningFixture struct {
	db    *gorm.DB
	svc   domain.Service
	clock *clock.FakeClock
	genID *snowflake.Node
}

func newEarningFixture(t *testing.T) *earningFixture {
	t.Helper()

	db := testdb.Open(t)
	genID, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: genID,
		Clock: fake,
		Repo:  earningrepo.Provide(),
		LedgerCfg: config.NewStaticLedgerConfigHolder(config.LedgerConfig{
			MaturationDays:      7,
			MinWithdrawalAmount: 50_000,
			DefaultCommissionBP: 1_000,
		}),
		Notifier: notification.NoopNotifier{},
	})

	return &earningFixture{db: db, svc: svc, clock: fake, genID: genID}
}

func (f *earningFixture) settle(t *testing.T, providerID snowflake.ID, gross, commission int64) *domain.ProviderEarning {
	t.Helper()
	entry, created, err := f.svc.CreateForBooking(context.Background(), f.db, domain.SettlementInput{
		BookingID:        f.genID.Generate(),
		ProviderID:       providerID,
		GrossAmount:      gross,
		CommissionRateBP: 1_000,
		CommissionAmount: commission,
	})
	require.NoError(t, err)
	require.True(t, created)
	return entry
}

func TestCreateForBookingComputesNet(t *testing.T) {
	f := newEarningFixture(t)
	providerID := f.genID.Generate()

	entry := f.settle(t, providerID, 100_000, 10_000)
	assert.Equal(t, int64(90_000), entry.NetAmount)
	assert.Equal(t, domain.StatusPending, entry.Status)
	assert.WithinDuration(t, f.clock.Now().Add(7*24*time.Hour), entry.AvailableAfter, time.Second)
}

func TestCreateForBookingIdempotent(t *testing.T) {
	f := newEarningFixture(t)
	providerID := f.genID.Generate()
	bookingID := f.genID.Generate()
	ctx := context.Background()

	in := domain.SettlementInput{
		BookingID:        bookingID,
		ProviderID:       providerID,
		GrossAmount:      100_000,
		CommissionRateBP: 1_000,
		CommissionAmount: 10_000,
	}
	first, created, err := f.svc.CreateForBooking(ctx, f.db, in)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := f.svc.CreateForBooking(ctx, f.db, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestDuplicateBookingRowIsDetected(t *testing.T) {
	f := newEarningFixture(t)
	providerID := f.genID.Generate()
	bookingID := f.genID.Generate()
	ctx := context.Background()
	repo := earningrepo.Provide()

	row := func() *domain.ProviderEarning {
		return &domain.ProviderEarning{
			ID:               f.genID.Generate(),
			ProviderID:       providerID,
			BookingID:        &bookingID,
			GrossAmount:      100_000,
			CommissionRateBP: 1_000,
			CommissionAmount: 10_000,
			NetAmount:        90_000,
			Status:           domain.StatusPending,
			AvailableAfter:   f.clock.Now(),
			CreatedAt:        f.clock.Now(),
			UpdatedAt:        f.clock.Now(),
		}
	}
	require.NoError(t, repo.InsertRow(ctx, f.db, row()))

	err := repo.InsertRow(ctx, f.db, row())
	require.Error(t, err)
	assert.True(t, pkgdb.IsDuplicateKeyErr(err))
	assert.True(t, pkgdb.IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.False(t, pkgdb.IsDuplicateKeyErr(gorm.ErrInvalidData))
	assert.False(t, pkgdb.IsDuplicateKeyErr(nil))
}

func TestCreateForBookingValidation(t *testing.T) {
	f := newEarningFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.CreateForBooking(ctx, f.db, domain.SettlementInput{
		BookingID: f.genID.Generate(), GrossAmount: 100,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)

	_, _, err = f.svc.CreateForBooking(ctx, f.db, domain.SettlementInput{
		ProviderID: f.genID.Generate(), GrossAmount: 100,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidBooking)

	_, _, err = f.svc.CreateForBooking(ctx, f.db, domain.SettlementInput{
		BookingID:        f.genID.Generate(),
		ProviderID:       f.genID.Generate(),
		GrossAmount:      100,
		CommissionAmount: 200,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestBalanceReflectsMaturation(t *testing.T) {
	f := newEarningFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	f.settle(t, providerID, 100_000, 10_000)

	balance, err := f.svc.AvailableBalance(ctx, providerID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance, "pending earning is not withdrawable")

	f.clock.Advance(6 * 24 * time.Hour)
	balance, err = f.svc.AvailableBalance(ctx, providerID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance, "still inside the maturation window")

	f.clock.Advance(25 * time.Hour)
	balance, err = f.svc.AvailableBalance(ctx, providerID)
	require.NoError(t, err)
	assert.Equal(t, int64(90_000), balance)
}

func TestSummaryBuckets(t *testing.T) {
	f := newEarningFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	f.settle(t, providerID, 100_000, 10_000)
	f.clock.Advance(8 * 24 * time.Hour)
	f.settle(t, providerID, 50_000, 5_000)

	summary, err := f.svc.GetSummary(ctx, providerID)
	require.NoError(t, err)
	assert.Equal(t, int64(90_000), summary.Available)
	assert.Equal(t, int64(45_000), summary.Pending)
	assert.Equal(t, int64(0), summary.Reserved)
	assert.Equal(t, int64(0), summary.Withdrawn)
	assert.Equal(t, int64(135_000), summary.Lifetime)
}

func TestListPaginates(t *testing.T) {
	f := newEarningFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.settle(t, providerID, 10_000, 1_000)
	}

	page1, info, err := f.svc.List(ctx, providerID, pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotNil(t, info)
	assert.True(t, info.HasMore)

	page2, _, err := f.svc.List(ctx, providerID, pagination.Pagination{PageSize: 2, PageToken: info.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Less(t, int64(page2[0].ID), int64(page1[1].ID))
}
