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
	earningdomain "github.com/urbanease/urbanease/internal/earning/domain"
	earningrepo "github.com/urbanease/urbanease/internal/earning/repository"
	"github.com/urbanease/urbanease/internal/notification"
	"github.com/urbanease/urbanease/internal/testdb"
	"github.com/urbanease/urbanease/internal/withdrawal/domain"
	withdrawalrepo "github.com/urbanease/urbanease/internal/withdrawal/repository"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type withdrawalFixture struct {
	db       *gorm.DB
	svc      domain.Service
	earnings earningdomain.Repository
	clock    *clock.FakeClock
	genID    *snowflake.Node
}

func newWithdrawalFixture(t *testing.T) *withdrawalFixture {
	t.Helper()

	db := testdb.Open(t)
	genID, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	earnings := earningrepo.Provide()

	svc := NewService(Params{
		DB:       db,
		Log:      zaptest.NewLogger(t),
		GenID:    genID,
		Clock:    fake,
		Repo:     withdrawalrepo.Provide(),
		Earnings: earnings,
		LedgerCfg: config.NewStaticLedgerConfigHolder(config.LedgerConfig{
			MaturationDays:      7,
			MinWithdrawalAmount: 50_000,
			DefaultCommissionBP: 1_000,
		}),
		Notifier: notification.NoopNotifier{},
	})

	return &withdrawalFixture{db: db, svc: svc, earnings: earnings, clock: fake, genID: genID}
}

// seedEarning inserts one matured available entry and returns it. Gross is
// derived from net at the default 10% rate.
func (f *withdrawalFixture) seedEarning(t *testing.T, providerID snowflake.ID, net int64) *earningdomain.ProviderEarning {
	t.Helper()

	gross := net * 10 / 9
	bookingID := f.genID.Generate()
	entry := &earningdomain.ProviderEarning{
		ID:               f.genID.Generate(),
		ProviderID:       providerID,
		BookingID:        &bookingID,
		GrossAmount:      gross,
		CommissionRateBP: 1_000,
		CommissionAmount: gross - net,
		NetAmount:        net,
		Status:           earningdomain.StatusAvailable,
		AvailableAfter:   f.clock.Now().Add(-time.Hour),
		CreatedAt:        f.clock.Now().Add(-8 * 24 * time.Hour),
		UpdatedAt:        f.clock.Now().Add(-time.Hour),
	}
	created, err := f.earnings.Insert(context.Background(), f.db, entry)
	require.NoError(t, err)
	require.True(t, created)
	return entry
}

func bankDestination() map[string]interface{} {
	return map[string]interface{}{
		"account_number": "002301567890",
		"ifsc":           "HDFC0001234",
		"account_name":   "Asha Home Services",
	}
}

func (f *withdrawalFixture) request(t *testing.T, providerID snowflake.ID, amount int64) domain.PaymentRecord {
	t.Helper()
	record, err := f.svc.RequestWithdrawal(context.Background(), domain.RequestWithdrawalRequest{
		ProviderID:  providerID,
		Amount:      amount,
		Method:      domain.MethodBankTransfer,
		Destination: bankDestination(),
	})
	require.NoError(t, err)
	return record
}

func (f *withdrawalFixture) ledgerTotals(t *testing.T, providerID snowflake.ID) (gross, commission, net int64) {
	t.Helper()
	var totals struct {
		Gross      int64
		Commission int64
		Net        int64
	}
	require.NoError(t, f.db.Raw(
		`SELECT COALESCE(SUM(gross_amount), 0) AS gross,
		        COALESCE(SUM(commission_amount), 0) AS commission,
		        COALESCE(SUM(net_amount), 0) AS net
		 FROM provider_earnings WHERE provider_id = ?`,
		providerID,
	).Scan(&totals).Error)
	return totals.Gross, totals.Commission, totals.Net
}

func TestWithdrawalReservesWholeEntries(t *testing.T) {
	f := newWithdrawalFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	f.seedEarning(t, providerID, 60_000)
	f.seedEarning(t, providerID, 40_000)

	record := f.request(t, providerID, 100_000)
	assert.Equal(t, domain.StatusPending, record.Status)
	assert.Equal(t, 2, record.AllocatedCount)
	assert.NotEmpty(t, record.Reference)

	reserved, err := f.earnings.ListByPaymentRecord(ctx, f.db, record.ID)
	require.NoError(t, err)
	require.Len(t, reserved, 2)
	var total int64
	for _, e := range reserved {
		assert.Equal(t, earningdomain.StatusProcessing, e.Status)
		total += e.NetAmount
	}
	assert.Equal(t, int64(100_000), total)
}

func TestWithdrawalSplitsLastEntry(t *testing.T) {
	f := newWithdrawalFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	f.seedEarning(t, providerID, 60_000)
	second := f.seedEarning(t, providerID, 50_000)
	grossBefore, commissionBefore, netBefore := f.ledgerTotals(t, providerID)

	record := f.request(t, providerID, 90_000)
	assert.Equal(t, 2, record.AllocatedCount)

	reserved, err := f.earnings.ListByPaymentRecord(ctx, f.db, record.ID)
	require.NoError(t, err)
	require.Len(t, reserved, 2)

	var reservedNet int64
	var splitPart *earningdomain.ProviderEarning
	for _, e := range reserved {
		reservedNet += e.NetAmount
		if e.OriginEarningID != nil {
			splitPart = e
		}
	}
	assert.Equal(t, int64(90_000), reservedNet)

	require.NotNil(t, splitPart, "overshooting entry must be split")
	assert.Equal(t, second.ID, *splitPart.OriginEarningID)
	assert.Nil(t, splitPart.BookingID)
	assert.Equal(t, int64(30_000), splitPart.NetAmount)
	assert.Equal(t, splitPart.GrossAmount, splitPart.CommissionAmount+splitPart.NetAmount)

	// The remainder stays available with the booking reference intact.
	remainder, err := f.earnings.FindByBooking(ctx, f.db, *second.BookingID)
	require.NoError(t, err)
	require.NotNil(t, remainder)
	assert.Equal(t, earningdomain.StatusAvailable, remainder.Status)
	assert.Equal(t, int64(20_000), remainder.NetAmount)
	assert.Equal(t, remainder.GrossAmount, remainder.CommissionAmount+remainder.NetAmount)

	// Money is conserved across the split.
	grossAfter, commissionAfter, netAfter := f.ledgerTotals(t, providerID)
	assert.Equal(t, grossBefore, grossAfter)
	assert.Equal(t, commissionBefore, commissionAfter)
	assert.Equal(t, netBefore, netAfter)
}

func TestWithdrawalSplitsVeryLargeEntry(t *testing.T) {
	f := newWithdrawalFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	// gross*needed exceeds int64 here; the split must still round exactly.
	bookingID := f.genID.Generate()
	entry := &earningdomain.ProviderEarning{
		ID:               f.genID.Generate(),
		ProviderID:       providerID,
		BookingID:        &bookingID,
		GrossAmount:      6_000_000_000_000_000_000,
		CommissionRateBP: 1_000,
		CommissionAmount: 600_000_000_000_000_000,
		NetAmount:        5_400_000_000_000_000_000,
		Status:           earningdomain.StatusAvailable,
		AvailableAfter:   f.clock.Now().Add(-time.Hour),
		CreatedAt:        f.clock.Now().Add(-time.Hour),
		UpdatedAt:        f.clock.Now().Add(-time.Hour),
	}
	require.NoError(t, f.earnings.InsertRow(ctx, f.db, entry))

	record := f.request(t, providerID, 3_000_000_000_000_000_000)
	assert.Equal(t, 1, record.AllocatedCount)

	reserved, err := f.earnings.ListByPaymentRecord(ctx, f.db, record.ID)
	require.NoError(t, err)
	require.Len(t, reserved, 1)
	assert.Equal(t, int64(3_000_000_000_000_000_000), reserved[0].NetAmount)
	assert.Equal(t, int64(3_333_333_333_333_333_333), reserved[0].GrossAmount)
	assert.Equal(t, int64(333_333_333_333_333_333), reserved[0].CommissionAmount)

	remainder, err := f.earnings.FindByBooking(ctx, f.db, bookingID)
	require.NoError(t, err)
	require.NotNil(t, remainder)
	assert.Equal(t, int64(2_400_000_000_000_000_000), remainder.NetAmount)
	assert.Equal(t, remainder.GrossAmount, remainder.CommissionAmount+remainder.NetAmount)

	grossAfter, commissionAfter, netAfter := f.ledgerTotals(t, providerID)
	assert.Equal(t, int64(6_000_000_000_000_000_000), grossAfter)
	assert.Equal(t, int64(600_000_000_000_000_000), commissionAfter)
	assert.Equal(t, int64(5_400_000_000_000_000_000), netAfter)
}

func TestWithdrawalDrainsExactBalance(t *testing.T) {
	f := newWithdrawalFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	f.seedEarning(t, providerID, 60_000)
	f.seedEarning(t, providerID, 40_000)

	record := f.request(t, providerID, 100_000)
	assert.Equal(t, 2, record.AllocatedCount)

	available, err := f.earnings.SumAvailable(ctx, f.db, providerID, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), available)

	var splits int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(*) FROM provider_earnings WHERE origin_earning_id IS NOT NULL`,
	).Scan(&splits).Error)
	assert.Equal(t, int64(0), splits, "exact drain needs no split")
}

func TestWithdrawalRejectsShortfallWithoutMutation(t *testing.T) {
	f := newWithdrawalFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	f.seedEarning(t, providerID, 60_000)
	f.seedEarning(t, providerID, 40_000)

	_, err := f.svc.RequestWithdrawal(ctx, domain.RequestWithdrawalRequest{
		ProviderID:  providerID,
		Amount:      100_001,
		Method:      domain.MethodBankTransfer,
		Destination: bankDestination(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	var sErr *domain.ShortfallError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, int64(100_001), sErr.Requested)
	assert.Equal(t, int64(100_000), sErr.Available)
	assert.Equal(t, int64(1), sErr.Shortfall())

	// Nothing was reserved and no record was written.
	available, err := f.earnings.SumAvailable(ctx, f.db, providerID, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), available)

	var records int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM payment_records`).Scan(&records).Error)
	assert.Equal(t, int64(0), records)
}

func TestWithdrawalValidation(t *testing.T) {
	f := newWithdrawalFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	_, err := f.svc.RequestWithdrawal(ctx, domain.RequestWithdrawalRequest{
		ProviderID: providerID, Amount: 49_999, Method: domain.MethodBankTransfer, Destination: bankDestination(),
	})
	assert.ErrorIs(t, err, domain.ErrBelowMinimum)

	_, err = f.svc.RequestWithdrawal(ctx, domain.RequestWithdrawalRequest{
		ProviderID: providerID, Amount: 60_000, Method: "cash", Destination: bankDestination(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMethod)

	_, err = f.svc.RequestWithdrawal(ctx, domain.RequestWithdrawalRequest{
		ProviderID: providerID, Amount: 60_000, Method: domain.MethodBankTransfer,
		Destination: map[string]interface{}{"account_number": "002301567890"},
	})
	assert.ErrorIs(t, err, domain.ErrMissingDestination)

	_, err = f.svc.RequestWithdrawal(ctx, domain.RequestWithdrawalRequest{
		ProviderID: providerID, Amount: 60_000, Method: domain.MethodUPI,
		Destination: map[string]interface{}{},
	})
	assert.ErrorIs(t, err, domain.ErrMissingDestination)
}

func TestApproveFinalizesReservedEntries(t *testing.T) {
	f := newWithdrawalFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	f.seedEarning(t, providerID, 60_000)
	record := f.request(t, providerID, 60_000)

	approved, err := f.svc.Approve(ctx, domain.DecisionRequest{
		PaymentRecordID: record.ID,
		Actor:           "admin",
		ExternalTxnID:   "RZP-20250601-0042",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, approved.Status)
	assert.Equal(t, "RZP-20250601-0042", approved.ExternalTxnID)
	require.NotNil(t, approved.ProcessedAt)

	reserved, err := f.earnings.ListByPaymentRecord(ctx, f.db, record.ID)
	require.NoError(t, err)
	require.Len(t, reserved, 1)
	assert.Equal(t, earningdomain.StatusPaid, reserved[0].Status)
}

func TestApproveRequiresExternalTxnID(t *testing.T) {
	f := newWithdrawalFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	f.seedEarning(t, providerID, 60_000)
	record := f.request(t, providerID, 60_000)

	_, err := f.svc.Approve(ctx, domain.DecisionRequest{PaymentRecordID: record.ID, Actor: "admin"})
	assert.ErrorIs(t, err, domain.ErrMissingExternalTxn)
	_, err = f.svc.Approve(ctx, domain.DecisionRequest{PaymentRecordID: record.ID, Actor: "admin", ExternalTxnID: "   "})
	assert.ErrorIs(t, err, domain.ErrMissingExternalTxn)

	// Nothing moved: the record is still pending and the entries reserved.
	got, err := f.svc.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	reserved, err := f.earnings.ListByPaymentRecord(ctx, f.db, record.ID)
	require.NoError(t, err)
	require.Len(t, reserved, 1)
	assert.Equal(t, earningdomain.StatusProcessing, reserved[0].Status)
}

func TestRejectReleasesReservedEntries(t *testing.T) {
	f := newWithdrawalFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	f.seedEarning(t, providerID, 60_000)
	record := f.request(t, providerID, 60_000)

	rejected, err := f.svc.Reject(ctx, domain.DecisionRequest{
		PaymentRecordID: record.ID,
		Actor:           "admin",
		Note:            "bank account verification failed",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)

	available, err := f.earnings.SumAvailable(ctx, f.db, providerID, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(60_000), available, "rejected funds return to the pool")

	var linked int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(*) FROM provider_earnings WHERE payment_record_id = ?`, record.ID,
	).Scan(&linked).Error)
	assert.Equal(t, int64(0), linked)
}

func TestDecisionIsFinal(t *testing.T) {
	f := newWithdrawalFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	f.seedEarning(t, providerID, 60_000)
	record := f.request(t, providerID, 60_000)

	_, err := f.svc.Approve(ctx, domain.DecisionRequest{PaymentRecordID: record.ID, Actor: "admin", ExternalTxnID: "RZP-20250601-0001"})
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, domain.DecisionRequest{PaymentRecordID: record.ID, Actor: "admin", ExternalTxnID: "RZP-20250601-0002"})
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
	_, err = f.svc.Reject(ctx, domain.DecisionRequest{PaymentRecordID: record.ID, Actor: "admin"})
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
}

func TestWithdrawalAllocatesOldestFirst(t *testing.T) {
	f := newWithdrawalFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	oldest := f.seedEarning(t, providerID, 60_000)
	newer := &earningdomain.ProviderEarning{
		ID:               f.genID.Generate(),
		ProviderID:       providerID,
		GrossAmount:      44_445,
		CommissionRateBP: 1_000,
		CommissionAmount: 4_445,
		NetAmount:        40_000,
		Status:           earningdomain.StatusAvailable,
		AvailableAfter:   f.clock.Now().Add(-time.Minute),
		CreatedAt:        f.clock.Now().Add(-time.Minute),
		UpdatedAt:        f.clock.Now().Add(-time.Minute),
	}
	require.NoError(t, f.earnings.InsertRow(ctx, f.db, newer))

	record := f.request(t, providerID, 60_000)
	assert.Equal(t, 1, record.AllocatedCount)

	reserved, err := f.earnings.ListByPaymentRecord(ctx, f.db, record.ID)
	require.NoError(t, err)
	require.Len(t, reserved, 1)
	assert.Equal(t, oldest.ID, reserved[0].ID)

	available, err := f.earnings.SumAvailable(ctx, f.db, providerID, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(40_000), available)
}

func TestPendingEarningsAreNotWithdrawable(t *testing.T) {
	f := newWithdrawalFixture(t)
	providerID := f.genID.Generate()
	ctx := context.Background()

	bookingID := f.genID.Generate()
	pending := &earningdomain.ProviderEarning{
		ID:               f.genID.Generate(),
		ProviderID:       providerID,
		BookingID:        &bookingID,
		GrossAmount:      66_667,
		CommissionRateBP: 1_000,
		CommissionAmount: 6_667,
		NetAmount:        60_000,
		Status:           earningdomain.StatusPending,
		AvailableAfter:   f.clock.Now().Add(5 * 24 * time.Hour),
		CreatedAt:        f.clock.Now(),
		UpdatedAt:        f.clock.Now(),
	}
	created, err := f.earnings.Insert(ctx, f.db, pending)
	require.NoError(t, err)
	require.True(t, created)

	_, err = f.svc.RequestWithdrawal(ctx, domain.RequestWithdrawalRequest{
		ProviderID:  providerID,
		Amount:      60_000,
		Method:      domain.MethodBankTransfer,
		Destination: bankDestination(),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// After maturation the same request goes through via promote-on-read.
	f.clock.Advance(6 * 24 * time.Hour)
	record := f.request(t, providerID, 60_000)
	assert.Equal(t, 1, record.AllocatedCount)
}
