package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urbanease/urbanease/internal/booking/domain"
	bookingrepo "github.com/urbanease/urbanease/internal/booking/repository"
	"github.com/urbanease/urbanease/internal/clock"
	commissionrepo "github.com/urbanease/urbanease/internal/commission/repository"
	commissionservice "github.com/urbanease/urbanease/internal/commission/service"
	"github.com/urbanease/urbanease/internal/config"
	earningdomain "github.com/urbanease/urbanease/internal/earning/domain"
	earningrepo "github.com/urbanease/urbanease/internal/earning/repository"
	earningservice "github.com/urbanease/urbanease/internal/earning/service"
	"github.com/urbanease/urbanease/internal/notification"
	"github.com/urbanease/urbanease/internal/testdb"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      domain.Service
	earnings earningdomain.Repository
	clock    *clock.FakeClock
	genID    *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testdb.Open(t)
	log := zaptest.NewLogger(t)
	genID, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	holder := config.NewStaticLedgerConfigHolder(config.LedgerConfig{
		MaturationDays:      7,
		MinWithdrawalAmount: 50_000,
		DefaultCommissionBP: 1_000,
	})

	commissionSvc := commissionservice.NewService(commissionservice.Params{
		DB:        db,
		Log:       log,
		GenID:     genID,
		Clock:     fake,
		Repo:      commissionrepo.Provide(),
		LedgerCfg: holder,
	})

	earningRepo := earningrepo.Provide()
	earningSvc := earningservice.NewService(earningservice.Params{
		DB:        db,
		Log:       log,
		GenID:     genID,
		Clock:     fake,
		Repo:      earningRepo,
		LedgerCfg: holder,
		Notifier:  notification.NoopNotifier{},
	})

	svc := NewService(Params{
		DB:         db,
		Log:        log,
		GenID:      genID,
		Clock:      fake,
		Repo:       bookingrepo.Provide(),
		Commission: commissionSvc,
		Earnings:   earningSvc,
	})

	return &fixture{
		db:       db,
		svc:      svc,
		earnings: earningRepo,
		clock:    fake,
		genID:    genID,
	}
}

func (f *fixture) createBooking(t *testing.T) domain.Booking {
	t.Helper()
	booking, err := f.svc.Create(context.Background(), domain.CreateBookingRequest{
		CustomerID:    f.genID.Generate(),
		ServiceType:   "deep_cleaning",
		PaymentMethod: "upi",
		ScheduledAt:   f.clock.Now().Add(48 * time.Hour),
		Address:       "14 MG Road, Bengaluru",
		Items: []domain.CreateBookingItem{
			{ServiceName: "2BHK deep clean", Quantity: 1, UnitPrice: 250_000},
			{ServiceName: "Sofa shampoo", Quantity: 2, UnitPrice: 40_000, Discount: 5_000},
		},
	})
	require.NoError(t, err)
	return booking
}

func (f *fixture) acceptBooking(t *testing.T, id snowflake.ID) domain.Booking {
	t.Helper()
	booking, err := f.svc.Accept(context.Background(), domain.AcceptRequest{
		BookingID:    id,
		ProviderID:   f.genID.Generate(),
		ProviderType: "individual",
		Actor:        "provider",
	})
	require.NoError(t, err)
	return booking
}

func TestCreateBookingComputesTotals(t *testing.T) {
	f := newFixture(t)
	booking := f.createBooking(t)

	assert.Equal(t, domain.StatusPending, booking.Status)
	assert.Equal(t, domain.PaymentStatusUnpaid, booking.PaymentStatus)
	assert.Equal(t, int64(325_000), booking.Subtotal)
	assert.Equal(t, int64(325_000), booking.TotalAmount)
	assert.Len(t, booking.Items, 2)

	history, err := f.svc.History(context.Background(), booking.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StatusPending, history[0].Status)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateBookingRequest{
		ScheduledAt: f.clock.Now(),
		Items:       []domain.CreateBookingItem{{ServiceName: "x", Quantity: 1, UnitPrice: 100}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	_, err = f.svc.Create(ctx, domain.CreateBookingRequest{
		CustomerID:  f.genID.Generate(),
		ScheduledAt: f.clock.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidItems)

	_, err = f.svc.Create(ctx, domain.CreateBookingRequest{
		CustomerID:  f.genID.Generate(),
		ScheduledAt: f.clock.Now(),
		Items:       []domain.CreateBookingItem{{ServiceName: "x", Quantity: 0, UnitPrice: 100}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidItems)

	_, err = f.svc.Create(ctx, domain.CreateBookingRequest{
		CustomerID: f.genID.Generate(),
		Items:      []domain.CreateBookingItem{{ServiceName: "x", Quantity: 1, UnitPrice: 100}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSchedule)
}

func TestAcceptResolvesCommission(t *testing.T) {
	f := newFixture(t)
	booking := f.createBooking(t)
	accepted := f.acceptBooking(t, booking.ID)

	assert.Equal(t, domain.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.ProviderID)
	assert.Equal(t, int64(1_000), accepted.CommissionRateBP)
	assert.Equal(t, int64(32_500), accepted.CommissionAmount)
	assert.Equal(t, int64(292_500), accepted.ProviderNetAmount)
}

func TestInvalidTransitionRejected(t *testing.T) {
	f := newFixture(t)
	booking := f.createBooking(t)
	ctx := context.Background()

	_, err := f.svc.Complete(ctx, domain.TransitionRequest{BookingID: booking.ID, Actor: "provider"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Start(ctx, domain.TransitionRequest{BookingID: booking.ID, Actor: "provider"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := f.svc.Get(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestSettlementOnCompleteWhenAlreadyPaid(t *testing.T) {
	f := newFixture(t)
	booking := f.createBooking(t)
	accepted := f.acceptBooking(t, booking.ID)
	ctx := context.Background()

	_, err := f.svc.MarkPaid(ctx, domain.MarkPaidRequest{BookingID: booking.ID, Actor: "customer"})
	require.NoError(t, err)

	entry, err := f.earnings.FindByBooking(ctx, f.db, booking.ID)
	require.NoError(t, err)
	assert.Nil(t, entry, "no earning before completion")

	_, err = f.svc.Start(ctx, domain.TransitionRequest{BookingID: booking.ID, Actor: "provider"})
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, domain.TransitionRequest{BookingID: booking.ID, Actor: "provider"})
	require.NoError(t, err)

	entry, err = f.earnings.FindByBooking(ctx, f.db, booking.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, *accepted.ProviderID, entry.ProviderID)
	assert.Equal(t, int64(325_000), entry.GrossAmount)
	assert.Equal(t, int64(32_500), entry.CommissionAmount)
	assert.Equal(t, int64(292_500), entry.NetAmount)
	assert.Equal(t, earningdomain.StatusPending, entry.Status)
	assert.WithinDuration(t, f.clock.Now().Add(7*24*time.Hour), entry.AvailableAfter, time.Second)
}

func TestSettlementOnPaidWhenAlreadyCompleted(t *testing.T) {
	f := newFixture(t)
	booking := f.createBooking(t)
	f.acceptBooking(t, booking.ID)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, domain.TransitionRequest{BookingID: booking.ID, Actor: "provider"})
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, domain.TransitionRequest{BookingID: booking.ID, Actor: "provider"})
	require.NoError(t, err)

	entry, err := f.earnings.FindByBooking(ctx, f.db, booking.ID)
	require.NoError(t, err)
	assert.Nil(t, entry, "no earning before payment")

	_, err = f.svc.MarkPaid(ctx, domain.MarkPaidRequest{BookingID: booking.ID, Actor: "customer"})
	require.NoError(t, err)

	entry, err = f.earnings.FindByBooking(ctx, f.db, booking.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(292_500), entry.NetAmount)
}

func TestSettlementIsIdempotent(t *testing.T) {
	f := newFixture(t)
	booking := f.createBooking(t)
	f.acceptBooking(t, booking.ID)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, domain.TransitionRequest{BookingID: booking.ID, Actor: "provider"})
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, domain.TransitionRequest{BookingID: booking.ID, Actor: "provider"})
	require.NoError(t, err)
	_, err = f.svc.MarkPaid(ctx, domain.MarkPaidRequest{BookingID: booking.ID, Actor: "customer"})
	require.NoError(t, err)

	// Customer confirmation re-enters the settlement path; the earning must
	// not be duplicated.
	_, err = f.svc.Confirm(ctx, domain.TransitionRequest{BookingID: booking.ID, Actor: "customer"})
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(*) FROM provider_earnings WHERE booking_id = ?`, booking.ID,
	).Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMarkPaidTwiceRejected(t *testing.T) {
	f := newFixture(t)
	booking := f.createBooking(t)
	ctx := context.Background()

	_, err := f.svc.MarkPaid(ctx, domain.MarkPaidRequest{BookingID: booking.ID, Actor: "customer"})
	require.NoError(t, err)
	_, err = f.svc.MarkPaid(ctx, domain.MarkPaidRequest{BookingID: booking.ID, Actor: "customer"})
	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
}

func TestCancelAndRefundFlow(t *testing.T) {
	f := newFixture(t)
	booking := f.createBooking(t)
	ctx := context.Background()

	_, err := f.svc.MarkPaid(ctx, domain.MarkPaidRequest{BookingID: booking.ID, Actor: "customer"})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, domain.CancelRequest{
		BookingID: booking.ID,
		Actor:     "customer",
		Reason:    "travel plans changed",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, domain.CancellationCancelled, cancelled.CancellationState)
	require.NotNil(t, cancelled.CancelledAt)

	step1, err := f.svc.AdvanceRefund(ctx, booking.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.CancellationProcessingRefund, step1.CancellationState)
	assert.Equal(t, domain.PaymentStatusPaid, step1.PaymentStatus)

	step2, err := f.svc.AdvanceRefund(ctx, booking.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.CancellationRefundCompleted, step2.CancellationState)
	assert.Equal(t, domain.PaymentStatusRefunded, step2.PaymentStatus)

	_, err = f.svc.AdvanceRefund(ctx, booking.ID, "admin")
	assert.ErrorIs(t, err, domain.ErrRefundNotApplicable)
}

func TestRefundRequiresPayment(t *testing.T) {
	f := newFixture(t)
	booking := f.createBooking(t)
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, domain.CancelRequest{BookingID: booking.ID, Actor: "customer", Reason: "changed mind"})
	require.NoError(t, err)

	_, err = f.svc.AdvanceRefund(ctx, booking.ID, "admin")
	assert.ErrorIs(t, err, domain.ErrRefundNotApplicable)
}

func TestCancelledBookingNeverSettles(t *testing.T) {
	f := newFixture(t)
	booking := f.createBooking(t)
	f.acceptBooking(t, booking.ID)
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, domain.CancelRequest{BookingID: booking.ID, Actor: "provider", Reason: "unavailable"})
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(ctx, domain.MarkPaidRequest{BookingID: booking.ID, Actor: "customer"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	entry, err := f.earnings.FindByBooking(ctx, f.db, booking.ID)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestNoShowIsTerminal(t *testing.T) {
	f := newFixture(t)
	booking := f.createBooking(t)
	f.acceptBooking(t, booking.ID)
	ctx := context.Background()

	noShow, err := f.svc.MarkNoShow(ctx, domain.TransitionRequest{BookingID: booking.ID, Actor: "customer"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNoShow, noShow.Status)

	_, err = f.svc.Start(ctx, domain.TransitionRequest{BookingID: booking.ID, Actor: "provider"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestHistoryRecordsEveryTransition(t *testing.T) {
	f := newFixture(t)
	booking := f.createBooking(t)
	f.acceptBooking(t, booking.ID)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, domain.TransitionRequest{BookingID: booking.ID, Actor: "provider"})
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, domain.TransitionRequest{BookingID: booking.ID, Actor: "provider"})
	require.NoError(t, err)

	history, err := f.svc.History(ctx, booking.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	statuses := make([]domain.Status, 0, len(history))
	for _, h := range history {
		statuses = append(statuses, h.Status)
	}
	assert.Equal(t, []domain.Status{
		domain.StatusPending,
		domain.StatusAccepted,
		domain.StatusInProgress,
		domain.StatusCompleted,
	}, statuses)
}
