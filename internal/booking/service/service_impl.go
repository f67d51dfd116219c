package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/urbanease/urbanease/internal/booking/domain"
	"github.com/urbanease/urbanease/internal/clock"
	commissiondomain "github.com/urbanease/urbanease/internal/commission/domain"
	earningdomain "github.com/urbanease/urbanease/internal/earning/domain"
	obsmetrics "github.com/urbanease/urbanease/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Commission commissiondomain.Service
	Earnings   earningdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	commission commissiondomain.Service
	earnings   earningdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("booking.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		commission: p.Commission,
		earnings:   p.Earnings,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBookingRequest) (domain.Booking, error) {
	if req.CustomerID == 0 {
		return domain.Booking{}, domain.ErrInvalidCustomer
	}
	if len(req.Items) == 0 {
		return domain.Booking{}, domain.ErrInvalidItems
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.ServiceName) == "" || item.Quantity <= 0 || item.UnitPrice < 0 || item.Discount < 0 {
			return domain.Booking{}, domain.ErrInvalidItems
		}
	}
	if req.ScheduledAt.IsZero() {
		return domain.Booking{}, domain.ErrInvalidSchedule
	}
	if req.TotalDiscount < 0 {
		return domain.Booking{}, domain.ErrInvalidItems
	}

	now := s.clock.Now()
	booking := domain.Booking{
		ID:                s.genID.Generate(),
		CustomerID:        req.CustomerID,
		ServiceType:       req.ServiceType,
		Status:            domain.StatusPending,
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     domain.PaymentStatusUnpaid,
		ScheduledAt:       req.ScheduledAt,
		Address:           req.Address,
		CouponCode:        req.CouponCode,
		TotalDiscount:     req.TotalDiscount,
		CancellationState: domain.CancellationNone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, item := range req.Items {
		booking.Items = append(booking.Items, domain.BookingItem{
			ID:          s.genID.Generate(),
			BookingID:   booking.ID,
			ServiceName: item.ServiceName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			CreatedAt:   now,
		})
	}
	booking.RecomputeTotals()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &booking); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, tx, booking.Items); err != nil {
			return err
		}
		return s.appendHistory(ctx, tx, booking.ID, booking.Status, "customer", "booking created", nil)
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.log.Info("booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("customer_id", booking.CustomerID.String()),
		zap.Int64("total_amount", booking.TotalAmount),
	)
	return booking, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Booking, error) {
	booking, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if booking == nil {
		return domain.Booking{}, domain.ErrNotFound
	}
	items, err := s.repo.ListItems(ctx, s.db, id)
	if err != nil {
		return domain.Booking{}, err
	}
	booking.Items = items
	return *booking, nil
}

func (s *Service) History(ctx context.Context, id snowflake.ID) ([]*domain.StatusHistoryEntry, error) {
	booking, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.ListHistory(ctx, s.db, id)
}

func (s *Service) Accept(ctx context.Context, req domain.AcceptRequest) (domain.Booking, error) {
	if req.ProviderID == 0 {
		return domain.Booking{}, domain.ErrInvalidProvider
	}

	var out domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.lockBooking(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(booking.Status, domain.StatusAccepted) {
			return &domain.TransitionError{From: booking.Status, To: domain.StatusAccepted}
		}

		providerID := req.ProviderID
		booking.ProviderID = &providerID
		booking.ProviderType = req.ProviderType
		booking.Status = domain.StatusAccepted
		booking.UpdatedAt = s.clock.Now()
		s.applyCommission(ctx, tx, booking)

		if err := s.repo.Update(ctx, tx, booking); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, tx, booking.ID, booking.Status, req.Actor, "provider accepted", datatypes.JSONMap{
			"provider_id": providerID.String(),
		}); err != nil {
			return err
		}
		out = *booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

func (s *Service) Start(ctx context.Context, req domain.TransitionRequest) (domain.Booking, error) {
	return s.transition(ctx, req, domain.StatusInProgress, "service started")
}

func (s *Service) Complete(ctx context.Context, req domain.TransitionRequest) (domain.Booking, error) {
	return s.transition(ctx, req, domain.StatusCompleted, "service completed")
}

func (s *Service) Confirm(ctx context.Context, req domain.TransitionRequest) (domain.Booking, error) {
	return s.transition(ctx, req, domain.StatusConfirmed, "customer confirmed")
}

func (s *Service) MarkNoShow(ctx context.Context, req domain.TransitionRequest) (domain.Booking, error) {
	return s.transition(ctx, req, domain.StatusNoShow, "provider no-show")
}

// transition is the shared path for single-step status moves. Completion
// re-resolves commission against the current rule set and settles the earning
// when payment has already landed.
func (s *Service) transition(ctx context.Context, req domain.TransitionRequest, to domain.Status, note string) (domain.Booking, error) {
	var out domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.lockBooking(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(booking.Status, to) {
			return &domain.TransitionError{From: booking.Status, To: to}
		}

		booking.Status = to
		booking.UpdatedAt = s.clock.Now()
		if to == domain.StatusCompleted {
			s.applyCommission(ctx, tx, booking)
		}

		if err := s.repo.Update(ctx, tx, booking); err != nil {
			return err
		}
		if req.Note != "" {
			note = req.Note
		}
		if err := s.appendHistory(ctx, tx, booking.ID, to, req.Actor, note, nil); err != nil {
			return err
		}
		if to == domain.StatusCompleted {
			if err := s.settleIfReady(ctx, tx, booking); err != nil {
				return err
			}
		}
		out = *booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelRequest) (domain.Booking, error) {
	var out domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.lockBooking(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(booking.Status, domain.StatusCancelled) {
			return &domain.TransitionError{From: booking.Status, To: domain.StatusCancelled}
		}

		now := s.clock.Now()
		booking.Status = domain.StatusCancelled
		booking.CancellationState = domain.CancellationCancelled
		booking.CancellationReason = req.Reason
		booking.CancelledBy = req.Actor
		booking.CancelledAt = &now
		booking.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, booking); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, tx, booking.ID, booking.Status, req.Actor, "booking cancelled", datatypes.JSONMap{
			"reason": req.Reason,
		}); err != nil {
			return err
		}
		out = *booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

func (s *Service) AdvanceRefund(ctx context.Context, id snowflake.ID, actor string) (domain.Booking, error) {
	var out domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if booking.Status != domain.StatusCancelled {
			return domain.ErrNotCancelled
		}
		if booking.PaymentStatus != domain.PaymentStatusPaid {
			return domain.ErrRefundNotApplicable
		}

		next, ok := domain.NextCancellationState(booking.CancellationState)
		if !ok {
			return domain.ErrRefundNotApplicable
		}

		booking.CancellationState = next
		booking.UpdatedAt = s.clock.Now()
		if next == domain.CancellationRefundCompleted {
			booking.PaymentStatus = domain.PaymentStatusRefunded
		}

		if err := s.repo.Update(ctx, tx, booking); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, tx, booking.ID, booking.Status, actor, "refund advanced", datatypes.JSONMap{
			"cancellation_state": string(next),
		}); err != nil {
			return err
		}
		out = *booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

func (s *Service) MarkPaid(ctx context.Context, req domain.MarkPaidRequest) (domain.Booking, error) {
	var out domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.lockBooking(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		if booking.PaymentStatus != domain.PaymentStatusUnpaid {
			return domain.ErrAlreadyPaid
		}
		if booking.Status == domain.StatusCancelled || booking.Status == domain.StatusNoShow {
			return &domain.TransitionError{From: booking.Status, To: booking.Status}
		}

		booking.PaymentStatus = domain.PaymentStatusPaid
		if req.PaymentMethod != "" {
			booking.PaymentMethod = req.PaymentMethod
		}
		booking.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, booking); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, tx, booking.ID, booking.Status, req.Actor, "payment captured", datatypes.JSONMap{
			"payment_method": booking.PaymentMethod,
		}); err != nil {
			return err
		}
		if err := s.settleIfReady(ctx, tx, booking); err != nil {
			return err
		}
		out = *booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

func (s *Service) lockBooking(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	booking, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	return booking, nil
}

// applyCommission snapshots the current resolution onto the booking. It runs
// whenever the provider or the total could have changed since the last write.
func (s *Service) applyCommission(ctx context.Context, tx *gorm.DB, booking *domain.Booking) {
	res := s.commission.Resolve(ctx, tx, commissiondomain.ResolveInput{
		ProviderType: booking.ProviderType,
		ServiceType:  booking.ServiceType,
		TotalAmount:  booking.TotalAmount,
	})
	booking.CommissionRuleID = res.RuleID
	booking.CommissionRateBP = res.RateBP
	booking.CommissionAmount = res.CommissionAmount
	booking.ProviderNetAmount = res.NetAmount
}

// settleIfReady writes the provider earning once a booking is both completed
// and paid. The ledger insert is idempotent on booking_id, so whichever of
// the two events lands second performs the settlement and a retry is a no-op.
func (s *Service) settleIfReady(ctx context.Context, tx *gorm.DB, booking *domain.Booking) error {
	if booking.Status != domain.StatusCompleted && booking.Status != domain.StatusConfirmed {
		return nil
	}
	if booking.PaymentStatus != domain.PaymentStatusPaid {
		return nil
	}
	if booking.ProviderID == nil {
		return nil
	}

	entry, created, err := s.earnings.CreateForBooking(ctx, tx, earningdomain.SettlementInput{
		BookingID:        booking.ID,
		ProviderID:       *booking.ProviderID,
		GrossAmount:      booking.TotalAmount,
		CommissionRateBP: booking.CommissionRateBP,
		CommissionAmount: booking.CommissionAmount,
	})
	if err != nil {
		return err
	}
	if created {
		s.log.Info("booking settled",
			zap.String("booking_id", booking.ID.String()),
			zap.String("earning_id", entry.ID.String()),
			zap.Int64("net_amount", entry.NetAmount),
		)
	}
	return nil
}

func (s *Service) appendHistory(ctx context.Context, tx *gorm.DB, bookingID snowflake.ID, status domain.Status, actor, note string, metadata datatypes.JSONMap) error {
	if metadata == nil {
		metadata = datatypes.JSONMap{}
	}
	return s.repo.AppendHistory(ctx, tx, &domain.StatusHistoryEntry{
		ID:        s.genID.Generate(),
		BookingID: bookingID,
		Status:    status,
		Actor:     actor,
		Note:      note,
		Metadata:  metadata,
		CreatedAt: s.clock.Now(),
	})
}
