package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateBookingRequest struct {
	CustomerID    snowflake.ID
	ServiceType   string
	PaymentMethod string
	ScheduledAt   time.Time
	Address       string
	CouponCode    string
	TotalDiscount int64
	Items         []CreateBookingItem
}

type CreateBookingItem struct {
	ServiceName string
	Quantity    int
	UnitPrice   int64
	Discount    int64
}

type AcceptRequest struct {
	BookingID    snowflake.ID
	ProviderID   snowflake.ID
	ProviderType string
	Actor        string
}

// TransitionRequest covers the simple actor-driven moves: start, complete,
// confirm, no-show.
type TransitionRequest struct {
	BookingID snowflake.ID
	Actor     string
	Note      string
}

type CancelRequest struct {
	BookingID snowflake.ID
	Actor     string
	Reason    string
}

type MarkPaidRequest struct {
	BookingID     snowflake.ID
	PaymentMethod string
	Actor         string
}

type Service interface {
	Create(ctx context.Context, req CreateBookingRequest) (Booking, error)
	Get(ctx context.Context, id snowflake.ID) (Booking, error)
	History(ctx context.Context, id snowflake.ID) ([]*StatusHistoryEntry, error)

	Accept(ctx context.Context, req AcceptRequest) (Booking, error)
	Start(ctx context.Context, req TransitionRequest) (Booking, error)
	Complete(ctx context.Context, req TransitionRequest) (Booking, error)
	Confirm(ctx context.Context, req TransitionRequest) (Booking, error)
	MarkNoShow(ctx context.Context, req TransitionRequest) (Booking, error)
	Cancel(ctx context.Context, req CancelRequest) (Booking, error)
	AdvanceRefund(ctx context.Context, id snowflake.ID, actor string) (Booking, error)
	MarkPaid(ctx context.Context, req MarkPaidRequest) (Booking, error)
}

var (
	ErrNotFound            = errors.New("booking_not_found")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidItems        = errors.New("invalid_items")
	ErrInvalidSchedule     = errors.New("invalid_schedule")
	ErrInvalidProvider     = errors.New("invalid_provider")
	ErrInvalidTransition   = errors.New("invalid_transition")
	ErrAlreadyPaid         = errors.New("already_paid")
	ErrNotCancelled        = errors.New("not_cancelled")
	ErrRefundNotApplicable = errors.New("refund_not_applicable")
)

// TransitionError reports the rejected move; errors.Is matches
// ErrInvalidTransition.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid_transition: %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
