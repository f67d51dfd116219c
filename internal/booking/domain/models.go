package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusConfirmed  Status = "confirmed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type CancellationState string

const (
	CancellationNone             CancellationState = "not_cancelled"
	CancellationCancelled        CancellationState = "cancelled"
	CancellationProcessingRefund CancellationState = "processing_refund"
	CancellationRefundCompleted  CancellationState = "refund_completed"
)

// Booking is the order record. Money fields are minor units; subtotal and
// total are recomputed from line items on every persist, and the commission
// fields are re-resolved whenever a provider is assigned. Bookings are never
// deleted: booking_status_history is the audit trail.
type Booking struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	CustomerID   snowflake.ID  `gorm:"not null;index" json:"customer_id"`
	ProviderID   *snowflake.ID `gorm:"index" json:"provider_id,omitempty"`
	ProviderType string        `gorm:"type:text;not null" json:"provider_type"`
	ServiceType  string        `gorm:"type:text;not null" json:"service_type"`
	Status       Status        `gorm:"type:text;not null;index" json:"status"`

	PaymentMethod string        `gorm:"type:text;not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"type:text;not null" json:"payment_status"`

	ScheduledAt time.Time `gorm:"not null" json:"scheduled_at"`
	Address     string    `gorm:"type:text;not null" json:"address"`
	CouponCode  string    `gorm:"type:text;not null" json:"coupon_code"`

	TotalDiscount int64 `gorm:"not null" json:"total_discount"`
	Subtotal      int64 `gorm:"not null" json:"subtotal"`
	TotalAmount   int64 `gorm:"not null" json:"total_amount"`

	CommissionRuleID  *snowflake.ID `json:"commission_rule_id,omitempty"`
	CommissionRateBP  int64         `gorm:"not null" json:"commission_rate_bp"`
	CommissionAmount  int64         `gorm:"not null" json:"commission_amount"`
	ProviderNetAmount int64         `gorm:"not null" json:"provider_net_amount"`

	CancellationState  CancellationState `gorm:"type:text;not null" json:"cancellation_state"`
	CancellationReason string            `gorm:"type:text;not null" json:"cancellation_reason"`
	CancelledBy        string            `gorm:"type:text;not null" json:"cancelled_by"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items []BookingItem `gorm:"-" json:"items,omitempty"`
}

// TableName sets the database table name.
func (Booking) TableName() string { return "bookings" }

type BookingItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	BookingID   snowflake.ID `gorm:"not null;index" json:"booking_id"`
	ServiceName string       `gorm:"type:text;not null" json:"service_name"`
	Quantity    int          `gorm:"not null" json:"quantity"`
	UnitPrice   int64        `gorm:"not null" json:"unit_price"`
	Discount    int64        `gorm:"not null" json:"discount"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BookingItem) TableName() string { return "booking_items" }

// StatusHistoryEntry is one immutable row of the booking audit trail.
type StatusHistoryEntry struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	BookingID snowflake.ID      `gorm:"not null;index" json:"booking_id"`
	Status    Status            `gorm:"type:text;not null" json:"status"`
	Actor     string            `gorm:"type:text;not null" json:"actor"`
	Note      string            `gorm:"type:text;not null" json:"note"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (StatusHistoryEntry) TableName() string { return "booking_status_history" }

// RecomputeTotals recalculates subtotal and total from line items. Each line
// clamps at zero, as does the coupon-discounted total.
func (b *Booking) RecomputeTotals() {
	var subtotal int64
	for _, item := range b.Items {
		line := item.UnitPrice*int64(item.Quantity) - item.Discount
		if line < 0 {
			line = 0
		}
		subtotal += line
	}
	b.Subtotal = subtotal

	total := subtotal - b.TotalDiscount
	if total < 0 {
		total = 0
	}
	b.TotalAmount = total
}
