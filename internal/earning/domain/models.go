package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status tracks an earning through its lifecycle: pending → available by
// elapsed time, available → processing → paid (or back to available) inside
// the withdrawal transactions. Every move is guarded by the status predicate
// of the mutation that performs it.
type Status string

const (
	// StatusPending: created, still inside the maturation window.
	StatusPending Status = "pending"
	// StatusAvailable: matured, withdrawable.
	StatusAvailable Status = "available"
	// StatusProcessing: reserved by a pending withdrawal.
	StatusProcessing Status = "processing"
	// StatusPaid: settled. Terminal.
	StatusPaid Status = "paid"
)

// ProviderEarning is one ledger entry: money owed to a provider from one
// booking. GrossAmount - CommissionAmount == NetAmount always holds,
// including on both halves of a split. BookingID is nil on rows created by
// splitting; OriginEarningID links them back to the entry they came from.
type ProviderEarning struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	ProviderID snowflake.ID  `gorm:"not null;index" json:"provider_id"`
	BookingID  *snowflake.ID `gorm:"uniqueIndex" json:"booking_id,omitempty"`

	GrossAmount      int64 `gorm:"not null" json:"gross_amount"`
	CommissionRateBP int64 `gorm:"not null" json:"commission_rate_bp"`
	CommissionAmount int64 `gorm:"not null" json:"commission_amount"`
	NetAmount        int64 `gorm:"not null" json:"net_amount"`

	Status          Status        `gorm:"type:text;not null;index" json:"status"`
	AvailableAfter  time.Time     `gorm:"not null" json:"available_after"`
	PaymentRecordID *snowflake.ID `gorm:"index" json:"payment_record_id,omitempty"`
	OriginEarningID *snowflake.ID `json:"origin_earning_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ProviderEarning) TableName() string { return "provider_earnings" }

// Summary aggregates a provider's ledger position. Lifetime is the sum of
// net amounts over every entry; splits conserve net, so this equals total
// net earned from settled bookings.
type Summary struct {
	Available int64 `json:"available"`
	Pending   int64 `json:"pending"`
	Reserved  int64 `json:"reserved"`
	Withdrawn int64 `json:"withdrawn"`
	Lifetime  int64 `json:"lifetime"`
}
