package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	// StatusPending: requested, earnings reserved, awaiting operator review.
	StatusPending Status = "pending"
	// StatusProcessing: approved, payout handed to the payment channel.
	StatusProcessing Status = "processing"
	// StatusCompleted: payout confirmed. Terminal.
	StatusCompleted Status = "completed"
	// StatusRejected: operator declined, reserved earnings released. Terminal.
	StatusRejected Status = "rejected"
	// StatusFailed: payout bounced, reserved earnings released. Terminal.
	StatusFailed Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusFailed
}

type Method string

const (
	MethodBankTransfer Method = "bank_transfer"
	MethodUPI          Method = "upi"
)

// PaymentRecord is one withdrawal request and its payout outcome. Amount is
// the net amount requested; the reserved ledger entries linked by
// payment_record_id sum exactly to it.
type PaymentRecord struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ProviderID snowflake.ID `gorm:"not null;index" json:"provider_id"`

	Amount    int64 `gorm:"not null" json:"amount"`
	NetAmount int64 `gorm:"not null" json:"net_amount"`

	Method      Method            `gorm:"type:text;not null" json:"method"`
	Destination datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"destination"`
	Reference   string            `gorm:"type:text;not null;uniqueIndex" json:"reference"`

	Status        Status `gorm:"type:text;not null;index" json:"status"`
	ExternalTxnID string `gorm:"type:text;not null" json:"external_txn_id"`
	Note          string `gorm:"type:text;not null" json:"note"`

	AllocatedCount int `gorm:"not null" json:"allocated_count"`

	RequestedAt time.Time  `gorm:"not null" json:"requested_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (PaymentRecord) TableName() string { return "payment_records" }
