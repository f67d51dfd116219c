package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/urbanease/urbanease/pkg/db/pagination"
	"gorm.io/gorm"
)

// SettlementInput carries the snapshot of a booking that has just become
// completed+paid. Commission fields arrive already resolved so settlement
// and the booking's own commission view cannot diverge.
type SettlementInput struct {
	BookingID        snowflake.ID
	ProviderID       snowflake.ID
	GrossAmount      int64
	CommissionRateBP int64
	CommissionAmount int64
}

type Service interface {
	// CreateForBooking writes the ledger entry for a settled booking inside
	// the caller's transaction. At most one earning exists per booking: a
	// retried settlement returns the existing entry with created=false.
	CreateForBooking(ctx context.Context, tx *gorm.DB, in SettlementInput) (entry *ProviderEarning, created bool, err error)

	AvailableBalance(ctx context.Context, providerID snowflake.ID) (int64, error)
	GetSummary(ctx context.Context, providerID snowflake.ID) (Summary, error)
	List(ctx context.Context, providerID snowflake.ID, page pagination.Pagination) ([]*ProviderEarning, *pagination.PageInfo, error)
}

var (
	ErrInvalidProvider = errors.New("invalid_provider")
	ErrInvalidBooking  = errors.New("invalid_booking")
	ErrInvalidAmount   = errors.New("invalid_amount")
)
