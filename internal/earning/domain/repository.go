package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert is idempotent on booking_id: it reports false when an earning
	// for the booking already exists.
	Insert(ctx context.Context, db *gorm.DB, entry *ProviderEarning) (bool, error)
	// InsertRow inserts unconditionally; used for split rows, which carry no
	// booking reference.
	InsertRow(ctx context.Context, db *gorm.DB, entry *ProviderEarning) error
	FindByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*ProviderEarning, error)

	// PromoteMatured flips pending entries whose maturation has elapsed to
	// available, returning the number of rows promoted.
	PromoteMatured(ctx context.Context, db *gorm.DB, providerID snowflake.ID, now time.Time) (int64, error)
	SumAvailable(ctx context.Context, db *gorm.DB, providerID snowflake.ID, now time.Time) (int64, error)
	// ListAvailableForUpdate returns matured available entries oldest
	// maturation first, locked for the enclosing transaction.
	ListAvailableForUpdate(ctx context.Context, tx *gorm.DB, providerID snowflake.ID, now time.Time) ([]*ProviderEarning, error)

	Reserve(ctx context.Context, db *gorm.DB, id, paymentRecordID snowflake.ID, now time.Time) error
	ReduceAmounts(ctx context.Context, db *gorm.DB, id snowflake.ID, gross, commission, net int64, now time.Time) error

	ListByPaymentRecord(ctx context.Context, db *gorm.DB, paymentRecordID snowflake.ID) ([]*ProviderEarning, error)
	// FinalizeByPaymentRecord moves every linked processing entry to paid.
	FinalizeByPaymentRecord(ctx context.Context, db *gorm.DB, paymentRecordID snowflake.ID, now time.Time) (int64, error)
	// ReleaseByPaymentRecord returns every linked processing entry to the
	// available pool and unlinks it.
	ReleaseByPaymentRecord(ctx context.Context, db *gorm.DB, paymentRecordID snowflake.ID, now time.Time) (int64, error)

	SummaryTotals(ctx context.Context, db *gorm.DB, providerID snowflake.ID, now time.Time) (Summary, error)
	ListByProvider(ctx context.Context, db *gorm.DB, providerID snowflake.ID, limit int, beforeID snowflake.ID) ([]*ProviderEarning, error)
}
