package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rule *CommissionRule) error
	// FindBestMatch returns the winning active rule for the given booking
	// context, or nil when no rule applies.
	FindBestMatch(ctx context.Context, db *gorm.DB, providerType, serviceType string, now time.Time) (*CommissionRule, error)
	List(ctx context.Context, db *gorm.DB) ([]*CommissionRule, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
}
