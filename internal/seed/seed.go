package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	commissiondomain "github.com/urbanease/urbanease/internal/commission/domain"
	commissionrepo "github.com/urbanease/urbanease/internal/commission/repository"
	"gorm.io/gorm"
)

// EnsureDefaultCommissionRule seeds a catch-all percentage rule so a fresh
// installation has an explicit, auditable baseline instead of relying only
// on the config fallback. No-op when any rule already exists.
func EnsureDefaultCommissionRule(db *gorm.DB, defaultBP int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	repo := commissionrepo.Provide()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := repo.Count(ctx, tx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		rule := commissiondomain.CommissionRule{
			ID:            node.Generate(),
			Scope:         commissiondomain.RuleScopeProviderType,
			ScopeValue:    "", // matches every provider type
			Kind:          commissiondomain.RuleKindPercentage,
			Value:         defaultBP,
			Priority:      0,
			Active:        true,
			EffectiveFrom: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return repo.Insert(ctx, tx, &rule)
	})
}
