package repository

import (
	"context"
	"time"

	"github.com/urbanease/urbanease/internal/commission/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rule *domain.CommissionRule) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO commission_rules (
			id, scope, scope_value, kind, value, priority, active, effective_from,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.Scope,
		rule.ScopeValue,
		rule.Kind,
		rule.Value,
		rule.Priority,
		rule.Active,
		rule.EffectiveFrom,
		rule.CreatedAt,
		rule.UpdatedAt,
	).Error
}

func (r *repo) FindBestMatch(ctx context.Context, db *gorm.DB, providerType, serviceType string, now time.Time) (*domain.CommissionRule, error) {
	var rule domain.CommissionRule
	err := db.WithContext(ctx).Raw(
		`SELECT id, scope, scope_value, kind, value, priority, active, effective_from,
		        created_at, updated_at
		 FROM commission_rules
		 WHERE active = TRUE
		   AND effective_from <= ?
		   AND ((scope = 'service_type' AND scope_value IN (?, ''))
		     OR (scope = 'provider_type' AND scope_value IN (?, '')))
		 ORDER BY priority DESC,
		          CASE WHEN scope = 'service_type' THEN 0 ELSE 1 END,
		          effective_from DESC
		 LIMIT 1`,
		now,
		serviceType,
		providerType,
	).Scan(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.CommissionRule, error) {
	var rules []*domain.CommissionRule
	err := db.WithContext(ctx).Raw(
		`SELECT id, scope, scope_value, kind, value, priority, active, effective_from,
		        created_at, updated_at
		 FROM commission_rules
		 ORDER BY priority DESC, created_at ASC`,
	).Scan(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM commission_rules`).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
