package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ResolveInput carries the booking context a resolution depends on.
type ResolveInput struct {
	ProviderType string
	ServiceType  string
	TotalAmount  int64
}

// Resolution is the applied commission for one booking total. RuleID is nil
// when the configured default rate was used.
type Resolution struct {
	RuleID           *snowflake.ID
	Kind             RuleKind
	RateBP           int64
	CommissionAmount int64
	NetAmount        int64
}

type CreateRuleRequest struct {
	Scope         string
	ScopeValue    string
	Kind          string
	Value         int64
	Priority      int
	EffectiveFrom *time.Time
}

type Service interface {
	// Resolve never fails: when no rule matches or the lookup errors, it
	// degrades to the configured default percentage. It accepts the caller's
	// transaction handle so settlement reads stay inside one atomic unit.
	Resolve(ctx context.Context, db *gorm.DB, in ResolveInput) Resolution

	CreateRule(ctx context.Context, req CreateRuleRequest) (CommissionRule, error)
	ListRules(ctx context.Context) ([]*CommissionRule, error)
}

var (
	ErrInvalidScope = errors.New("invalid_scope")
	ErrInvalidKind  = errors.New("invalid_kind")
	ErrInvalidValue = errors.New("invalid_value")
)
