package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/urbanease/urbanease/internal/clock"
	"github.com/urbanease/urbanease/internal/commission/domain"
	"github.com/urbanease/urbanease/internal/config"
	obsmetrics "github.com/urbanease/urbanease/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	LedgerCfg  *config.LedgerConfigHolder
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	ledgerCfg  *config.LedgerConfigHolder
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("commission.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		ledgerCfg:  p.LedgerCfg,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Resolve(ctx context.Context, db *gorm.DB, in domain.ResolveInput) domain.Resolution {
	if db == nil {
		db = s.db
	}

	rule, err := s.repo.FindBestMatch(ctx, db, in.ProviderType, in.ServiceType, s.clock.Now())
	if err != nil {
		s.log.Warn("commission rule lookup failed, using default rate",
			zap.String("provider_type", in.ProviderType),
			zap.String("service_type", in.ServiceType),
			zap.Error(err),
		)
		rule = nil
	}
	if rule == nil {
		if s.obsMetrics != nil {
			s.obsMetrics.RecordCommissionFallback()
		}
		return s.defaultResolution(in.TotalAmount)
	}

	resolution := domain.Resolution{
		RuleID: &rule.ID,
		Kind:   rule.Kind,
	}
	switch rule.Kind {
	case domain.RuleKindFixed:
		commission := rule.Value
		if commission > in.TotalAmount {
			commission = in.TotalAmount
		}
		if commission < 0 {
			commission = 0
		}
		resolution.CommissionAmount = commission
	default:
		resolution.RateBP = rule.Value
		resolution.CommissionAmount = percentageOf(in.TotalAmount, rule.Value)
	}
	resolution.NetAmount = in.TotalAmount - resolution.CommissionAmount
	return resolution
}

func (s *Service) defaultResolution(total int64) domain.Resolution {
	rateBP := s.ledgerCfg.Get().DefaultCommissionBP
	commission := percentageOf(total, rateBP)
	return domain.Resolution{
		Kind:             domain.RuleKindPercentage,
		RateBP:           rateBP,
		CommissionAmount: commission,
		NetAmount:        total - commission,
	}
}

func (s *Service) CreateRule(ctx context.Context, req domain.CreateRuleRequest) (domain.CommissionRule, error) {
	scope := domain.RuleScope(strings.TrimSpace(req.Scope))
	if scope != domain.RuleScopeServiceType && scope != domain.RuleScopeProviderType {
		return domain.CommissionRule{}, domain.ErrInvalidScope
	}

	kind := domain.RuleKind(strings.TrimSpace(req.Kind))
	if kind != domain.RuleKindPercentage && kind != domain.RuleKindFixed {
		return domain.CommissionRule{}, domain.ErrInvalidKind
	}

	if req.Value < 0 {
		return domain.CommissionRule{}, domain.ErrInvalidValue
	}
	if kind == domain.RuleKindPercentage && req.Value > 10_000 {
		return domain.CommissionRule{}, domain.ErrInvalidValue
	}

	now := s.clock.Now()
	effectiveFrom := now
	if req.EffectiveFrom != nil {
		effectiveFrom = req.EffectiveFrom.UTC()
	}

	rule := domain.CommissionRule{
		ID:            s.genID.Generate(),
		Scope:         scope,
		ScopeValue:    strings.TrimSpace(req.ScopeValue),
		Kind:          kind,
		Value:         req.Value,
		Priority:      req.Priority,
		Active:        true,
		EffectiveFrom: effectiveFrom,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, &rule); err != nil {
		return domain.CommissionRule{}, err
	}

	s.log.Info("commission rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("scope", string(rule.Scope)),
		zap.String("kind", string(rule.Kind)),
		zap.Int64("value", rule.Value),
	)
	return rule, nil
}

func (s *Service) ListRules(ctx context.Context) ([]*domain.CommissionRule, error) {
	return s.repo.List(ctx, s.db)
}

// percentageOf computes amount*rateBP/10000 rounded half up.
func percentageOf(amount, rateBP int64) int64 {
	if amount <= 0 || rateBP <= 0 {
		return 0
	}
	return (amount*rateBP + 5_000) / 10_000
}
