package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urbanease/urbanease/internal/clock"
	"github.com/urbanease/urbanease/internal/commission/domain"
	commissionrepo "github.com/urbanease/urbanease/internal/commission/repository"
	"github.com/urbanease/urbanease/internal/config"
	"github.com/urbanease/urbanease/internal/testdb"
	"go.uber.org/zap/zaptest"
)

func newCommissionFixture(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	db := testdb.Open(t)
	genID, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: genID,
		Clock: fake,
		Repo:  commissionrepo.Provide(),
		LedgerCfg: config.NewStaticLedgerConfigHolder(config.LedgerConfig{
			MaturationDays:      7,
			MinWithdrawalAmount: 50_000,
			DefaultCommissionBP: 1_000,
		}),
	})
	return svc, fake
}

func TestResolveFallsBackToDefault(t *testing.T) {
	svc, _ := newCommissionFixture(t)

	res := svc.Resolve(context.Background(), nil, domain.ResolveInput{
		ProviderType: "individual",
		ServiceType:  "plumbing",
		TotalAmount:  100_000,
	})

	assert.Nil(t, res.RuleID)
	assert.Equal(t, int64(1_000), res.RateBP)
	assert.Equal(t, int64(10_000), res.CommissionAmount)
	assert.Equal(t, int64(90_000), res.NetAmount)
}

func TestResolvePrefersServiceTypeRule(t *testing.T) {
	svc, _ := newCommissionFixture(t)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, domain.CreateRuleRequest{
		Scope: "provider_type", ScopeValue: "individual", Kind: "percentage", Value: 800,
	})
	require.NoError(t, err)
	serviceRule, err := svc.CreateRule(ctx, domain.CreateRuleRequest{
		Scope: "service_type", ScopeValue: "plumbing", Kind: "percentage", Value: 1_500,
	})
	require.NoError(t, err)

	res := svc.Resolve(ctx, nil, domain.ResolveInput{
		ProviderType: "individual",
		ServiceType:  "plumbing",
		TotalAmount:  200_000,
	})

	require.NotNil(t, res.RuleID)
	assert.Equal(t, serviceRule.ID, *res.RuleID)
	assert.Equal(t, int64(1_500), res.RateBP)
	assert.Equal(t, int64(30_000), res.CommissionAmount)
}

func TestResolveHonorsPriority(t *testing.T) {
	svc, _ := newCommissionFixture(t)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, domain.CreateRuleRequest{
		Scope: "service_type", ScopeValue: "plumbing", Kind: "percentage", Value: 1_200, Priority: 1,
	})
	require.NoError(t, err)
	higher, err := svc.CreateRule(ctx, domain.CreateRuleRequest{
		Scope: "service_type", ScopeValue: "plumbing", Kind: "percentage", Value: 500, Priority: 10,
	})
	require.NoError(t, err)

	res := svc.Resolve(ctx, nil, domain.ResolveInput{
		ServiceType: "plumbing",
		TotalAmount: 100_000,
	})

	require.NotNil(t, res.RuleID)
	assert.Equal(t, higher.ID, *res.RuleID)
	assert.Equal(t, int64(5_000), res.CommissionAmount)
}

func TestResolveIgnoresFutureRules(t *testing.T) {
	svc, fake := newCommissionFixture(t)
	ctx := context.Background()

	future := fake.Now().Add(72 * time.Hour)
	_, err := svc.CreateRule(ctx, domain.CreateRuleRequest{
		Scope: "service_type", ScopeValue: "plumbing", Kind: "percentage", Value: 2_000,
		EffectiveFrom: &future,
	})
	require.NoError(t, err)

	res := svc.Resolve(ctx, nil, domain.ResolveInput{
		ServiceType: "plumbing",
		TotalAmount: 100_000,
	})
	assert.Nil(t, res.RuleID, "future rule must not apply yet")

	fake.Advance(96 * time.Hour)
	res = svc.Resolve(ctx, nil, domain.ResolveInput{
		ServiceType: "plumbing",
		TotalAmount: 100_000,
	})
	require.NotNil(t, res.RuleID)
	assert.Equal(t, int64(20_000), res.CommissionAmount)
}

func TestResolveFixedKindClampsToTotal(t *testing.T) {
	svc, _ := newCommissionFixture(t)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, domain.CreateRuleRequest{
		Scope: "service_type", ScopeValue: "errand", Kind: "fixed", Value: 15_000,
	})
	require.NoError(t, err)

	res := svc.Resolve(ctx, nil, domain.ResolveInput{ServiceType: "errand", TotalAmount: 40_000})
	assert.Equal(t, int64(15_000), res.CommissionAmount)
	assert.Equal(t, int64(25_000), res.NetAmount)

	res = svc.Resolve(ctx, nil, domain.ResolveInput{ServiceType: "errand", TotalAmount: 9_000})
	assert.Equal(t, int64(9_000), res.CommissionAmount)
	assert.Equal(t, int64(0), res.NetAmount)
}

func TestCreateRuleValidation(t *testing.T) {
	svc, _ := newCommissionFixture(t)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, domain.CreateRuleRequest{Scope: "city", Kind: "percentage", Value: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidScope)

	_, err = svc.CreateRule(ctx, domain.CreateRuleRequest{Scope: "service_type", Kind: "flat", Value: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)

	_, err = svc.CreateRule(ctx, domain.CreateRuleRequest{Scope: "service_type", Kind: "percentage", Value: 10_001})
	assert.ErrorIs(t, err, domain.ErrInvalidValue)

	_, err = svc.CreateRule(ctx, domain.CreateRuleRequest{Scope: "service_type", Kind: "fixed", Value: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidValue)
}

func TestPercentageRoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(0), percentageOf(0, 1_000))
	assert.Equal(t, int64(1), percentageOf(5, 1_000))
	assert.Equal(t, int64(0), percentageOf(4, 1_000))
	assert.Equal(t, int64(333), percentageOf(3_333, 1_000))
	assert.Equal(t, int64(10_000), percentageOf(100_000, 1_000))
}
