package service

import (
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/urbanease/urbanease/internal/clock"
	"github.com/urbanease/urbanease/internal/config"
	"github.com/urbanease/urbanease/internal/earning/domain"
	"github.com/urbanease/urbanease/internal/notification"
	obsmetrics "github.com/urbanease/urbanease/internal/observability/metrics"
	"github.com/urbanease/urbanease/pkg/db"
	"github.com/urbanease/urbanease/pkg/db/pagination"
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
	Notifier   notification.Notifier
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	ledgerCfg  *config.LedgerConfigHolder
	notifier   notification.Notifier
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("earning.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		ledgerCfg:  p.LedgerCfg,
		notifier:   p.Notifier,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) CreateForBooking(ctx context.Context, tx *gorm.DB, in domain.SettlementInput) (*domain.ProviderEarning, bool, error) {
	if in.ProviderID == 0 {
		return nil, false, domain.ErrInvalidProvider
	}
	if in.BookingID == 0 {
		return nil, false, domain.ErrInvalidBooking
	}
	if in.GrossAmount < 0 || in.CommissionAmount < 0 || in.CommissionAmount > in.GrossAmount {
		return nil, false, domain.ErrInvalidAmount
	}
	if tx == nil {
		tx = s.db
	}

	now := s.clock.Now()
	maturation := time.Duration(s.ledgerCfg.Get().MaturationDays) * 24 * time.Hour
	bookingID := in.BookingID

	entry := domain.ProviderEarning{
		ID:               s.genID.Generate(),
		ProviderID:       in.ProviderID,
		BookingID:        &bookingID,
		GrossAmount:      in.GrossAmount,
		CommissionRateBP: in.CommissionRateBP,
		CommissionAmount: in.CommissionAmount,
		NetAmount:        in.GrossAmount - in.CommissionAmount,
		Status:           domain.StatusPending,
		AvailableAfter:   now.Add(maturation),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := s.repo.Insert(ctx, tx, &entry)
	if err != nil {
		// Dialects without ON CONFLICT surface the unique booking index as a
		// duplicate-key error instead of a silent no-op.
		if !db.IsDuplicateKeyErr(err) {
			return nil, false, err
		}
		created = false
	}
	if !created {
		existing, err := s.repo.FindByBooking(ctx, tx, in.BookingID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, domain.ErrInvalidBooking
		}
		s.log.Info("earning already exists for booking",
			zap.String("booking_id", in.BookingID.String()),
			zap.String("earning_id", existing.ID.String()),
		)
		return existing, false, nil
	}

	s.log.Info("earning created",
		zap.String("earning_id", entry.ID.String()),
		zap.String("provider_id", entry.ProviderID.String()),
		zap.String("booking_id", in.BookingID.String()),
		zap.Int64("gross_amount", entry.GrossAmount),
		zap.Int64("net_amount", entry.NetAmount),
		zap.Time("available_after", entry.AvailableAfter),
	)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordEarningCreated("settlement")
	}

	s.notify(ctx, entry.ProviderID,
		"Earning recorded",
		"An earning of "+formatMinor(entry.NetAmount)+" has been credited to your ledger and will mature on "+
			entry.AvailableAfter.Format(time.RFC1123)+".",
	)

	return &entry, true, nil
}

func (s *Service) AvailableBalance(ctx context.Context, providerID snowflake.ID) (int64, error) {
	if providerID == 0 {
		return 0, domain.ErrInvalidProvider
	}

	var balance int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		promoted, err := s.repo.PromoteMatured(ctx, tx, providerID, now)
		if err != nil {
			return err
		}
		if s.obsMetrics != nil {
			s.obsMetrics.RecordEarningsPromoted(int(promoted))
		}
		balance, err = s.repo.SumAvailable(ctx, tx, providerID, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *Service) GetSummary(ctx context.Context, providerID snowflake.ID) (domain.Summary, error) {
	if providerID == 0 {
		return domain.Summary{}, domain.ErrInvalidProvider
	}

	var summary domain.Summary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		promoted, err := s.repo.PromoteMatured(ctx, tx, providerID, now)
		if err != nil {
			return err
		}
		if s.obsMetrics != nil {
			s.obsMetrics.RecordEarningsPromoted(int(promoted))
		}
		summary, err = s.repo.SummaryTotals(ctx, tx, providerID, now)
		return err
	})
	if err != nil {
		return domain.Summary{}, err
	}
	return summary, nil
}

func (s *Service) List(ctx context.Context, providerID snowflake.ID, page pagination.Pagination) ([]*domain.ProviderEarning, *pagination.PageInfo, error) {
	if providerID == 0 {
		return nil, nil, domain.ErrInvalidProvider
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 20
	}

	var beforeID snowflake.ID
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err == nil && cursor.ID != "" {
			if parsed, err := strconv.ParseInt(cursor.ID, 10, 64); err == nil {
				beforeID = snowflake.ID(parsed)
			}
		}
	}

	entries, err := s.repo.ListByProvider(ctx, s.db, providerID, limit+1, beforeID)
	if err != nil {
		return nil, nil, err
	}

	entries, pageInfo := pagination.BuildPageInfo(entries, limit, func(e *domain.ProviderEarning) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: e.ID.String()})
		return token
	})
	return entries, pageInfo, nil
}

func (s *Service) notify(ctx context.Context, providerID snowflake.ID, subject, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, providerID, subject, body); err != nil {
		s.log.Warn("provider notification failed", zap.Error(err))
		if s.obsMetrics != nil {
			s.obsMetrics.RecordNotificationFailure()
		}
	}
}

func formatMinor(amount int64) string {
	whole := amount / 100
	frac := amount % 100
	if frac < 0 {
		frac = -frac
	}
	return "₹" + strconv.FormatInt(whole, 10) + "." + pad2(frac)
}

func pad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}
