package service

import (
	"context"
	"math/bits"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/urbanease/urbanease/internal/clock"
	"github.com/urbanease/urbanease/internal/config"
	earningdomain "github.com/urbanease/urbanease/internal/earning/domain"
	"github.com/urbanease/urbanease/internal/notification"
	obsmetrics "github.com/urbanease/urbanease/internal/observability/metrics"
	"github.com/urbanease/urbanease/internal/providerlock"
	"github.com/urbanease/urbanease/internal/withdrawal/domain"
	"github.com/urbanease/urbanease/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const allocationLockTTL = 30 * time.Second

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Earnings   earningdomain.Repository
	LedgerCfg  *config.LedgerConfigHolder
	Locker     *providerlock.Locker `optional:"true"`
	Notifier   notification.Notifier
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	earnings   earningdomain.Repository
	ledgerCfg  *config.LedgerConfigHolder
	locker     *providerlock.Locker
	notifier   notification.Notifier
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("withdrawal.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		earnings:   p.Earnings,
		ledgerCfg:  p.LedgerCfg,
		locker:     p.Locker,
		notifier:   p.Notifier,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) RequestWithdrawal(ctx context.Context, req domain.RequestWithdrawalRequest) (domain.PaymentRecord, error) {
	if req.ProviderID == 0 {
		return domain.PaymentRecord{}, domain.ErrInvalidProvider
	}
	if req.Amount <= 0 {
		return domain.PaymentRecord{}, domain.ErrInvalidAmount
	}
	if req.Amount < s.ledgerCfg.Get().MinWithdrawalAmount {
		return domain.PaymentRecord{}, domain.ErrBelowMinimum
	}
	if err := validateDestination(req.Method, req.Destination); err != nil {
		return domain.PaymentRecord{}, err
	}

	token, err := s.locker.AcquireWithdrawal(ctx, req.ProviderID, allocationLockTTL)
	if err != nil {
		if err == providerlock.ErrLockHeld {
			s.obsMetrics.RecordWithdrawalRequest("lock_held")
		}
		return domain.PaymentRecord{}, err
	}
	defer func() {
		if err := s.locker.ReleaseWithdrawal(ctx, req.ProviderID, token); err != nil {
			s.log.Warn("withdrawal lock release failed", zap.Error(err))
		}
	}()

	started := s.clock.Now()
	record := domain.PaymentRecord{
		ID:          s.genID.Generate(),
		ProviderID:  req.ProviderID,
		Amount:      req.Amount,
		NetAmount:   req.Amount,
		Method:      req.Method,
		Destination: datatypes.JSONMap(req.Destination),
		Reference:   uuid.NewString(),
		Status:      domain.StatusPending,
		RequestedAt: started,
		CreatedAt:   started,
		UpdatedAt:   started,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		promoted, err := s.earnings.PromoteMatured(ctx, tx, req.ProviderID, now)
		if err != nil {
			return err
		}
		s.obsMetrics.RecordEarningsPromoted(int(promoted))

		available, err := s.earnings.SumAvailable(ctx, tx, req.ProviderID, now)
		if err != nil {
			return err
		}
		if available < req.Amount {
			return &domain.ShortfallError{Requested: req.Amount, Available: available}
		}

		allocated, err := s.allocate(ctx, tx, req.ProviderID, record.ID, req.Amount, now)
		if err != nil {
			return err
		}
		record.AllocatedCount = allocated

		return s.repo.Insert(ctx, tx, &record)
	})
	if err != nil {
		s.obsMetrics.RecordWithdrawalRequest("rejected")
		return domain.PaymentRecord{}, err
	}

	s.obsMetrics.RecordWithdrawalRequest("accepted")
	s.obsMetrics.ObserveAllocationDuration(s.clock.Now().Sub(started))
	s.log.Info("withdrawal requested",
		zap.String("payment_record_id", record.ID.String()),
		zap.String("provider_id", req.ProviderID.String()),
		zap.Int64("amount", req.Amount),
		zap.Int("allocated_entries", record.AllocatedCount),
	)

	s.notify(ctx, req.ProviderID,
		"Withdrawal requested",
		"Your withdrawal request "+record.Reference+" for "+strconv.FormatInt(req.Amount, 10)+
			" is pending review.",
	)
	return record, nil
}

// allocate reserves matured earnings oldest first until the requested amount
// is covered, splitting the final entry when it overshoots. Returns the
// number of entries reserved.
func (s *Service) allocate(ctx context.Context, tx *gorm.DB, providerID, recordID snowflake.ID, amount int64, now time.Time) (int, error) {
	entries, err := s.earnings.ListAvailableForUpdate(ctx, tx, providerID, now)
	if err != nil {
		return 0, err
	}

	remaining := amount
	reserved := 0
	for _, entry := range entries {
		if remaining <= 0 {
			break
		}
		if entry.NetAmount <= remaining {
			if err := s.earnings.Reserve(ctx, tx, entry.ID, recordID, now); err != nil {
				return 0, err
			}
			remaining -= entry.NetAmount
			reserved++
			continue
		}
		if err := s.split(ctx, tx, entry, recordID, remaining, now); err != nil {
			return 0, err
		}
		remaining = 0
		reserved++
	}
	if remaining > 0 {
		// The pool changed between the balance check and the walk. Roll the
		// whole transaction back rather than hold a partial reservation.
		return 0, &domain.ShortfallError{Requested: amount, Available: amount - remaining}
	}
	return reserved, nil
}

// split carves the needed net amount out of one earning. The reserved part
// takes net=needed and a proportional share of gross; the original keeps the
// exact remainders, so gross, commission and net are each conserved to the
// paisa across the pair.
func (s *Service) split(ctx context.Context, tx *gorm.DB, entry *earningdomain.ProviderEarning, recordID snowflake.ID, needed int64, now time.Time) error {
	reservedGross := entry.GrossAmount
	if entry.NetAmount > 0 {
		reservedGross = mulDivHalfUp(entry.GrossAmount, needed, entry.NetAmount)
	}
	if reservedGross < needed {
		reservedGross = needed
	}
	if reservedGross > needed+entry.CommissionAmount {
		reservedGross = needed + entry.CommissionAmount
	}
	reservedCommission := reservedGross - needed

	originID := entry.ID
	reservedPart := earningdomain.ProviderEarning{
		ID:               s.genID.Generate(),
		ProviderID:       entry.ProviderID,
		GrossAmount:      reservedGross,
		CommissionRateBP: entry.CommissionRateBP,
		CommissionAmount: reservedCommission,
		NetAmount:        needed,
		Status:           earningdomain.StatusProcessing,
		AvailableAfter:   entry.AvailableAfter,
		PaymentRecordID:  &recordID,
		OriginEarningID:  &originID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.earnings.InsertRow(ctx, tx, &reservedPart); err != nil {
		return err
	}

	if err := s.earnings.ReduceAmounts(ctx, tx, entry.ID,
		entry.GrossAmount-reservedGross,
		entry.CommissionAmount-reservedCommission,
		entry.NetAmount-needed,
		now,
	); err != nil {
		return err
	}

	s.obsMetrics.RecordAllocationSplit()
	return nil
}

// mulDivHalfUp computes round(a*b/d) through a 128-bit intermediate so the
// product cannot overflow. Arguments must be non-negative, d > 0, and the
// quotient must fit in int64; in split() b <= d, which bounds it by a.
func mulDivHalfUp(a, b, d int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	lo, carry := bits.Add64(lo, uint64(d)/2, 0)
	q, _ := bits.Div64(hi+carry, lo, uint64(d))
	return int64(q)
}

func (s *Service) Approve(ctx context.Context, req domain.DecisionRequest) (domain.PaymentRecord, error) {
	if strings.TrimSpace(req.ExternalTxnID) == "" {
		return domain.PaymentRecord{}, domain.ErrMissingExternalTxn
	}
	return s.decide(ctx, req, domain.StatusCompleted)
}

func (s *Service) Reject(ctx context.Context, req domain.DecisionRequest) (domain.PaymentRecord, error) {
	return s.decide(ctx, req, domain.StatusRejected)
}

func (s *Service) decide(ctx context.Context, req domain.DecisionRequest, outcome domain.Status) (domain.PaymentRecord, error) {
	var out domain.PaymentRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.repo.FindByIDForUpdate(ctx, tx, req.PaymentRecordID)
		if err != nil {
			return err
		}
		if record == nil {
			return domain.ErrNotFound
		}
		if record.Status != domain.StatusPending {
			return domain.ErrAlreadyFinalized
		}

		now := s.clock.Now()
		switch outcome {
		case domain.StatusCompleted:
			if _, err := s.earnings.FinalizeByPaymentRecord(ctx, tx, record.ID, now); err != nil {
				return err
			}
		case domain.StatusRejected:
			if _, err := s.earnings.ReleaseByPaymentRecord(ctx, tx, record.ID, now); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateDecision(ctx, tx, record.ID, outcome, req.ExternalTxnID, req.Note, now); err != nil {
			return err
		}

		record.Status = outcome
		record.ExternalTxnID = req.ExternalTxnID
		record.Note = req.Note
		record.ProcessedAt = &now
		record.UpdatedAt = now
		out = *record
		return nil
	})
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	decision := "approved"
	subject := "Withdrawal approved"
	body := "Your withdrawal " + out.Reference + " has been paid out."
	if outcome == domain.StatusRejected {
		decision = "rejected"
		subject = "Withdrawal rejected"
		body = "Your withdrawal " + out.Reference + " was rejected and the funds returned to your balance."
	}
	s.obsMetrics.RecordWithdrawalSettled(decision)
	s.log.Info("withdrawal "+decision,
		zap.String("payment_record_id", out.ID.String()),
		zap.String("actor", req.Actor),
	)
	s.notify(ctx, out.ProviderID, subject, body)
	return out, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.PaymentRecord, error) {
	record, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.PaymentRecord{}, err
	}
	if record == nil {
		return domain.PaymentRecord{}, domain.ErrNotFound
	}
	return *record, nil
}

func (s *Service) List(ctx context.Context, providerID snowflake.ID, page pagination.Pagination) ([]*domain.PaymentRecord, *pagination.PageInfo, error) {
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

	records, err := s.repo.ListByProvider(ctx, s.db, providerID, limit+1, beforeID)
	if err != nil {
		return nil, nil, err
	}

	records, pageInfo := pagination.BuildPageInfo(records, limit, func(r *domain.PaymentRecord) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: r.ID.String()})
		return token
	})
	return records, pageInfo, nil
}

func (s *Service) notify(ctx context.Context, providerID snowflake.ID, subject, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, providerID, subject, body); err != nil {
		s.log.Warn("provider notification failed", zap.Error(err))
		s.obsMetrics.RecordNotificationFailure()
	}
}

func validateDestination(method domain.Method, destination map[string]interface{}) error {
	switch method {
	case domain.MethodBankTransfer:
		return requireFields(destination, "account_number", "ifsc", "account_name")
	case domain.MethodUPI:
		return requireFields(destination, "vpa")
	default:
		return domain.ErrInvalidMethod
	}
}

func requireFields(destination map[string]interface{}, fields ...string) error {
	for _, field := range fields {
		v, ok := destination[field]
		if !ok {
			return domain.ErrMissingDestination
		}
		str, ok := v.(string)
		if !ok || str == "" {
			return domain.ErrMissingDestination
		}
	}
	return nil
}
