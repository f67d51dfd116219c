package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/urbanease/urbanease/pkg/db/pagination"
)

type RequestWithdrawalRequest struct {
	ProviderID  snowflake.ID
	Amount      int64
	Method      Method
	Destination map[string]interface{}
}

type DecisionRequest struct {
	PaymentRecordID snowflake.ID
	Actor           string
	Note            string
	// ExternalTxnID is the payout channel's transaction id, set on approval.
	ExternalTxnID string
}

type Service interface {
	// RequestWithdrawal reserves matured earnings against a new payment
	// record. The whole allocation commits atomically: on any failure no
	// ledger entry changes state.
	RequestWithdrawal(ctx context.Context, req RequestWithdrawalRequest) (PaymentRecord, error)

	// Approve finalizes a pending withdrawal: reserved entries become paid.
	// The payout channel's transaction id is mandatory.
	Approve(ctx context.Context, req DecisionRequest) (PaymentRecord, error)
	// Reject declines a pending withdrawal and returns every reserved entry
	// to the available pool.
	Reject(ctx context.Context, req DecisionRequest) (PaymentRecord, error)

	Get(ctx context.Context, id snowflake.ID) (PaymentRecord, error)
	List(ctx context.Context, providerID snowflake.ID, page pagination.Pagination) ([]*PaymentRecord, *pagination.PageInfo, error)
}

var (
	ErrNotFound            = errors.New("withdrawal_not_found")
	ErrInvalidProvider     = errors.New("invalid_provider")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrBelowMinimum        = errors.New("below_minimum_withdrawal")
	ErrInvalidMethod       = errors.New("invalid_payout_method")
	ErrMissingDestination  = errors.New("missing_payout_destination")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrMissingExternalTxn  = errors.New("missing_external_txn")
	ErrAlreadyFinalized    = errors.New("withdrawal_already_finalized")
)

// ShortfallError reports a rejected withdrawal with the exact gap between the
// requested amount and the matured balance. errors.Is matches
// ErrInsufficientBalance.
type ShortfallError struct {
	Requested int64
	Available int64
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("insufficient_balance: requested %d, available %d", e.Requested, e.Available)
}

func (e *ShortfallError) Unwrap() error { return ErrInsufficientBalance }

func (e *ShortfallError) Shortfall() int64 { return e.Requested - e.Available }
