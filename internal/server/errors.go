package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/urbanease/urbanease/internal/booking/domain"
	commissiondomain "github.com/urbanease/urbanease/internal/commission/domain"
	earningdomain "github.com/urbanease/urbanease/internal/earning/domain"
	"github.com/urbanease/urbanease/internal/providerlock"
	withdrawaldomain "github.com/urbanease/urbanease/internal/withdrawal/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
	Details map[string]int64  `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	if shortfall := asShortfallError(err); shortfall != nil {
		return http.StatusConflict, errorPayload{
			Type:    "insufficient_balance",
			Message: "insufficient balance",
			Details: map[string]int64{
				"requested": shortfall.Requested,
				"available": shortfall.Available,
				"shortfall": shortfall.Shortfall(),
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    conflictErrorType(err),
			Message: conflictErrorMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func asShortfallError(err error) *withdrawaldomain.ShortfallError {
	var sErr *withdrawaldomain.ShortfallError
	if errors.As(err, &sErr) && sErr != nil {
		return sErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, bookingdomain.ErrInvalidCustomer),
		errors.Is(err, bookingdomain.ErrInvalidItems),
		errors.Is(err, bookingdomain.ErrInvalidSchedule),
		errors.Is(err, bookingdomain.ErrInvalidProvider),
		errors.Is(err, earningdomain.ErrInvalidProvider),
		errors.Is(err, earningdomain.ErrInvalidAmount),
		errors.Is(err, withdrawaldomain.ErrInvalidProvider),
		errors.Is(err, withdrawaldomain.ErrInvalidAmount),
		errors.Is(err, withdrawaldomain.ErrBelowMinimum),
		errors.Is(err, withdrawaldomain.ErrInvalidMethod),
		errors.Is(err, withdrawaldomain.ErrMissingDestination),
		errors.Is(err, withdrawaldomain.ErrMissingExternalTxn),
		errors.Is(err, commissiondomain.ErrInvalidScope),
		errors.Is(err, commissiondomain.ErrInvalidKind),
		errors.Is(err, commissiondomain.ErrInvalidValue):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, bookingdomain.ErrInvalidTransition),
		errors.Is(err, bookingdomain.ErrAlreadyPaid),
		errors.Is(err, bookingdomain.ErrNotCancelled),
		errors.Is(err, bookingdomain.ErrRefundNotApplicable),
		errors.Is(err, withdrawaldomain.ErrAlreadyFinalized),
		errors.Is(err, providerlock.ErrLockHeld):
		return true
	default:
		return false
	}
}

func conflictErrorType(err error) string {
	switch {
	case errors.Is(err, bookingdomain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, providerlock.ErrLockHeld):
		return "withdrawal_in_progress"
	case errors.Is(err, withdrawaldomain.ErrAlreadyFinalized):
		return "withdrawal_already_finalized"
	default:
		return "conflict"
	}
}

func conflictErrorMessage(err error) string {
	var tErr *bookingdomain.TransitionError
	if errors.As(err, &tErr) {
		return tErr.Error()
	}
	return err.Error()
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, bookingdomain.ErrNotFound),
		errors.Is(err, withdrawaldomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "below_minimum_withdrawal":
		return "amount is below the minimum withdrawal"
	case "missing_payout_destination":
		return "payout destination is incomplete"
	case "missing_external_txn":
		return "external transaction id is required to approve"
	default:
		return "invalid value"
	}
}
