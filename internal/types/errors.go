package types

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Stable validation and conflict codes. Clients branch on codes, never on
// message text; messages exist for humans.
const (
	CodeInvalidQuantity      = "invalid_quantity"
	CodeInvalidMovementType  = "invalid_movement_type"
	CodeBatchNotFound        = "batch_not_found"
	CodeBatchNotActive       = "batch_not_active"
	CodeBatchScrapped        = "batch_scrapped"
	CodeBatchExpired         = "batch_expired"
	CodeInsufficientQuantity = "insufficient_quantity"
	CodeFEFOViolation        = "fefo_violation"
	CodeExpiringSoon         = "expiring_soon"
	CodeItemNotFound         = "item_not_found"
	CodeItemInactive         = "item_inactive"
	CodeLocationNotFound     = "location_not_found"
	CodeLocationInactive     = "location_inactive"
	CodeExpiredOnArrival     = "expired_on_arrival"
	CodeFutureReceiptDate    = "future_receipt_date"
	CodeDuplicateBatchNumber = "duplicate_batch_number"
	CodeDuplicateNumber      = "duplicate_number"
	CodeCounterOverflow      = "counter_overflow"
	CodeInvalidTransition    = "invalid_transition"
	CodeMinOneLine           = "min_one_line"
	CodeNoChange             = "no_change"
	CodeCustomerNotFound     = "customer_not_found"
	CodeCustomerInactive     = "customer_inactive"
	CodeUserNotFound         = "user_not_found"
	CodePermissionDenied     = "permission_denied"
	CodeHasBatches           = "has_batches"
	CodeDuplicateSKU         = "duplicate_sku"
	CodeDuplicateCode        = "duplicate_code"
	CodeDuplicateUsername    = "duplicate_username"
)

// NotFoundError reports a missing entity. Key is whatever the caller used
// to look it up (id, sku, batch number).
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// NotFound builds a NotFoundError.
func NotFound(entity, key string) error {
	return &NotFoundError{Entity: entity, Key: key}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidationError reports input the domain rejects. Code is stable ASCII.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Validation builds a ValidationError with a formatted message.
func Validation(code, format string, args ...interface{}) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidationCode extracts the code from a wrapped ValidationError, or ""
// when err is not one.
func ValidationCode(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// ConflictError reports a state conflict: duplicate unique keys, illegal
// lifecycle transitions, stale writes.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Conflict builds a ConflictError with a formatted message.
func Conflict(code, format string, args ...interface{}) error {
	return &ConflictError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ConflictCode extracts the code from a wrapped ConflictError, or "".
func ConflictCode(err error) string {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// InsufficientStockError reports a movement that would overdraw a batch.
// It is a ValidationError carrying both quantities so callers can render
// or retry with less; IsValidation and AsInsufficientStock both match.
type InsufficientStockError struct {
	ValidationError
	BatchID   string
	Available decimal.Decimal
	Requested decimal.Decimal
}

// Unwrap exposes the embedded ValidationError to errors.As chains.
func (e *InsufficientStockError) Unwrap() error {
	return &e.ValidationError
}

// InsufficientStock builds an InsufficientStockError.
func InsufficientStock(batchID string, available, requested decimal.Decimal) error {
	return &InsufficientStockError{
		ValidationError: ValidationError{
			Code: CodeInsufficientQuantity,
			Message: fmt.Sprintf("insufficient stock on batch %s: requested %s, available %s",
				batchID, requested.String(), available.String()),
		},
		BatchID:   batchID,
		Available: available,
		Requested: requested,
	}
}

// AsInsufficientStock extracts an InsufficientStockError when err wraps one.
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}
