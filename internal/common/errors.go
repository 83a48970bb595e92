// Package common provides shared utilities and error types used across the
// application.
package common

import (
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Request errors.
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("authorization required")
	ErrAdminOnly    = errors.New("admin access required")

	// External ledger errors.
	ErrLedgerFailed = errors.New("external ledger update failed")
	ErrRateLimit    = errors.New("rate limit exceeded")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// CriticalError marks an expense whose external ledger entry was updated but
// whose local mirror write failed. The two systems are known to disagree;
// the condition requires manual reconciliation and must never be retried
// automatically (a retry would risk double-applying the external update).
type CriticalError struct {
	Err        error
	ExpenseID  string
	RequestIDs []string
}

func (e *CriticalError) Error() string {
	return fmt.Sprintf("manual intervention required for expense %s (requests %s): external ledger updated but local mirror write failed: %v",
		e.ExpenseID, strings.Join(e.RequestIDs, ", "), e.Err)
}

func (e *CriticalError) Unwrap() error {
	return e.Err
}

// IsCritical reports whether err carries a CriticalError.
func IsCritical(err error) bool {
	var critical *CriticalError
	return errors.As(err, &critical)
}

// LedgerError marks a failed external ledger call. No local state was
// touched, so the operation is safe to retry once the ledger is reachable.
type LedgerError struct {
	Err       error
	ExpenseID int64
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("external ledger update failed for expense %d: %v", e.ExpenseID, e.Err)
}

func (e *LedgerError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrLedgerFailed
}

// IsRetryable determines if an error should trigger a retry. Critical
// errors are explicitly never retryable.
func IsRetryable(err error) bool {
	if IsCritical(err) {
		return false
	}
	if errors.Is(err, ErrRateLimit) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	var ledgerErr *LedgerError
	return errors.As(err, &ledgerErr)
}
