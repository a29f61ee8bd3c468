// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrOracleInvalid         = errors.New("oracle price invalid")
	ErrOracleStale           = errors.New("oracle price stale")
	ErrInsufficientSpendable = errors.New("insufficient spendable balance")
	ErrUnknownBucket         = errors.New("unknown bucket")
	ErrAlreadyRunning        = errors.New("controller already running")
	ErrNotRunning            = errors.New("controller not running")
	ErrTickInFlight          = errors.New("tick already in flight")
	ErrPolicyThresholds      = errors.New("emergency health threshold above minimum health threshold")
	ErrLedgerUnavailable     = errors.New("ledger not configured")
	ErrRailUnavailable       = errors.New("payment rail not configured")
	ErrBorrowerUnknown       = errors.New("borrower not found")
	ErrConfigInvalid         = errors.New("invalid configuration")
	ErrStoreUnavailable      = errors.New("data store not configured")
)

// OracleError represents a failure reading or validating an oracle price.
type OracleError struct {
	Source  string
	Price   float64
	Message string
	Err     error
}

func (e *OracleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oracle error [%s] price=%.4f: %s: %v", e.Source, e.Price, e.Message, e.Err)
	}
	return fmt.Sprintf("oracle error [%s] price=%.4f: %s", e.Source, e.Price, e.Message)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// NewOracleError creates a new OracleError.
func NewOracleError(source string, price float64, message string, err error) *OracleError {
	return &OracleError{
		Source:  source,
		Price:   price,
		Message: message,
		Err:     err,
	}
}

// LedgerError represents an error from the on-chain ledger collaborator.
type LedgerError struct {
	Op       string
	Borrower string
	Err      error
}

func (e *LedgerError) Error() string {
	if e.Borrower != "" {
		return fmt.Sprintf("ledger error [%s] borrower=%s: %v", e.Op, e.Borrower, e.Err)
	}
	return fmt.Sprintf("ledger error [%s]: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewLedgerError creates a new LedgerError.
func NewLedgerError(op, borrower string, err error) *LedgerError {
	return &LedgerError{
		Op:       op,
		Borrower: borrower,
		Err:      err,
	}
}

// RailError represents an error from the payment rail collaborator.
type RailError struct {
	Op     string
	From   string
	To     string
	Amount string
	Err    error
}

func (e *RailError) Error() string {
	return fmt.Sprintf("rail error [%s] %s->%s %s: %v", e.Op, e.From, e.To, e.Amount, e.Err)
}

func (e *RailError) Unwrap() error {
	return e.Err
}

// NewRailError creates a new RailError.
func NewRailError(op, from, to, amount string, err error) *RailError {
	return &RailError{
		Op:     op,
		From:   from,
		To:     to,
		Amount: amount,
		Err:    err,
	}
}

// RiskError represents a risk rule rejection.
type RiskError struct {
	Rule    string
	Current float64
	Limit   float64
	Message string
}

func (e *RiskError) Error() string {
	return fmt.Sprintf("risk violation [%s]: %s (current: %.4f, limit: %.4f)", e.Rule, e.Message, e.Current, e.Limit)
}

// NewRiskError creates a new RiskError.
func NewRiskError(rule string, current, limit float64, message string) *RiskError {
	return &RiskError{
		Rule:    rule,
		Current: current,
		Limit:   limit,
		Message: message,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
