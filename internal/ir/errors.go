package ir

import (
	"errors"
	"fmt"
)

// KernelError is the single error type of the kernel's error taxonomy.
// The Code field decides whether the driver treats a failure as fatal
// (configuration) or recoverable (rollback or retry).
type KernelError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// NodeID identifies the workflow node, when known.
	NodeID string

	// TxID identifies the transaction attempt, when known.
	TxID string

	// Details carries additional context (e.g. validator violations).
	Details []string

	// Err is the underlying cause, if any.
	Err error
}

// ErrSeqTaken reports that a receipt's seq is not above the highest seq in
// the log: another writer on the same database appended first. The writer
// resyncs its clock and writes again.
var ErrSeqTaken = errors.New("receipt seq already taken")

// ErrorCode categorizes kernel errors.
type ErrorCode string

const (
	// ErrCodeUnknownPattern: no catalog entry matches the node's signature. Fatal.
	ErrCodeUnknownPattern ErrorCode = "UNKNOWN_PATTERN"

	// ErrCodeInvalidParameter: a parameter value is outside its closed set. Fatal.
	ErrCodeInvalidParameter ErrorCode = "INVALID_PARAMETER"

	// ErrCodeBatchSizeExceeded: a delta would exceed MaxBatchSize. Fatal.
	ErrCodeBatchSizeExceeded ErrorCode = "BATCH_SIZE_EXCEEDED"

	// ErrCodeValidationFailure: the validator rejected the candidate graph. Rolled back.
	ErrCodeValidationFailure ErrorCode = "VALIDATION_FAILURE"

	// ErrCodeCommitConflict: the tip advanced since the snapshot. Retried.
	ErrCodeCommitConflict ErrorCode = "COMMIT_CONFLICT"

	// ErrCodeTimeout: a verb or guard exceeded its time bound. Rolled back.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Error implements the error interface.
func (e *KernelError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.NodeID != "" {
		msg += fmt.Sprintf(" (node=%s)", e.NodeID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *KernelError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error is a non-retryable configuration failure.
func (e *KernelError) Fatal() bool {
	switch e.Code {
	case ErrCodeUnknownPattern, ErrCodeInvalidParameter, ErrCodeBatchSizeExceeded:
		return true
	default:
		return false
	}
}

// CodeOf returns the KernelError code of err, or "" if err is not one.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ke *KernelError
	if errors.As(err, &ke) {
		return ke.Code
	}
	return ""
}

// IsUnknownPattern returns true if err is an UNKNOWN_PATTERN error.
func IsUnknownPattern(err error) bool { return CodeOf(err) == ErrCodeUnknownPattern }

// IsInvalidParameter returns true if err is an INVALID_PARAMETER error.
func IsInvalidParameter(err error) bool { return CodeOf(err) == ErrCodeInvalidParameter }

// IsBatchSizeExceeded returns true if err is a BATCH_SIZE_EXCEEDED error.
func IsBatchSizeExceeded(err error) bool { return CodeOf(err) == ErrCodeBatchSizeExceeded }

// IsValidationFailure returns true if err is a VALIDATION_FAILURE error.
func IsValidationFailure(err error) bool { return CodeOf(err) == ErrCodeValidationFailure }

// IsCommitConflict returns true if err is a COMMIT_CONFLICT error.
func IsCommitConflict(err error) bool { return CodeOf(err) == ErrCodeCommitConflict }

// IsTimeout returns true if err is a TIMEOUT error.
func IsTimeout(err error) bool { return CodeOf(err) == ErrCodeTimeout }

// NewUnknownPatternError creates an UNKNOWN_PATTERN error.
func NewUnknownPatternError(nodeID string, key SignatureKey) *KernelError {
	return &KernelError{
		Code:    ErrCodeUnknownPattern,
		Message: fmt.Sprintf("no catalog entry for signature %q", key),
		NodeID:  nodeID,
	}
}

// NewInvalidParameterError creates an INVALID_PARAMETER error.
func NewInvalidParameterError(param, value string) *KernelError {
	return &KernelError{
		Code:    ErrCodeInvalidParameter,
		Message: fmt.Sprintf("invalid value %q for %s", value, param),
	}
}

// NewBatchSizeError creates a BATCH_SIZE_EXCEEDED error.
func NewBatchSizeError(size int) *KernelError {
	return &KernelError{
		Code:    ErrCodeBatchSizeExceeded,
		Message: fmt.Sprintf("delta has %d operations, limit is %d", size, MaxBatchSize),
	}
}

// NewValidationFailure creates a VALIDATION_FAILURE error carrying the violations.
func NewValidationFailure(nodeID string, violations []string) *KernelError {
	return &KernelError{
		Code:    ErrCodeValidationFailure,
		Message: fmt.Sprintf("candidate graph has %d violation(s)", len(violations)),
		NodeID:  nodeID,
		Details: violations,
	}
}

// NewCommitConflictError creates a COMMIT_CONFLICT error.
func NewCommitConflictError(expected, actual string) *KernelError {
	return &KernelError{
		Code:    ErrCodeCommitConflict,
		Message: fmt.Sprintf("tip moved: expected %s, found %s", short(expected), short(actual)),
	}
}

// NewTimeoutError creates a TIMEOUT error.
func NewTimeoutError(nodeID string, cause error) *KernelError {
	return &KernelError{
		Code:    ErrCodeTimeout,
		Message: "verb evaluation exceeded its time bound",
		NodeID:  nodeID,
		Err:     cause,
	}
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
