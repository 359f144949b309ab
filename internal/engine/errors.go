package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected during query execution.
//
// Most faults inside the cycle are recovered locally and surface as
// trace data, not errors. RuntimeError covers the cases that escape the
// per-condition/per-action boundaries: a busy engine, a rule vanishing
// from the knowledge source mid-query, or a panic aborting the loop.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// QueryToken identifies the affected query, when known.
	QueryToken string

	// RuleID identifies the rule involved, when applicable.
	RuleID string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeEngineBusy indicates RunQuery was called while another
	// query was in flight on the same instance.
	ErrCodeEngineBusy RuntimeErrorCode = "ENGINE_BUSY"

	// ErrCodeRuleNotFound indicates an activation referenced a rule id
	// the knowledge source no longer resolves.
	ErrCodeRuleNotFound RuntimeErrorCode = "RULE_NOT_FOUND"

	// ErrCodeAborted indicates a fault escaped the recovery boundaries
	// and the query terminated early.
	ErrCodeAborted RuntimeErrorCode = "ABORTED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.QueryToken != "" && e.RuleID != "":
		return fmt.Sprintf("%s: %s (query=%s, rule=%s)", e.Code, e.Message, e.QueryToken, e.RuleID)
	case e.QueryToken != "":
		return fmt.Sprintf("%s: %s (query=%s)", e.Code, e.Message, e.QueryToken)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsBusyError reports whether the error is an engine-busy error.
// Uses errors.As to handle wrapped errors.
func IsBusyError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeEngineBusy
}
