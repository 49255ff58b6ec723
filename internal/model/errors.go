package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownTask          = errors.New("unknown task")
	ErrCycleDetected        = errors.New("cycle detected")
	ErrNotATraversableGraph = errors.New("not a traversable graph")
	ErrStaleBaseVersion     = errors.New("stale base version")
	ErrNoAffectedTasks      = errors.New("no affected tasks")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrValidation           = errors.New("validation error")

	ErrTimelineNotFound = errors.New("timeline not found")
	ErrTimelineExists   = errors.New("timeline already exists")
	ErrTriggerNotFound  = errors.New("trigger not found")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrUnknownFactType  = errors.New("unknown fact type")
)

// ErrProposalExpired is returned when a proposal is approved after its
// confirmation deadline. It is a stale-base condition: callers regenerate.
var ErrProposalExpired = fmt.Errorf("proposal expired: %w", ErrStaleBaseVersion)

// EngineError describes which invariant was violated and which ids were implicated.
type EngineError struct {
	Kind         error
	TaskID       string
	DependencyID string
	TriggerID    int64
	ProposalID   int64
	Field        string
	Detail       string
}

func (e *EngineError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.TaskID != "" {
		fmt.Fprintf(&b, " (task %s)", e.TaskID)
	}
	if e.DependencyID != "" {
		fmt.Fprintf(&b, " (dependency %s)", e.DependencyID)
	}
	if e.TriggerID != 0 {
		fmt.Fprintf(&b, " (trigger %d)", e.TriggerID)
	}
	if e.ProposalID != 0 {
		fmt.Fprintf(&b, " (proposal %d)", e.ProposalID)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " (field %s)", e.Field)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *EngineError) Unwrap() error {
	return e.Kind
}

func NewValidationError(field, detail string) *EngineError {
	return &EngineError{Kind: ErrValidation, Field: field, Detail: detail}
}

// AsEngineError extracts the implicated ids from err, if any.
func AsEngineError(err error) (*EngineError, bool) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// IsPermanent reports whether err is a data/programmer error that must never be retried.
func IsPermanent(err error) bool {
	for _, kind := range []error{
		ErrUnknownTask,
		ErrCycleDetected,
		ErrNotATraversableGraph,
		ErrNoAffectedTasks,
		ErrInvalidTransition,
		ErrValidation,
		ErrUnknownFactType,
		ErrTimelineNotFound,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
