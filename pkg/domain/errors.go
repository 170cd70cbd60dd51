package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoEligibleTechnique is returned when the candidate list is empty after
// filtering the registry against the environment.
var ErrNoEligibleTechnique = errors.New("no eligible technique for this environment")

// ErrJournalConflict is returned when a system-wide apply is requested while
// an unresolved journal entry exists.
var ErrJournalConflict = errors.New("unresolved journal entry blocks a new system-wide change")

// ErrEntryNotFound is returned when a journal entry ID cannot be found in
// the store.
var ErrEntryNotFound = errors.New("journal entry not found")

// ErrPermissionDenied is returned when an operation requires root and the
// caller does not have it.
var ErrPermissionDenied = errors.New("root privileges required")

// ErrTimeSourceUnreachable wraps failures to obtain a reference time.
var ErrTimeSourceUnreachable = errors.New("time source unreachable")

// ApplyErrorKind classifies why a technique's apply step failed.
type ApplyErrorKind int

const (
	ApplyUnknown ApplyErrorKind = iota
	ApplyPermissionDenied
	ApplyToolMissing
	ApplyUnsupportedEnvironment
	ApplyTimeout
)

func (k ApplyErrorKind) String() string {
	switch k {
	case ApplyPermissionDenied:
		return "permission denied"
	case ApplyToolMissing:
		return "tool missing"
	case ApplyUnsupportedEnvironment:
		return "unsupported environment"
	case ApplyTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ApplyError reports a failed apply attempt with enough classification for
// the fallback logic and the failure matrix.
type ApplyError struct {
	Technique TechniqueID
	Kind      ApplyErrorKind
	Detail    string
	Err       error
}

func (e *ApplyError) Error() string {
	msg := fmt.Sprintf("technique %d apply failed (%s)", e.Technique, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ApplyError) Unwrap() error { return e.Err }

// RevertError reports a failed revert step. Revert failures are never
// swallowed: the journal entry stays and the operator is told to run reset.
type RevertError struct {
	Technique TechniqueID
	Step      string
	Err       error
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("technique %d revert failed at %q: %v", e.Technique, e.Step, e.Err)
}

func (e *RevertError) Unwrap() error { return e.Err }

// Attempt is one failed candidate in a fallback sequence.
type Attempt struct {
	Technique TechniqueID
	Name      string
	Reason    string
}

// FallbackError aggregates every failed candidate after the list is
// exhausted. The attempts feed the operator-facing failure matrix.
type FallbackError struct {
	Attempts []Attempt
}

func (e *FallbackError) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, fmt.Sprintf("%d/%s: %s", a.Technique, a.Name, a.Reason))
	}
	return "all techniques failed: " + strings.Join(reasons, "; ")
}
