package booking

import (
	"errors"
	"fmt"
	"strings"
)

// Spoken results returned to the model as the book_room tool output.
const (
	MsgSaved            = "Booking successfully saved to the system."
	MsgSystemOffline    = "Error: System offline (Credential file missing)."
	MsgSaveFailed       = "An error occurred while saving the booking."
	MsgAlreadySubmitted = "This booking has already been submitted."
)

// ErrAlreadySubmitted is returned when a session tries to confirm a second
// booking without an explicit Reset.
var ErrAlreadySubmitted = errors.New("booking already submitted for this session")

// FailureKind classifies why the gateway could not persist a row.
type FailureKind int

const (
	Unknown FailureKind = iota
	AuthenticationFailure
	TargetNotFound
	TransientFailure
)

func (k FailureKind) String() string {
	switch k {
	case AuthenticationFailure:
		return "authentication_failure"
	case TargetNotFound:
		return "target_not_found"
	case TransientFailure:
		return "transient_failure"
	default:
		return "unknown"
	}
}

// PersistenceError is the only error type a Gateway returns.
type PersistenceError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// UserMessage never includes the underlying cause.
func (e *PersistenceError) UserMessage() string {
	switch e.Kind {
	case AuthenticationFailure, TargetNotFound:
		return MsgSystemOffline
	default:
		return MsgSaveFailed
	}
}

// NewPersistenceError wraps err with kind. Gateways use it to keep the error set closed.
func NewPersistenceError(kind FailureKind, op string, err error) *PersistenceError {
	return &PersistenceError{Kind: kind, Op: op, Err: err}
}

// ValidationError names the booking fields that are missing or out of range.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "booking validation failed: " + strings.Join(parts, "; ")
}

// Fields returns every offending field, missing first.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Missing)+len(e.Invalid))
	out = append(out, e.Missing...)
	return append(out, e.Invalid...)
}

func (e *ValidationError) UserMessage() string {
	fields := make([]string, 0, len(e.Missing)+len(e.Invalid))
	for _, f := range e.Fields() {
		fields = append(fields, strings.ReplaceAll(f, "_", " "))
	}
	return "Missing or invalid booking details: " + strings.Join(fields, ", ") + "."
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

// ContractViolation is raised (as a panic value) when a caller breaks a
// precondition that validation should already have enforced.
type ContractViolation struct {
	Func   string
	Reason string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation in %s: %s", e.Func, e.Reason)
}

// SpokenMessage maps any error from the machine to a short, speakable string.
func SpokenMessage(err error) string {
	if err == nil {
		return MsgSaved
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.UserMessage()
	}
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return perr.UserMessage()
	}
	if errors.Is(err, ErrAlreadySubmitted) {
		return MsgAlreadySubmitted
	}
	return MsgSaveFailed
}
