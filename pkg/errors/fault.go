package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a scheduling fault for callers: transports map kinds to
// status codes, clients decide whether to retry, refresh, or give up.
type Kind int

const (
	KindUnknown Kind = iota

	// KindValidation: malformed request, rejected before any computation.
	KindValidation

	// KindNotFound: entity absent, or belongs to another tenant.
	KindNotFound

	// KindConflict: requested interval is not free.
	KindConflict

	// KindSlotTaken: lost the optimistic-concurrency race on a slot.
	// Distinct from KindConflict so clients can silently re-query.
	KindSlotTaken

	// KindRuleViolation: a tenant scheduling rule rejected the operation.
	KindRuleViolation

	// KindUpstream: an external feed is unavailable.
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindSlotTaken:
		return "SLOT_ALREADY_BOOKED"
	case KindRuleViolation:
		return "RULE_VIOLATION"
	case KindUpstream:
		return "UPSTREAM_UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

type Fault struct {
	kind Kind
	msg  string

	// Overlap holds the busy interval that blocked a CONFLICT,
	// when known, so clients can retry around it.
	Overlap *[2]int64

	// Rule names the violated rule for RULE_VIOLATION faults.
	Rule string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.kind, f.msg)
}

func (f *Fault) Kind() Kind { return f.kind }

func Faulted(kind Kind, msgFormat string, args ...any) *Fault {
	return &Fault{kind: kind, msg: fmt.Sprintf(msgFormat, args...)}
}

func Conflict(msg string, overlap [2]int64) *Fault {
	return &Fault{kind: KindConflict, msg: msg, Overlap: &overlap}
}

func RuleViolation(rule string, msgFormat string, args ...any) *Fault {
	return &Fault{kind: KindRuleViolation, msg: fmt.Sprintf(msgFormat, args...), Rule: rule}
}

// KindOf extracts the fault kind through any wrapping.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.kind
	}
	return KindUnknown
}
