package model

import "fmt"

// FailureKind is the closed taxonomy every collaborator error is normalized
// into before the router sees it. The router's retry policy reasons about
// kinds only, never raw errors.
type FailureKind string

const (
	// FailureMissingParameter: a required slot is absent. Recoverable by
	// asking the user for it.
	FailureMissingParameter FailureKind = "missing_parameter"
	// FailureInvalidParameter: a slot is present but failed validation.
	// Recoverable by re-prompting for that slot specifically.
	FailureInvalidParameter FailureKind = "invalid_parameter"
	// FailureTransient: timeout, rate limit, upstream unavailable.
	// Eligible for retry up to the router's bound.
	FailureTransient FailureKind = "transient"
	// FailurePermanent: not-found, permission-denied, malformed request.
	// Never retried; surfaces directly to the user.
	FailurePermanent FailureKind = "permanent"
	// FailureLoopLimit: the retry budget for consecutive transient failures
	// is spent. Terminal; the reply must say the operation was retried.
	FailureLoopLimit FailureKind = "loop_limit_exceeded"
)

// Failure is a classified tool failure.
type Failure struct {
	Kind    FailureKind
	Slot    string // set for parameter failures
	Message string
}

func (f *Failure) Error() string {
	if f.Slot != "" {
		return fmt.Sprintf("%s (%s): %s", f.Kind, f.Slot, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Recoverable reports whether the router may loop back instead of surfacing
// the failure.
func (f *Failure) Recoverable() bool {
	return f.Kind != FailurePermanent && f.Kind != FailureLoopLimit
}

// SlotError is returned by tools when an argument passed schema validation
// but is semantically unusable (unknown currency code, negative amount).
// The executor classifies it as FailureInvalidParameter.
type SlotError struct {
	Slot   string
	Reason string
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Slot, e.Reason)
}

// ToolCall is one attempt at invoking a tool. Lifecycle is a single router
// decision cycle; a retry gets a new Attempt, never a silent replay.
type ToolCall struct {
	ID        string
	Tool      string
	Arguments SlotValues
	Attempt   int
}

// ToolResult is the classified outcome of one ToolCall attempt.
type ToolResult struct {
	Call    ToolCall
	Payload string // raw tool output (JSON)
	Blocks  []Block
	Failure *Failure // nil on success
}

// OK reports success.
func (r *ToolResult) OK() bool { return r.Failure == nil }
