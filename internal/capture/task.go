// Package capture implements the conversational field-capture task: a
// short-lived sub-dialogue that turns noisy spoken transcription into one
// validated value (a phone number, a full name) and requires an explicit
// confirmation before the value is trusted.
//
// A task moves through a small state machine:
//
//	AwaitingValue --UpdateValue--> AwaitingConfirmation --ConfirmValue--> Completed
//
// UpdateValue may be called again from AwaitingConfirmation to replace the
// hypothesis; Decline moves any non-terminal state to Declined. Completed and
// Declined are terminal.
//
// Each hypothesis is tagged with the conversational turn that produced it.
// ConfirmValue rejects a confirmation arriving on that same turn — a single
// utterance must never be read as both a proposal and its own confirmation.
package capture

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors returned by Task methods. All are recoverable within the
// conversation: the caller re-prompts and drives the task again.
var (
	// ErrValidation indicates the candidate value did not match the field's
	// structural grammar.
	ErrValidation = errors.New("capture: value failed validation")

	// ErrAmbiguousConfirmation indicates the confirming turn is the same turn
	// that set the current hypothesis.
	ErrAmbiguousConfirmation = errors.New("capture: the user must confirm the value on a separate turn")

	// ErrEmptyValue indicates ConfirmValue was called before any hypothesis
	// was recorded.
	ErrEmptyValue = errors.New("capture: no value has been provided yet")

	// ErrTaskTerminal indicates the task already completed or was declined.
	ErrTaskTerminal = errors.New("capture: task is already in a terminal state")
)

// State identifies where a [Task] is in its lifecycle.
type State int

const (
	// StateAwaitingValue means no hypothesis has been recorded yet.
	StateAwaitingValue State = iota

	// StateAwaitingConfirmation means a hypothesis is recorded and waiting
	// for an explicit user confirmation.
	StateAwaitingConfirmation

	// StateCompleted means the value was confirmed. Terminal.
	StateCompleted

	// StateDeclined means the user refused to provide the field. Terminal.
	StateDeclined
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateAwaitingValue:
		return "awaiting-value"
	case StateAwaitingConfirmation:
		return "awaiting-confirmation"
	case StateCompleted:
		return "completed"
	case StateDeclined:
		return "declined"
	default:
		return "unknown"
	}
}

// FieldSpec describes one capturable field: how to ask for it, how to
// normalize a raw transcription into a candidate value, and how to restate a
// candidate back to the user for confirmation.
type FieldSpec struct {
	// Name is the human-readable field name used in prompts and errors
	// (e.g. "phone number").
	Name string

	// Prompt is the initial request emitted by Start.
	Prompt string

	// Normalize converts a raw transcription into the canonical field value.
	// It must be a pure reformatting step — never inventing content that was
	// not present in the input — and returns an error when the input cannot
	// match the field's grammar.
	Normalize func(raw string) (string, error)

	// Restate renders a normalized value the way it should be repeated back
	// to the user before asking for confirmation.
	Restate func(value string) string
}

// UpdateResult is returned by a successful UpdateValue call.
type UpdateResult struct {
	// Value is the normalized hypothesis now held by the task.
	Value string

	// Restatement is the directive for repeating the value back to the user
	// before prompting for confirmation.
	Restatement string
}

// Result is the outcome of a completed task.
type Result struct {
	// Value is the confirmed field value.
	Value string
}

// Task captures a single structured field over several conversational turns.
// All methods are safe for concurrent use, though a task is normally driven
// by one session processing one utterance at a time.
type Task struct {
	spec FieldSpec

	mu            sync.Mutex
	state         State
	started       bool
	value         string
	valueTurn     TurnID
	declineReason string
}

// NewTask creates a Task for the given field specification.
func NewTask(spec FieldSpec) *Task {
	return &Task{spec: spec}
}

// Start returns the initial prompt requesting the field. Only the first call
// emits the prompt; repeated calls return an empty string.
func (t *Task) Start() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return ""
	}
	t.started = true
	return t.spec.Prompt
}

// UpdateValue normalizes candidate and records it as the current hypothesis,
// tagged with the turn that produced it. A later call replaces the hypothesis
// and re-tags the turn.
//
// Returns [ErrValidation] when normalization rejects the candidate and
// [ErrTaskTerminal] once the task has completed or been declined.
func (t *Task) UpdateValue(turn TurnID, candidate string) (UpdateResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateCompleted || t.state == StateDeclined {
		return UpdateResult{}, fmt.Errorf("%w (%s)", ErrTaskTerminal, t.state)
	}

	value, err := t.spec.Normalize(candidate)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("%w: %s %q: %v", ErrValidation, t.spec.Name, candidate, err)
	}

	t.value = value
	t.valueTurn = turn
	t.state = StateAwaitingConfirmation

	return UpdateResult{Value: value, Restatement: t.spec.Restate(value)}, nil
}

// ConfirmValue marks the current hypothesis as confirmed and completes the
// task.
//
// Returns [ErrEmptyValue] when no hypothesis was recorded,
// [ErrAmbiguousConfirmation] when turn equals the turn that set the current
// hypothesis, and [ErrTaskTerminal] once the task is terminal.
func (t *Task) ConfirmValue(turn TurnID) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateCompleted || t.state == StateDeclined {
		return Result{}, fmt.Errorf("%w (%s)", ErrTaskTerminal, t.state)
	}
	if t.value == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrEmptyValue, t.spec.Name)
	}
	if turn == t.valueTurn {
		return Result{}, fmt.Errorf("%w: %s", ErrAmbiguousConfirmation, t.spec.Name)
	}

	t.state = StateCompleted
	return Result{Value: t.value}, nil
}

// Decline terminates the task early, recording that the user explicitly
// refused to provide the field. Returns [ErrTaskTerminal] when the task is
// already terminal.
func (t *Task) Decline(reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateCompleted || t.state == StateDeclined {
		return fmt.Errorf("%w (%s)", ErrTaskTerminal, t.state)
	}
	t.state = StateDeclined
	t.declineReason = reason
	return nil
}

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Value returns the current hypothesis (confirmed or not). Empty until the
// first successful UpdateValue.
func (t *Task) Value() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// DeclineReason returns the reason recorded by Decline, or "" if the task was
// not declined.
func (t *Task) DeclineReason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.declineReason
}

// FieldName returns the human-readable name of the captured field.
func (t *Task) FieldName() string {
	return t.spec.Name
}
