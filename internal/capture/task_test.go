package capture

import (
	"context"
	"errors"
	"testing"
)

// testSpec is a minimal field spec that accepts any non-empty value.
func testSpec() FieldSpec {
	return FieldSpec{
		Name:   "test field",
		Prompt: "Please tell me the test field.",
		Normalize: func(raw string) (string, error) {
			if raw == "" {
				return "", errors.New("empty")
			}
			return raw, nil
		},
		Restate: func(value string) string { return "<" + value + ">" },
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Start
// ─────────────────────────────────────────────────────────────────────────────

func TestStart_EmitsPromptOnce(t *testing.T) {
	t.Parallel()
	task := NewTask(testSpec())

	if got := task.Start(); got != "Please tell me the test field." {
		t.Errorf("first Start() = %q, want the prompt", got)
	}
	if got := task.Start(); got != "" {
		t.Errorf("second Start() = %q, want empty", got)
	}
	if task.State() != StateAwaitingValue {
		t.Errorf("state = %v, want %v", task.State(), StateAwaitingValue)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateValue / ConfirmValue
// ─────────────────────────────────────────────────────────────────────────────

func TestUpdateValue_RecordsHypothesis(t *testing.T) {
	t.Parallel()
	task := NewTask(testSpec())

	res, err := task.UpdateValue(TurnID("t1"), "hello")
	if err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	if res.Value != "hello" {
		t.Errorf("value = %q, want %q", res.Value, "hello")
	}
	if res.Restatement != "<hello>" {
		t.Errorf("restatement = %q, want %q", res.Restatement, "<hello>")
	}
	if task.State() != StateAwaitingConfirmation {
		t.Errorf("state = %v, want %v", task.State(), StateAwaitingConfirmation)
	}
}

func TestUpdateValue_ValidationFailureKeepsState(t *testing.T) {
	t.Parallel()
	task := NewTask(testSpec())

	if _, err := task.UpdateValue(TurnID("t1"), ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("UpdateValue error = %v, want ErrValidation", err)
	}
	if task.State() != StateAwaitingValue {
		t.Errorf("state = %v, want %v", task.State(), StateAwaitingValue)
	}
	if task.Value() != "" {
		t.Errorf("value = %q, want empty", task.Value())
	}
}

func TestConfirmValue_SameTurnIsAmbiguous(t *testing.T) {
	t.Parallel()
	task := NewTask(testSpec())

	if _, err := task.UpdateValue(TurnID("t1"), "hello"); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	if _, err := task.ConfirmValue(TurnID("t1")); !errors.Is(err, ErrAmbiguousConfirmation) {
		t.Fatalf("ConfirmValue error = %v, want ErrAmbiguousConfirmation", err)
	}
	// The hypothesis survives the rejected confirmation.
	if task.State() != StateAwaitingConfirmation {
		t.Errorf("state = %v, want %v", task.State(), StateAwaitingConfirmation)
	}

	// A later turn confirms cleanly.
	res, err := task.ConfirmValue(TurnID("t2"))
	if err != nil {
		t.Fatalf("ConfirmValue on later turn: %v", err)
	}
	if res.Value != "hello" {
		t.Errorf("confirmed value = %q, want %q", res.Value, "hello")
	}
	if task.State() != StateCompleted {
		t.Errorf("state = %v, want %v", task.State(), StateCompleted)
	}
}

func TestConfirmValue_WithoutHypothesis(t *testing.T) {
	t.Parallel()
	task := NewTask(testSpec())

	if _, err := task.ConfirmValue(TurnID("t1")); !errors.Is(err, ErrEmptyValue) {
		t.Fatalf("ConfirmValue error = %v, want ErrEmptyValue", err)
	}
}

func TestUpdateValue_ReplacementRetagsTurn(t *testing.T) {
	t.Parallel()
	task := NewTask(testSpec())

	if _, err := task.UpdateValue(TurnID("t1"), "first"); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	// The replacement happens on turn t2, so t2 may not also confirm.
	if _, err := task.UpdateValue(TurnID("t2"), "second"); err != nil {
		t.Fatalf("UpdateValue replacement: %v", err)
	}
	if _, err := task.ConfirmValue(TurnID("t2")); !errors.Is(err, ErrAmbiguousConfirmation) {
		t.Fatalf("ConfirmValue error = %v, want ErrAmbiguousConfirmation", err)
	}

	res, err := task.ConfirmValue(TurnID("t3"))
	if err != nil {
		t.Fatalf("ConfirmValue: %v", err)
	}
	if res.Value != "second" {
		t.Errorf("confirmed value = %q, want %q", res.Value, "second")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Terminal states
// ─────────────────────────────────────────────────────────────────────────────

func TestDecline_TerminatesTask(t *testing.T) {
	t.Parallel()
	task := NewTask(testSpec())

	if err := task.Decline("does not want to share"); err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if task.State() != StateDeclined {
		t.Errorf("state = %v, want %v", task.State(), StateDeclined)
	}
	if got := task.DeclineReason(); got != "does not want to share" {
		t.Errorf("reason = %q", got)
	}

	if _, err := task.UpdateValue(TurnID("t1"), "late"); !errors.Is(err, ErrTaskTerminal) {
		t.Errorf("UpdateValue after decline = %v, want ErrTaskTerminal", err)
	}
	if _, err := task.ConfirmValue(TurnID("t1")); !errors.Is(err, ErrTaskTerminal) {
		t.Errorf("ConfirmValue after decline = %v, want ErrTaskTerminal", err)
	}
	if err := task.Decline("again"); !errors.Is(err, ErrTaskTerminal) {
		t.Errorf("second Decline = %v, want ErrTaskTerminal", err)
	}
}

func TestCompleted_IsTerminal(t *testing.T) {
	t.Parallel()
	task := NewTask(testSpec())

	if _, err := task.UpdateValue(TurnID("t1"), "value"); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	if _, err := task.ConfirmValue(TurnID("t2")); err != nil {
		t.Fatalf("ConfirmValue: %v", err)
	}

	if _, err := task.UpdateValue(TurnID("t3"), "other"); !errors.Is(err, ErrTaskTerminal) {
		t.Errorf("UpdateValue after completion = %v, want ErrTaskTerminal", err)
	}
	if err := task.Decline("too late"); !errors.Is(err, ErrTaskTerminal) {
		t.Errorf("Decline after completion = %v, want ErrTaskTerminal", err)
	}
	if task.Value() != "value" {
		t.Errorf("value = %q, want %q", task.Value(), "value")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Turn context helpers
// ─────────────────────────────────────────────────────────────────────────────

func TestNextTurn_Unique(t *testing.T) {
	t.Parallel()
	a, b := NextTurn(), NextTurn()
	if a == b {
		t.Errorf("NextTurn returned duplicate ID %q", a)
	}
}

func TestTurnFromContext(t *testing.T) {
	t.Parallel()

	if _, ok := TurnFromContext(context.Background()); ok {
		t.Error("TurnFromContext on empty context reported a turn")
	}

	ctx := ContextWithTurn(context.Background(), TurnID("t42"))
	turn, ok := TurnFromContext(ctx)
	if !ok || turn != TurnID("t42") {
		t.Errorf("TurnFromContext = (%q, %v), want (t42, true)", turn, ok)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()
	tests := []struct {
		state State
		want  string
	}{
		{StateAwaitingValue, "awaiting-value"},
		{StateAwaitingConfirmation, "awaiting-confirmation"},
		{StateCompleted, "completed"},
		{StateDeclined, "declined"},
		{State(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}
