package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/frontdesk/internal/booking"
	"github.com/MrWong99/frontdesk/internal/calendar"
	calmock "github.com/MrWong99/frontdesk/internal/calendar/mock"
	"github.com/MrWong99/frontdesk/internal/notify"
	notifymock "github.com/MrWong99/frontdesk/internal/notify/mock"
	"github.com/MrWong99/frontdesk/pkg/provider/llm"
	llmmock "github.com/MrWong99/frontdesk/pkg/provider/llm/mock"
)

func testBooking(t *testing.T, cal *calmock.Calendar) *booking.Protocol {
	t.Helper()
	tz, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	proto, err := booking.New(booking.Config{
		Calendar: cal,
		Notifier: &notifymock.Sender{Result: true},
		Timezone: tz,
		Language: notify.LanguageEnglish,
		Now: func() time.Time {
			return time.Date(2026, time.September, 1, 10, 0, 0, 0, tz)
		},
	})
	if err != nil {
		t.Fatalf("booking.New: %v", err)
	}
	return proto
}

func newTestSession(t *testing.T, p llm.Provider, cal *calmock.Calendar) *Session {
	t.Helper()
	tz, _ := time.LoadLocation("Europe/Paris")
	s, err := New(Config{
		LLM:      p,
		Booking:  testBooking(t, cal),
		Timezone: tz,
		Language: notify.LanguageEnglish,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// ─── construction ────────────────────────────────────────────────────────────

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	tz, _ := time.LoadLocation("Europe/Paris")
	proto := testBooking(t, &calmock.Calendar{})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"nil llm", Config{Booking: proto, Timezone: tz, Language: notify.LanguageGerman}},
		{"nil booking", Config{LLM: &llmmock.Provider{}, Timezone: tz, Language: notify.LanguageGerman}},
		{"nil timezone", Config{LLM: &llmmock.Provider{}, Booking: proto, Language: notify.LanguageGerman}},
		{"bad language", Config{LLM: &llmmock.Provider{}, Booking: proto, Timezone: tz, Language: "es"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tc.cfg); err == nil {
				t.Error("New succeeded, want error")
			}
		})
	}
}

func TestNew_DefaultGreetings(t *testing.T) {
	t.Parallel()
	tz, _ := time.LoadLocation("Europe/Paris")

	tests := []struct {
		lang notify.Language
		want string
	}{
		{notify.LanguageGerman, "Terminassistentin"},
		{notify.LanguageFrench, "rendez-vous"},
		{notify.LanguageEnglish, "appointment booking assistant"},
	}
	for _, tc := range tests {
		t.Run(string(tc.lang), func(t *testing.T) {
			t.Parallel()
			s, err := New(Config{
				LLM:      &llmmock.Provider{},
				Booking:  testBooking(t, &calmock.Calendar{}),
				Timezone: tz,
				Language: tc.lang,
			})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if !strings.Contains(s.Greeting(), tc.want) {
				t.Errorf("greeting %q does not contain %q", s.Greeting(), tc.want)
			}
		})
	}
}

func TestNew_GreetingOverride(t *testing.T) {
	t.Parallel()
	tz, _ := time.LoadLocation("Europe/Paris")

	s, err := New(Config{
		LLM:      &llmmock.Provider{},
		Booking:  testBooking(t, &calmock.Calendar{}),
		Timezone: tz,
		Language: notify.LanguageFrench,
		Greeting: "Cabinet du docteur Martin, bonjour !",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Greeting() != "Cabinet du docteur Martin, bonjour !" {
		t.Errorf("greeting = %q", s.Greeting())
	}
}

// ─── turn handling ───────────────────────────────────────────────────────────

func TestHandleTurn_PlainAnswer(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{Responses: []*llm.CompletionResponse{
		{Content: "We are open Monday to Friday."},
	}}
	s := newTestSession(t, p, &calmock.Calendar{})

	got, err := s.HandleTurn(context.Background(), "When are you open?")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if got != "We are open Monday to Friday." {
		t.Errorf("reply = %q", got)
	}

	// One round-trip, with the full tool suite on offer.
	if len(p.CompleteCalls) != 1 {
		t.Fatalf("got %d LLM calls, want 1", len(p.CompleteCalls))
	}
	req := p.CompleteCalls[0].Req
	if len(req.Tools) == 0 {
		t.Error("first round-trip offered no tools")
	}
	if req.SystemPrompt == "" {
		t.Error("request is missing the system prompt")
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Errorf("messages = %+v, want the single user utterance", req.Messages)
	}
}

func TestHandleTurn_ToolRoundTrip(t *testing.T) {
	t.Parallel()
	tz, _ := time.LoadLocation("Europe/Paris")
	cal := &calmock.Calendar{Slots: []calendar.Slot{
		{StartTime: time.Date(2026, time.September, 3, 9, 30, 0, 0, tz)},
	}}
	p := &llmmock.Provider{Responses: []*llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{
			ID:        "call-1",
			Name:      "list_available_slots",
			Arguments: `{"range":"default"}`,
		}}},
		{Content: "I have a slot on Thursday at 9:30, shall I book it?"},
	}}
	s := newTestSession(t, p, cal)

	got, err := s.HandleTurn(context.Background(), "I need an appointment this week.")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if !strings.Contains(got, "Thursday") {
		t.Errorf("reply = %q", got)
	}

	if len(p.CompleteCalls) != 2 {
		t.Fatalf("got %d LLM calls, want 2", len(p.CompleteCalls))
	}
	// The second round-trip carries the assistant tool call and its result.
	msgs := p.CompleteCalls[1].Req.Messages
	if len(msgs) != 3 {
		t.Fatalf("got %d messages on the second round-trip, want 3", len(msgs))
	}
	if msgs[1].Role != "assistant" || len(msgs[1].ToolCalls) != 1 {
		t.Errorf("message 1 = %+v, want the assistant tool call", msgs[1])
	}
	if msgs[2].Role != "tool" || msgs[2].ToolCallID != "call-1" {
		t.Errorf("message 2 = %+v, want the tool result for call-1", msgs[2])
	}
	if !strings.Contains(msgs[2].Content, "Thursday, September 3, 2026 at 09:30") {
		t.Errorf("tool result %q does not carry the listing", msgs[2].Content)
	}
}

func TestHandleTurn_ToolErrorFedBack(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{Responses: []*llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{
			ID:        "call-1",
			Name:      "schedule_appointment",
			Arguments: `{"slot_id":"deadbeef","attendee_name":"Marie Curie"}`,
		}}},
		{Content: "Sorry, let me list the slots again."},
	}}
	s := newTestSession(t, p, &calmock.Calendar{})

	got, err := s.HandleTurn(context.Background(), "Book the slot deadbeef please.")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if got != "Sorry, let me list the slots again." {
		t.Errorf("reply = %q", got)
	}

	msgs := p.CompleteCalls[1].Req.Messages
	toolMsg := msgs[len(msgs)-1]
	if toolMsg.Role != "tool" || !strings.HasPrefix(toolMsg.Content, "error: ") {
		t.Errorf("tool message = %+v, want an error result", toolMsg)
	}
	if !strings.Contains(toolMsg.Content, "not recognised") {
		t.Errorf("tool error %q does not carry the guidance", toolMsg.Content)
	}
}

func TestHandleTurn_UnknownToolFedBack(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{Responses: []*llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "teleport_caller", Arguments: "{}"}}},
		{Content: "Apologies, I cannot do that."},
	}}
	s := newTestSession(t, p, &calmock.Calendar{})

	if _, err := s.HandleTurn(context.Background(), "Beam me up."); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	msgs := p.CompleteCalls[1].Req.Messages
	toolMsg := msgs[len(msgs)-1]
	if !strings.Contains(toolMsg.Content, `unknown tool "teleport_caller"`) {
		t.Errorf("tool message = %q", toolMsg.Content)
	}
}

func TestHandleTurn_SameTurnConfirmationRejected(t *testing.T) {
	t.Parallel()
	// Within one utterance the model records the phone number and immediately
	// tries to confirm it; the confirm must fail. In the caller's next turn the
	// confirmation goes through.
	p := &llmmock.Provider{Responses: []*llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{
			{ID: "call-1", Name: "update_phone_number", Arguments: `{"value":"0636363636"}`},
			{ID: "call-2", Name: "confirm_phone_number", Arguments: "{}"},
		}},
		{Content: "Your number is + 3 3 6 3 6 3 6 3 6 3 6, is that correct?"},
		{ToolCalls: []llm.ToolCall{
			{ID: "call-3", Name: "confirm_phone_number", Arguments: "{}"},
		}},
		{Content: "Thank you, the number is confirmed."},
	}}
	s := newTestSession(t, p, &calmock.Calendar{})
	ctx := context.Background()

	if _, err := s.HandleTurn(ctx, "My number is 0636363636, that's correct."); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	msgs := p.CompleteCalls[1].Req.Messages
	confirmResult := msgs[len(msgs)-1]
	if confirmResult.ToolCallID != "call-2" {
		t.Fatalf("last message = %+v, want the result of call-2", confirmResult)
	}
	if !strings.Contains(confirmResult.Content, "same message") {
		t.Errorf("same-turn confirm result = %q, want ambiguity guidance", confirmResult.Content)
	}

	reply, err := s.HandleTurn(ctx, "Yes, that's right.")
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if reply != "Thank you, the number is confirmed." {
		t.Errorf("reply = %q", reply)
	}
	msgs = p.CompleteCalls[3].Req.Messages
	confirmResult = msgs[len(msgs)-1]
	if confirmResult.ToolCallID != "call-3" || strings.HasPrefix(confirmResult.Content, "error:") {
		t.Errorf("next-turn confirm result = %+v, want success", confirmResult)
	}
}

func TestHandleTurn_StepLimit(t *testing.T) {
	t.Parallel()
	// The model keeps asking for tools; the last permitted round-trip is made
	// without tools, and a tool call anyway exhausts the budget.
	p := &llmmock.Provider{Responses: []*llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "request_user_name", Arguments: "{}"}}},
	}}
	tz, _ := time.LoadLocation("Europe/Paris")
	s, err := New(Config{
		LLM:          p,
		Booking:      testBooking(t, &calmock.Calendar{}),
		Timezone:     tz,
		Language:     notify.LanguageEnglish,
		MaxToolSteps: 2,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := s.HandleTurn(context.Background(), "hello"); err == nil {
		t.Fatal("HandleTurn succeeded, want step-limit error")
	}
	if len(p.CompleteCalls) != 2 {
		t.Fatalf("got %d LLM calls, want 2", len(p.CompleteCalls))
	}
	if len(p.CompleteCalls[1].Req.Tools) != 0 {
		t.Error("final round-trip still offered tools")
	}
}

func TestHandleTurn_CompletionError(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{Err: errors.New("upstream unavailable")}
	s := newTestSession(t, p, &calmock.Calendar{})

	if _, err := s.HandleTurn(context.Background(), "hello"); err == nil {
		t.Error("HandleTurn succeeded, want completion error")
	}
}

func TestHandleTurn_CancelledContext(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, &llmmock.Provider{}, &calmock.Calendar{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.HandleTurn(ctx, "hello"); !errors.Is(err, context.Canceled) {
		t.Errorf("HandleTurn = %v, want context.Canceled", err)
	}
}

func TestHandleTurn_HistoryAccumulates(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{Responses: []*llm.CompletionResponse{
		{Content: "First answer."},
	}}
	s := newTestSession(t, p, &calmock.Calendar{})
	ctx := context.Background()

	if _, err := s.HandleTurn(ctx, "first"); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if _, err := s.HandleTurn(ctx, "second"); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	// user, assistant, user: the second round-trip sees the full history.
	msgs := p.CompleteCalls[1].Req.Messages
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[1].Role != "assistant" || msgs[2].Content != "second" {
		t.Errorf("history = %+v", msgs)
	}
}

func TestSystemPrompt_Content(t *testing.T) {
	t.Parallel()
	tz, _ := time.LoadLocation("Europe/Paris")
	p := &llmmock.Provider{Responses: []*llm.CompletionResponse{{Content: "ok"}}}
	s, err := New(Config{
		LLM:      p,
		Booking:  testBooking(t, &calmock.Calendar{}),
		Timezone: tz,
		Language: notify.LanguageFrench,
		Now: func() time.Time {
			return time.Date(2026, time.September, 1, 10, 0, 0, 0, tz)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := s.HandleTurn(context.Background(), "bonjour"); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	prompt := p.CompleteCalls[0].Req.SystemPrompt
	for _, want := range []string{
		"Tuesday, September 1, 2026",
		"Europe/Paris",
		"French",
		"never invent a slot",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt does not mention %q", want)
		}
	}
}
