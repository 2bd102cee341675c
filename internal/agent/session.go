// Package agent wires the Frontdesk assistant together: one [Session] per
// caller, holding the conversation history, the capture tasks for the
// attendee's phone number and name, and the booking tool suite offered to the
// LLM.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/frontdesk/internal/booking"
	"github.com/MrWong99/frontdesk/internal/capture"
	"github.com/MrWong99/frontdesk/internal/notify"
	"github.com/MrWong99/frontdesk/internal/observe"
	"github.com/MrWong99/frontdesk/internal/tools"
	"github.com/MrWong99/frontdesk/internal/tools/frontdesk"
	"github.com/MrWong99/frontdesk/pkg/provider/llm"
)

// Defaults applied by [New] when the corresponding Config field is zero.
const (
	defaultMaxToolSteps = 4
	defaultTemperature  = 0.45
)

// Config holds all dependencies needed to create a [Session].
//
// Required fields are LLM, Booking, Timezone, and Language. CountryCode
// defaults to "+33"; Greeting defaults to a language-appropriate opening line.
type Config struct {
	// LLM produces the assistant's responses. Must not be nil.
	LLM llm.Provider

	// Booking drives slot listing and scheduling for this session. Must not
	// be nil.
	Booking *booking.Protocol

	// Timezone is the assistant's local timezone, used in the system prompt.
	// Must not be nil.
	Timezone *time.Location

	// Language is the language the assistant speaks.
	Language notify.Language

	// CountryCode is the international prefix applied to phone numbers given
	// in national format. Defaults to "+33".
	CountryCode string

	// Greeting overrides the spoken opening line.
	Greeting string

	// Metrics records session telemetry. Optional.
	Metrics *observe.Metrics

	// MaxToolSteps bounds the number of LLM round-trips per user turn.
	// Defaults to 4.
	MaxToolSteps int

	// Temperature is passed to the LLM. Defaults to 0.45.
	Temperature float64

	// Now overrides the clock used in the system prompt. Defaults to time.Now.
	Now func() time.Time
}

// Session is one caller's conversation with the assistant. Concurrent calls
// to [Session.HandleTurn] are serialised via an internal mutex to preserve
// conversational coherence.
type Session struct {
	llm          llm.Provider
	metrics      *observe.Metrics
	greeting     string
	maxToolSteps int
	temperature  float64

	toolset   []tools.Tool
	toolIndex map[string]func(ctx context.Context, args string) (string, error)

	mu       sync.Mutex
	messages []llm.Message
	system   string
	closed   bool
}

// New creates a Session with fresh capture tasks and an empty history.
//
// Errors are prefixed with "agent: ".
func New(cfg Config) (*Session, error) {
	if cfg.LLM == nil {
		return nil, errors.New("agent: LLM must not be nil")
	}
	if cfg.Booking == nil {
		return nil, errors.New("agent: Booking must not be nil")
	}
	if cfg.Timezone == nil {
		return nil, errors.New("agent: Timezone must not be nil")
	}
	if !cfg.Language.IsValid() {
		return nil, fmt.Errorf("agent: unsupported language %q", cfg.Language)
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "+33"
	}
	if cfg.MaxToolSteps <= 0 {
		cfg.MaxToolSteps = defaultMaxToolSteps
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Greeting == "" {
		cfg.Greeting = defaultGreeting(cfg.Language)
	}

	toolset := frontdesk.Tools(frontdesk.Deps{
		Booking: cfg.Booking,
		Phone:   capture.NewTask(capture.PhoneField(cfg.CountryCode)),
		Name:    capture.NewTask(capture.NameField()),
		Metrics: cfg.Metrics,
	})
	index := make(map[string]func(context.Context, string) (string, error), len(toolset))
	for _, t := range toolset {
		index[t.Definition.Name] = t.Handler
	}

	s := &Session{
		llm:          cfg.LLM,
		metrics:      cfg.Metrics,
		greeting:     cfg.Greeting,
		maxToolSteps: cfg.MaxToolSteps,
		temperature:  cfg.Temperature,
		toolset:      toolset,
		toolIndex:    index,
		system:       systemPrompt(cfg),
	}
	if cfg.Metrics != nil {
		cfg.Metrics.ActiveSessions.Add(context.Background(), 1)
	}
	return s, nil
}

// Greeting returns the spoken opening line for this session.
func (s *Session) Greeting() string { return s.greeting }

// Tools returns the tool suite bound to this session's state.
func (s *Session) Tools() []tools.Tool { return s.toolset }

// Close releases the session's telemetry slot. Safe to call once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(context.Background(), -1)
	}
}

// HandleTurn processes one user utterance and returns the assistant's spoken
// reply.
//
// A fresh turn identity is allocated and attached to the context so every
// tool call triggered while answering this utterance shares it. Tool errors
// are fed back to the LLM as tool results rather than aborting the turn; the
// final LLM round-trip is made without tools so the turn always ends in a
// speakable sentence.
func (s *Session) HandleTurn(ctx context.Context, userText string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("agent: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = capture.ContextWithTurn(ctx, capture.NextTurn())

	s.messages = append(s.messages, llm.Message{Role: "user", Content: userText})

	defs := make([]llm.ToolDefinition, 0, len(s.toolset))
	for _, t := range s.toolset {
		defs = append(defs, t.Definition)
	}

	for step := 0; step < s.maxToolSteps; step++ {
		req := llm.CompletionRequest{
			SystemPrompt: s.system,
			Messages:     s.messages,
			Temperature:  s.temperature,
		}
		// The last permitted round-trip goes out without tools so the model
		// must produce a final answer.
		if step < s.maxToolSteps-1 {
			req.Tools = defs
		}

		start := time.Now()
		resp, err := s.llm.Complete(ctx, req)
		if s.metrics != nil {
			s.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds(),
				metric.WithAttributes(observe.Attr("step", fmt.Sprintf("%d", step))))
		}
		if err != nil {
			return "", fmt.Errorf("agent: completion failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			s.messages = append(s.messages, llm.Message{Role: "assistant", Content: resp.Content})
			return resp.Content, nil
		}

		s.messages = append(s.messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			s.messages = append(s.messages, llm.Message{
				Role:       "tool",
				Content:    s.executeTool(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}

	return "", errors.New("agent: turn exceeded the tool step limit without a final answer")
}

// executeTool runs one tool call and renders its outcome as the tool message
// content. Errors become "error: ..." strings so the LLM can adjust course.
func (s *Session) executeTool(ctx context.Context, call llm.ToolCall) string {
	handler, ok := s.toolIndex[call.Name]
	if !ok {
		return fmt.Sprintf("error: unknown tool %q", call.Name)
	}
	result, err := handler(ctx, call.Arguments)
	if err != nil {
		return "error: " + err.Error()
	}
	return result
}

// defaultGreeting returns the opening line spoken when a session starts.
func defaultGreeting(lang notify.Language) string {
	switch lang {
	case notify.LanguageFrench:
		return "Bonjour ! Je suis l'assistante de prise de rendez-vous. Comment puis-je vous aider ?"
	case notify.LanguageEnglish:
		return "Hello! I am the appointment booking assistant. How can I help you today?"
	default:
		return "Hallo! Ich bin die Terminassistentin. Wie kann ich Ihnen helfen?"
	}
}

// languageName maps a language code to the English name used in the prompt.
func languageName(lang notify.Language) string {
	switch lang {
	case notify.LanguageFrench:
		return "French"
	case notify.LanguageEnglish:
		return "English"
	default:
		return "German"
	}
}

// systemPrompt renders the assistant's standing instructions.
func systemPrompt(cfg Config) string {
	now := cfg.Now().In(cfg.Timezone)
	return strings.Join([]string{
		"You are a friendly front-desk assistant whose only job is to book appointments.",
		fmt.Sprintf("Today is %s. The office timezone is %s. You speak %s with the caller.",
			now.Format("Monday, January 2, 2006"), cfg.Timezone.String(), languageName(cfg.Language)),
		"Offer slots by calling list_available_slots and read the options to the caller; never invent a slot or a slot identifier.",
		"Before booking, collect the caller's full name and phone number through the request/update/confirm tools.",
		"Repeat every captured value back and wait for the caller to confirm it in a later message before calling the confirm tool.",
		"When a tool returns an error, follow the guidance in the error text instead of retrying blindly.",
		"Once the name is confirmed and the phone number is confirmed or declined, book the chosen slot with schedule_appointment and read its confirmation message verbatim.",
		"Keep responses short and natural, as they will be spoken aloud. Never mention tools or internal identifiers unless the caller needs them.",
	}, "\n")
}
