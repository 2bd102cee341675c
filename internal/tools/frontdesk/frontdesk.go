// Package frontdesk provides the built-in appointment-booking tool suite: the
// slot listing and scheduling operations plus the field-capture operations for
// the attendee's phone number and name.
//
// Tool errors that the conversation can recover from (an unknown slot, a
// validation failure, an ambiguous confirmation) are returned as descriptive
// errors so the session can relay the guidance and keep going. Every handler
// requires a turn identity in its context; the session and the MCP server
// each allocate one per incoming user turn.
package frontdesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/frontdesk/internal/booking"
	"github.com/MrWong99/frontdesk/internal/calendar"
	"github.com/MrWong99/frontdesk/internal/capture"
	"github.com/MrWong99/frontdesk/internal/observe"
	"github.com/MrWong99/frontdesk/internal/tools"
	"github.com/MrWong99/frontdesk/pkg/provider/llm"
)

// Deps carries the session state the tool handlers operate on.
type Deps struct {
	// Booking drives slot listing and scheduling. Required.
	Booking *booking.Protocol

	// Phone is the phone-number capture task for this session. Required.
	Phone *capture.Task

	// Name is the full-name capture task for this session. Required.
	Name *capture.Task

	// Metrics records tool telemetry. Optional; nil disables recording.
	Metrics *observe.Metrics
}

// listSlotsArgs is the JSON-decoded input for the "list_available_slots" tool.
type listSlotsArgs struct {
	// Range selects the listing horizon: default, +2week, +1month, +3month.
	Range string `json:"range"`
}

// scheduleArgs is the JSON-decoded input for the "schedule_appointment" tool.
type scheduleArgs struct {
	SlotID        string `json:"slot_id"`
	AttendeeName  string `json:"attendee_name"`
	AttendeeEmail string `json:"attendee_email"`
	AttendeePhone string `json:"attendee_phone"`
}

// valueArgs is the JSON-decoded input for the field update tools.
type valueArgs struct {
	Value string `json:"value"`
}

// reasonArgs is the JSON-decoded input for the field decline tools.
type reasonArgs struct {
	Reason string `json:"reason"`
}

// messageResult is the JSON-encoded output shared by all tools in this
// package: a single message for the assistant to act on.
type messageResult struct {
	Message string `json:"message"`
}

func encodeMessage(msg string) (string, error) {
	res, err := json.Marshal(messageResult{Message: msg})
	if err != nil {
		return "", fmt.Errorf("frontdesk: failed to encode result: %w", err)
	}
	return string(res), nil
}

// turnFrom extracts the mandatory turn identity from ctx.
func turnFrom(ctx context.Context) (capture.TurnID, error) {
	turn, ok := capture.TurnFromContext(ctx)
	if !ok {
		return "", errors.New("frontdesk: no turn identity in context")
	}
	return turn, nil
}

// Tools returns the full appointment-booking tool suite bound to d.
func Tools(d Deps) []tools.Tool {
	ts := []tools.Tool{
		{
			Definition: llm.ToolDefinition{
				Name:        "list_available_slots",
				Description: "List available appointment slots over a time range. Returns one line per slot with its identifier, local date and time, and a relative description. Call again with a wider range if the user wants later dates.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"range": map[string]any{
							"type":        "string",
							"enum":        []string{"default", "+2week", "+1month", "+3month"},
							"description": "Listing horizon. 'default' and '+2week' cover the next two weeks, '+1month' thirty days, '+3month' ninety days.",
						},
					},
					"required": []string{"range"},
				},
			},
			Handler: d.listSlotsHandler,
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "schedule_appointment",
				Description: "Book the slot the user picked. Use a slot identifier from a previous list_available_slots result, never an invented one. Returns the exact confirmation sentence to say to the user.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"slot_id": map[string]any{
							"type":        "string",
							"description": "Identifier of the chosen slot, exactly as returned by list_available_slots.",
						},
						"attendee_name": map[string]any{
							"type":        "string",
							"description": "The user's confirmed full name.",
						},
						"attendee_email": map[string]any{
							"type":        "string",
							"description": "The user's email address, if provided. May be empty.",
						},
						"attendee_phone": map[string]any{
							"type":        "string",
							"description": "The user's confirmed phone number in international format. May be empty when the user declined.",
						},
					},
					"required": []string{"slot_id", "attendee_name"},
				},
			},
			Handler: d.scheduleHandler,
		},
	}
	ts = append(ts, d.captureTools("phone_number", "phone number", d.Phone)...)
	ts = append(ts, d.captureTools("user_name", "full name", d.Name)...)

	if d.Metrics != nil {
		for i := range ts {
			ts[i].Handler = instrumented(d.Metrics, ts[i].Definition.Name, ts[i].Handler)
		}
	}
	return ts
}

// instrumented wraps a handler with tool-call counting and latency recording.
func instrumented(m *observe.Metrics, name string, h func(context.Context, string) (string, error)) func(context.Context, string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		start := time.Now()
		res, err := h(ctx, args)
		m.ToolExecutionDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(observe.Attr("tool", name)))
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.RecordToolCall(ctx, name, status)
		return res, err
	}
}

func (d Deps) listSlotsHandler(ctx context.Context, args string) (string, error) {
	var a listSlotsArgs
	if err := json.Unmarshal([]byte(args), &a); err != nil {
		return "", fmt.Errorf("frontdesk: failed to parse arguments: %w", err)
	}

	listing, err := d.Booking.ListSlots(ctx, booking.RangeSelector(a.Range))
	if err != nil {
		return "", errors.New("frontdesk: listing failed due to a technical problem; apologise and offer to try again")
	}
	return encodeMessage(listing)
}

func (d Deps) scheduleHandler(ctx context.Context, args string) (string, error) {
	var a scheduleArgs
	if err := json.Unmarshal([]byte(args), &a); err != nil {
		return "", fmt.Errorf("frontdesk: failed to parse arguments: %w", err)
	}
	if a.SlotID == "" || a.AttendeeName == "" {
		return "", errors.New("frontdesk: slot_id and attendee_name are required")
	}

	msg, err := d.Booking.BookSlot(ctx, a.SlotID, a.AttendeeName, a.AttendeeEmail, a.AttendeePhone)
	if err != nil {
		d.recordBookingStatus(ctx, err)
		switch {
		case errors.Is(err, booking.ErrUnknownSlot):
			return "", errors.New("frontdesk: that slot identifier is not recognised; call list_available_slots again and let the user pick from the fresh listing")
		case errors.Is(err, calendar.ErrSlotUnavailable):
			return "", errors.New("frontdesk: this slot is not available anymore; apologise and offer to list slots again")
		case errors.Is(err, booking.ErrBookingInFlight):
			return "", errors.New("frontdesk: a booking is already being processed; ask the user to wait a moment")
		default:
			return "", errors.New("frontdesk: booking failed due to a technical problem; apologise and offer to try again later")
		}
	}
	d.recordBookingStatus(ctx, nil)
	return encodeMessage(msg)
}

func (d Deps) recordBookingStatus(ctx context.Context, err error) {
	if d.Metrics == nil {
		return
	}
	status := "booked"
	switch {
	case errors.Is(err, booking.ErrUnknownSlot):
		status = "unknown_slot"
	case errors.Is(err, calendar.ErrSlotUnavailable):
		status = "slot_unavailable"
	case errors.Is(err, booking.ErrBookingInFlight):
		status = "in_flight"
	case err != nil:
		status = "provider_error"
	}
	d.Metrics.RecordBookingAttempt(ctx, status)
}

// captureTools builds the request/update/confirm/decline tool quartet for one
// capture task. suffix becomes part of the tool names (request_phone_number,
// update_user_name, ...); field is the human-readable field name used in tool
// descriptions.
func (d Deps) captureTools(suffix, field string, task *capture.Task) []tools.Tool {
	return []tools.Tool{
		{
			Definition: llm.ToolDefinition{
				Name:        "request_" + suffix,
				Description: fmt.Sprintf("Start asking the user for their %s. Returns the question to ask. Call once, before any update or confirm.", field),
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
			Handler: func(ctx context.Context, _ string) (string, error) {
				return encodeMessage(task.Start())
			},
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "update_" + suffix,
				Description: fmt.Sprintf("Record the %s the user just said, exactly as transcribed. Returns how to repeat it back; then ask the user to confirm. Call again whenever the user corrects the value.", field),
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"value": map[string]any{
							"type":        "string",
							"description": fmt.Sprintf("The %s as the user said it. Never invent or complete missing parts.", field),
						},
					},
					"required": []string{"value"},
				},
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				turn, err := turnFrom(ctx)
				if err != nil {
					return "", err
				}
				var a valueArgs
				if err := json.Unmarshal([]byte(args), &a); err != nil {
					return "", fmt.Errorf("frontdesk: failed to parse arguments: %w", err)
				}
				res, err := task.UpdateValue(turn, a.Value)
				if err != nil {
					if errors.Is(err, capture.ErrValidation) {
						return "", fmt.Errorf("frontdesk: that does not look like a valid %s; ask the user to repeat it", field)
					}
					return "", err
				}
				return encodeMessage(fmt.Sprintf("Repeat the %s back to the user as %q and ask whether it is correct.", field, res.Restatement))
			},
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "confirm_" + suffix,
				Description: fmt.Sprintf("Mark the %s as confirmed. Call only after the user explicitly agreed, in a separate message, that the repeated value is correct.", field),
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
			Handler: func(ctx context.Context, _ string) (string, error) {
				turn, err := turnFrom(ctx)
				if err != nil {
					return "", err
				}
				res, err := task.ConfirmValue(turn)
				if err != nil {
					switch {
					case errors.Is(err, capture.ErrAmbiguousConfirmation):
						return "", fmt.Errorf("frontdesk: the %s was provided in this same message; repeat it back first and wait for the user to confirm in their next message", field)
					case errors.Is(err, capture.ErrEmptyValue):
						return "", fmt.Errorf("frontdesk: no %s has been recorded yet; call update_%s first", field, suffix)
					}
					return "", err
				}
				return encodeMessage(fmt.Sprintf("The %s %q is confirmed.", field, res.Value))
			},
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "decline_" + suffix,
				Description: fmt.Sprintf("Record that the user refuses to provide their %s. Do not ask again afterwards.", field),
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"reason": map[string]any{
							"type":        "string",
							"description": "Short description of why the user declined.",
						},
					},
				},
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				var a reasonArgs
				if err := json.Unmarshal([]byte(args), &a); err != nil {
					return "", fmt.Errorf("frontdesk: failed to parse arguments: %w", err)
				}
				if err := task.Decline(a.Reason); err != nil {
					return "", err
				}
				return encodeMessage(fmt.Sprintf("Noted, the user will not provide their %s. Continue without it.", field))
			},
		},
	}
}
