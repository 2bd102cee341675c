// Package mock provides a test double for the notify.Sender interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/frontdesk/internal/notify"
)

// SendCall records a single invocation of SendConfirmation.
type SendCall struct {
	PhoneNumber string
	Details     string
	Language    notify.Language
}

// Sender is a mock implementation of notify.Sender.
// Result controls the boolean returned from every send; calls are recorded
// in order for later inspection.
type Sender struct {
	mu sync.Mutex

	// Result is returned from every SendConfirmation call.
	Result bool

	// Calls records every SendConfirmation invocation in order.
	Calls []SendCall
}

// SendConfirmation records the call and returns Result.
func (s *Sender) SendConfirmation(_ context.Context, phoneNumber, details string, lang notify.Language) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, SendCall{PhoneNumber: phoneNumber, Details: details, Language: lang})
	return s.Result
}
