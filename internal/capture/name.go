package capture

import (
	"errors"
	"strings"
)

// NameField returns the field specification for capturing the user's full
// name. Normalization only trims surrounding whitespace; names carry no
// further structure worth rejecting.
func NameField() FieldSpec {
	return FieldSpec{
		Name:   "full name",
		Prompt: "Could you please tell me your first and last name, so I can put the appointment in your name?",
		Normalize: func(raw string) (string, error) {
			name := strings.TrimSpace(raw)
			if name == "" {
				return "", errors.New("name must not be empty")
			}
			return name, nil
		},
		Restate: func(value string) string {
			return value
		},
	}
}
