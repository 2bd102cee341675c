package capture

import (
	"fmt"
	"regexp"
	"strings"
)

// e164Pattern matches phone numbers in (loosely) E.164 shape: an optional
// leading plus, a non-zero first digit, and up to 15 digits total.
var e164Pattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// PhoneField returns the field specification for capturing a phone number.
//
// countryCode (e.g. "+33") is applied to numbers given in national format:
// a leading zero followed by exactly ten digits total is rewritten to the
// international form before validation.
func PhoneField(countryCode string) FieldSpec {
	return FieldSpec{
		Name:      "phone number",
		Prompt:    "Could you please tell me your phone number, so I can send you a confirmation message?",
		Normalize: phoneNormalizer(countryCode),
		Restate:   RestateDigits,
	}
}

// phoneNormalizer builds the normalization function for [PhoneField].
// The pipeline: repair spoken digit words, strip separators, rewrite national
// format to international using countryCode, validate against E.164.
func phoneNormalizer(countryCode string) func(string) (string, error) {
	return func(raw string) (string, error) {
		repaired := RepairSpokenDigits(raw)

		// Keep digits and plus signs wherever they appear; surrounding words
		// fall away and a plus that ends up anywhere but the front fails the
		// E.164 check below.
		var b strings.Builder
		for _, r := range repaired {
			if (r >= '0' && r <= '9') || r == '+' {
				b.WriteRune(r)
			}
		}
		number := b.String()

		if strings.HasPrefix(number, "0") && len(number) == 10 {
			number = countryCode + number[1:]
		}

		if !e164Pattern.MatchString(number) {
			return "", fmt.Errorf("%q is not a valid phone number", number)
		}
		return number, nil
	}
}

// RestateDigits renders a value character by character, separated by spaces,
// so a voice pipeline reads it back digit for digit.
func RestateDigits(value string) string {
	parts := make([]string, 0, len(value))
	for _, r := range value {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, " ")
}
