package mpesa

import (
	"fmt"
	"regexp"
	"strings"
)

var subscriberPattern = regexp.MustCompile(`^[17]\d{8}$`)

// NormalizePhone rewrites a phone number to the canonical international
// format expected by the gateway: <country code><9-digit subscriber number>.
// Accepted inputs: "+254712345678", "254712345678", "0712345678", "712345678"
// (and the 1xx prefix equivalents). Anything that does not match after
// normalization is rejected.
func NormalizePhone(raw, countryCode string) (string, error) {
	phone := strings.TrimSpace(raw)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.TrimPrefix(phone, "+")

	switch {
	case strings.HasPrefix(phone, countryCode):
		phone = strings.TrimPrefix(phone, countryCode)
	case strings.HasPrefix(phone, "0"):
		phone = phone[1:]
	}

	if !subscriberPattern.MatchString(phone) {
		return "", fmt.Errorf("invalid phone number: %q", raw)
	}

	return countryCode + phone, nil
}
