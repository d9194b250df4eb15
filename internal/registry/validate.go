package registry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidURL rejects anything that is not an absolute http/https URL.
	ErrInvalidURL = errors.New("url must be an absolute http or https address")

	// ErrCodeFormat rejects malformed custom shortcodes.
	ErrCodeFormat = errors.New("shortcode must be 3-20 alphanumeric characters")

	// ErrCodeTaken signals the requested shortcode is already stored,
	// expired records included. Expired codes are freed by Delete only.
	ErrCodeTaken = errors.New("shortcode is already in use")

	// ErrValidityRange rejects validity periods outside 1..525600 minutes.
	ErrValidityRange = errors.New("validity must be between 1 minute and one year")

	// ErrNotFound signals the shortcode has no resolvable record.
	ErrNotFound = errors.New("shortcode not found")

	// ErrCodeExpired is returned when a record exists but its validity
	// period has elapsed. It matches ErrNotFound under errors.Is, so
	// callers that only care about resolvability treat both alike.
	ErrCodeExpired = fmt.Errorf("%w: validity period elapsed", ErrNotFound)
)

// MaxValidityMinutes caps the validity period at one year.
const MaxValidityMinutes = 525600

// ValidateURL checks that raw, ignoring surrounding whitespace, parses as
// an absolute URL with an http or https scheme.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrInvalidURL
	}

	if u.Host == "" {
		return ErrInvalidURL
	}

	return nil
}

// ValidateValidity checks that minutes is a positive duration of at most
// one year.
func ValidateValidity(minutes int) error {
	if minutes < 1 || minutes > MaxValidityMinutes {
		return ErrValidityRange
	}

	return nil
}

// validCodeFormat reports whether code is 3-20 strictly alphanumeric
// characters. Shortcodes are ASCII by construction, so byte length is
// rune length for every accepted value.
func validCodeFormat(code string) bool {
	if len(code) < 3 || len(code) > 20 {
		return false
	}

	for i := 0; i < len(code); i++ {
		ch := code[i]

		switch {
		case ch >= '0' && ch <= '9':
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		default:
			return false
		}
	}

	return true
}
