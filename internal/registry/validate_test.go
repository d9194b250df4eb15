package registry

import (
	"errors"
	"testing"
)

func TestValidateURL(t *testing.T) {
	valid := []struct {
		name  string
		input string
	}{
		{name: "plain https", input: "https://example.com"},
		{name: "plain http", input: "http://example.com"},
		{name: "uppercase scheme", input: "HTTPS://example.com/path"},
		{name: "path and query", input: "https://example.com/a/b?x=1&y=2"},
		{name: "port", input: "http://example.com:8080/"},
		{name: "surrounding whitespace", input: "  https://example.com  "},
	}

	for _, tt := range valid {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateURL(tt.input); err != nil {
				t.Errorf("ValidateURL(%q) = %v, want nil", tt.input, err)
			}
		})
	}

	invalid := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace only", input: "   "},
		{name: "ftp scheme", input: "ftp://example.com"},
		{name: "javascript scheme", input: "javascript:alert(1)"},
		{name: "missing scheme", input: "example.com/path"},
		{name: "missing host", input: "https://"},
		{name: "garbage", input: "://nope"},
		{name: "bare word", input: "not a url"},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateURL(tt.input); !errors.Is(err, ErrInvalidURL) {
				t.Errorf("ValidateURL(%q) = %v, want ErrInvalidURL", tt.input, err)
			}
		})
	}
}

func TestValidateValidity(t *testing.T) {
	for _, minutes := range []int{1, 30, 1440, MaxValidityMinutes} {
		if err := ValidateValidity(minutes); err != nil {
			t.Errorf("ValidateValidity(%d) = %v, want nil", minutes, err)
		}
	}

	for _, minutes := range []int{0, -1, -30, MaxValidityMinutes + 1} {
		if err := ValidateValidity(minutes); !errors.Is(err, ErrValidityRange) {
			t.Errorf("ValidateValidity(%d) = %v, want ErrValidityRange", minutes, err)
		}
	}
}

func TestValidCodeFormat(t *testing.T) {
	valid := []string{"abc", "ABC", "123", "abc123", "a1B2c3", "aaaaaaaaaaaaaaaaaaaa"}
	for _, code := range valid {
		if !validCodeFormat(code) {
			t.Errorf("validCodeFormat(%q) = false, want true", code)
		}
	}

	invalid := []string{
		"",
		"ab",                    // too short
		"aaaaaaaaaaaaaaaaaaaaa", // 21 chars
		"has space",
		"with-dash",
		"under_score",
		"émoji",
		"tab\tcode",
	}
	for _, code := range invalid {
		if validCodeFormat(code) {
			t.Errorf("validCodeFormat(%q) = true, want false", code)
		}
	}
}

func TestErrCodeExpiredMatchesNotFound(t *testing.T) {
	if !errors.Is(ErrCodeExpired, ErrNotFound) {
		t.Error("ErrCodeExpired should match ErrNotFound")
	}
}
