package dto

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dicri/evidence-service/internal/domain"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

var (
	upperCodePattern = regexp.MustCompile(`^[A-Z0-9-]+$`)
	usernamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// passwordSpecials are the symbols accepted by the password complexity rule.
const passwordSpecials = "@$!%*?&"

// fieldErrors collects per-field validation messages.
type fieldErrors map[string]string

func (f fieldErrors) add(field, format string, args ...any) {
	if _, exists := f[field]; !exists {
		f[field] = fmt.Sprintf(format, args...)
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	details := make(map[string]any, len(f))
	for field, msg := range f {
		details[field] = msg
	}
	return apperrors.NewValidationError("request validation failed", map[string]any{"fields": details})
}

func (f fieldErrors) length(field, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	if min > 0 && n < min {
		f.add(field, "must be at least %d characters", min)
	}
	if max > 0 && n > max {
		f.add(field, "must be at most %d characters", max)
	}
}

func (f fieldErrors) required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		f.add(field, "is required")
		return false
	}
	return true
}

func (f fieldErrors) pattern(field, value string, re *regexp.Regexp, hint string) {
	if !re.MatchString(value) {
		f.add(field, "may only contain %s", hint)
	}
}

func (f fieldErrors) email(field, value string) {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		f.add(field, "must be a valid email address")
	}
}

func (f fieldErrors) role(field string, value domain.Role) {
	if !value.Valid() {
		f.add(field, "must be ADMIN, TECNICO or COORDINADOR")
	}
}

// strongPassword requires a lowercase and an uppercase letter, a digit and one of passwordSpecials.
func (f fieldErrors) strongPassword(field, value string) {
	var lower, upper, digit, special bool
	for _, r := range value {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		f.add(field, "must contain an uppercase letter, a lowercase letter, a digit and one of %s", passwordSpecials)
	}
}
