package auth

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/apperr"
)

// forbiddenUsernameChars are structurally disallowed in a username
// (spec.md §4.1 Register validation precondition).
const forbiddenUsernameChars = `/()"<>\{}`

// ValidateUsername checks the Register precondition: non-empty, at most
// 256 graphemes (approximated here by rune count, as the stdlib has no
// grapheme-cluster segmentation), containing none of the forbidden chars.
func ValidateUsername(username string) error {
	if username == "" {
		return apperr.ValidationErr(map[string]string{"username": "must not be empty"})
	}
	if utf8.RuneCountInString(username) > 256 {
		return apperr.ValidationErr(map[string]string{"username": "must be at most 256 characters"})
	}
	if strings.ContainsAny(username, forbiddenUsernameChars) {
		return apperr.ValidationErr(map[string]string{"username": "contains a disallowed character"})
	}
	return nil
}

// ValidateEmail performs an RFC-5322-ish structural check only — this is
// C10 (input validation), never business logic; existence checks happen
// in the auth state machine.
func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.ValidationErr(map[string]string{"email": "invalid email format"})
	}
	return nil
}
