// Package email derives human-readable defaults from email addresses.
package email

import (
	"strings"
	"unicode"
)

// DeriveDisplayName builds a display name from the local part of an email
// address: "asha.kumar@example.com" becomes "Asha Kumar". It is a fallback
// for registrations that omit a full name; the user can correct it later.
func DeriveDisplayName(email string) string {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+' || unicode.IsDigit(r)
	})
	if len(parts) == 0 {
		return "User"
	}

	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
