// Package email derives display values from email addresses.
package email

import (
	"strings"
	"unicode"
)

// UnknownName is used when an address has no usable local part.
const UnknownName = "Unknown"

// DisplayName builds an actor name from the local part of an address:
// "jane.doe@example.com" becomes "Jane Doe" and "ops@example.com" becomes
// "Ops". Middle parts are dropped.
func DisplayName(address string) string {
	localPart := strings.TrimSpace(address)
	if at := strings.IndexByte(localPart, '@'); at >= 0 {
		localPart = localPart[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	switch len(parts) {
	case 0:
		return UnknownName
	case 1:
		return capitalize(parts[0])
	}
	return capitalize(parts[0]) + " " + capitalize(parts[len(parts)-1])
}

func capitalize(s string) string {
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
