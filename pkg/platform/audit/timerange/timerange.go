// Package timerange resolves relative range tokens such as "7days" into a
// concrete window anchored at the time of the query.
package timerange

import (
	"strings"
	"time"
)

// Token is a symbolic relative range.
type Token string

const (
	Today      Token = "today"
	Last7Days  Token = "7days"
	Last30Days Token = "30days"
	Last90Days Token = "90days"

	// Default applies to empty and unrecognized tokens.
	Default = Last7Days
)

const day = 24 * time.Hour

var lookback = map[Token]time.Duration{
	Last7Days:  7 * day,
	Last30Days: 30 * day,
	Last90Days: 90 * day,
}

// Parse maps raw input to a known token. Unknown input yields Default and
// ok=false; it is never an error.
func Parse(raw string) (Token, bool) {
	tok := Token(strings.ToLower(strings.TrimSpace(raw)))
	if tok == Today {
		return Today, true
	}
	if _, known := lookback[tok]; known {
		return tok, true
	}
	return Default, false
}

// Resolve returns the inclusive [start, end] window for token at now.
// end is always now; start is never after end.
func Resolve(token string, now time.Time) (start, end time.Time) {
	end = now.UTC()
	tok, _ := Parse(token)
	if tok == Today {
		y, m, d := end.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), end
	}
	return end.Add(-lookback[tok]), end
}
