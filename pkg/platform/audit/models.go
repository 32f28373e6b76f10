package audit

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	dErrors "activitylog/pkg/domain-errors"
)

// Status is the outcome of an audited action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ParseStatus accepts either outcome in any case.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusSuccess:
		return StatusSuccess, true
	case StatusFailed:
		return StatusFailed, true
	}
	return "", false
}

// Action codes emitted by the account and domain management collaborators.
const (
	ActionUserSignup    = "USER_SIGNUP"
	ActionUserLogin     = "USER_LOGIN"
	ActionLoginFailed   = "LOGIN_FAILED"
	ActionDomainAdded   = "DOMAIN_ADDED"
	ActionDomainUpdated = "DOMAIN_UPDATED"
	ActionDomainDeleted = "DOMAIN_DELETED"
)

// Column limits carried over from the relational schema.
const (
	MaxDetailsLen       = 1000
	MaxSourceAddressLen = 500
)

// Event is one immutable record of an observed action and its outcome.
// ID and Timestamp are owned by the store: ID is assigned on append and
// Timestamp is filled in when the caller leaves it zero.
type Event struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ActorEmail    string    `json:"actorEmail"`
	ActorName     string    `json:"actorName"`
	ActorRole     string    `json:"actorRole"`
	Action        string    `json:"action"`
	Details       string    `json:"details"`
	Status        Status    `json:"status"`
	SourceAddress string    `json:"sourceAddress,omitempty"`
}

// Store is the append-only event log. There is deliberately no update or
// delete: retention is handled outside this service.
type Store interface {
	Append(ctx context.Context, event Event) (Event, error)
	All(ctx context.Context) ([]Event, error)
	FindBy(ctx context.Context, p Predicate) ([]Event, error)
}

// RecentLister is implemented by stores that can push a LIMIT down to the
// backend instead of materializing the whole log.
type RecentLister interface {
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// Prepare normalizes an event for persistence: status is lower-cased,
// free-text fields are clipped to their column limits, and the timestamp is
// stamped with now when zero. Timestamps are kept in UTC at microsecond
// precision so every backend round-trips the same value.
func Prepare(event Event, now time.Time) (Event, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	event.Timestamp = event.Timestamp.UTC().Truncate(time.Microsecond)
	if st, ok := ParseStatus(string(event.Status)); ok {
		event.Status = st
	}
	event.Details = clip(event.Details, MaxDetailsLen)
	event.SourceAddress = clip(event.SourceAddress, MaxSourceAddressLen)
	event.ID = 0

	if err := Validate(event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// Validate checks the non-empty and enum invariants of an event.
func Validate(event Event) error {
	switch {
	case strings.TrimSpace(event.ActorEmail) == "":
		return dErrors.New(dErrors.CodeValidation, "actor email is required")
	case strings.TrimSpace(event.ActorName) == "":
		return dErrors.New(dErrors.CodeValidation, "actor name is required")
	case strings.TrimSpace(event.ActorRole) == "":
		return dErrors.New(dErrors.CodeValidation, "actor role is required")
	case strings.TrimSpace(event.Action) == "":
		return dErrors.New(dErrors.CodeValidation, "action is required")
	}
	if event.Status != StatusSuccess && event.Status != StatusFailed {
		return dErrors.New(dErrors.CodeValidation, "status must be success or failed")
	}
	if utf8.RuneCountInString(event.Details) > MaxDetailsLen {
		return dErrors.New(dErrors.CodeValidation, "details exceed 1000 characters")
	}
	if utf8.RuneCountInString(event.SourceAddress) > MaxSourceAddressLen {
		return dErrors.New(dErrors.CodeValidation, "source address exceeds 500 characters")
	}
	return nil
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
