package audit

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Field names an event column that predicates can match on.
type Field string

const (
	FieldActorEmail    Field = "actor_email"
	FieldActorName     Field = "actor_name"
	FieldActorRole     Field = "actor_role"
	FieldAction        Field = "action"
	FieldDetails       Field = "details"
	FieldStatus        Field = "status"
	FieldSourceAddress Field = "source_address"
)

// SearchFields are the columns free-text search looks at.
var SearchFields = []Field{FieldActorEmail, FieldActorName, FieldAction, FieldDetails}

func (f Field) value(e Event) string {
	switch f {
	case FieldActorEmail:
		return e.ActorEmail
	case FieldActorName:
		return e.ActorName
	case FieldActorRole:
		return e.ActorRole
	case FieldAction:
		return e.Action
	case FieldDetails:
		return e.Details
	case FieldStatus:
		return string(e.Status)
	case FieldSourceAddress:
		return e.SourceAddress
	}
	return ""
}

// Predicate is a boolean condition over event fields. Predicates built from
// the combinators in this file can be compiled to SQL; Func predicates are
// evaluated in memory after the backend narrows the candidate set.
type Predicate interface {
	Match(e Event) bool
}

type truePredicate struct{}

func (truePredicate) Match(Event) bool { return true }

// True matches every event.
func True() Predicate { return truePredicate{} }

type eqPredicate struct {
	field Field
	value string
}

func (p eqPredicate) Match(e Event) bool { return p.field.value(e) == p.value }

// Eq matches events whose field equals value exactly.
func Eq(field Field, value string) Predicate { return eqPredicate{field: field, value: value} }

type containsFoldPredicate struct {
	field Field
	term  string // lower-cased
}

func (p containsFoldPredicate) Match(e Event) bool {
	return strings.Contains(strings.ToLower(p.field.value(e)), p.term)
}

// ContainsFold matches events whose field contains term, ignoring case.
func ContainsFold(field Field, term string) Predicate {
	return containsFoldPredicate{field: field, term: strings.ToLower(term)}
}

type betweenPredicate struct {
	start, end time.Time
}

func (p betweenPredicate) Match(e Event) bool {
	return !e.Timestamp.Before(p.start) && !e.Timestamp.After(p.end)
}

// Between matches events with start <= timestamp <= end.
func Between(start, end time.Time) Predicate {
	return betweenPredicate{start: start.UTC(), end: end.UTC()}
}

type andPredicate []Predicate

func (p andPredicate) Match(e Event) bool {
	for _, sub := range p {
		if !sub.Match(e) {
			return false
		}
	}
	return true
}

// And matches when every operand matches. True operands are dropped and an
// empty conjunction is True.
func And(ps ...Predicate) Predicate {
	out := make(andPredicate, 0, len(ps))
	for _, p := range ps {
		if p == nil {
			continue
		}
		if _, ok := p.(truePredicate); ok {
			continue
		}
		out = append(out, p)
	}
	switch len(out) {
	case 0:
		return True()
	case 1:
		return out[0]
	}
	return out
}

type orPredicate []Predicate

func (p orPredicate) Match(e Event) bool {
	for _, sub := range p {
		if sub.Match(e) {
			return true
		}
	}
	return false
}

// Or matches when any operand matches. A True operand makes the whole
// disjunction True.
func Or(ps ...Predicate) Predicate {
	out := make(orPredicate, 0, len(ps))
	for _, p := range ps {
		if p == nil {
			continue
		}
		if _, ok := p.(truePredicate); ok {
			return True()
		}
		out = append(out, p)
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

type funcPredicate func(Event) bool

func (f funcPredicate) Match(e Event) bool { return f(e) }

// Func wraps an arbitrary in-memory condition.
func Func(fn func(Event) bool) Predicate { return funcPredicate(fn) }

// TimeBounds returns the narrowest [start, end] window implied by p, so
// stores with a time index can scan only that range. ok is false when p does
// not constrain time on every path.
func TimeBounds(p Predicate) (start, end time.Time, ok bool) {
	switch v := p.(type) {
	case betweenPredicate:
		return v.start, v.end, true
	case andPredicate:
		for _, sub := range v {
			s, e, found := TimeBounds(sub)
			if !found {
				continue
			}
			if !ok {
				start, end, ok = s, e, true
				continue
			}
			if s.After(start) {
				start = s
			}
			if e.Before(end) {
				end = e
			}
		}
		return start, end, ok
	}
	return time.Time{}, time.Time{}, false
}

// -----------------------------------------------------------------------------
// SQL compilation
// -----------------------------------------------------------------------------

// Dialect describes how a SQL backend spells the pieces a predicate needs.
type Dialect struct {
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// ContainsFold renders a case-insensitive substring test of column
	// against a bind parameter lower-cased with strings.ToLower. The column
	// must be folded with the same Unicode rules or non-ASCII rows are missed.
	ContainsFold func(column, param string) string
	// TimeColumn is the column holding the event timestamp.
	TimeColumn string
	// TimeArg converts a timestamp into the bind value for TimeColumn.
	TimeArg func(time.Time) any
}

// SQL is a compiled WHERE clause. When Exact is false the clause is a
// superset filter and rows must be re-checked with Predicate.Match.
type SQL struct {
	Where string
	Args  []any
	Exact bool
}

// CompileSQL renders p as a parameterized WHERE clause. Parameters are
// numbered starting after offset existing parameters.
func CompileSQL(p Predicate, d Dialect, offset int) SQL {
	c := &compiler{d: d, n: offset, exact: true}
	where := c.compile(p)
	return SQL{Where: where, Args: c.args, Exact: c.exact}
}

type compiler struct {
	d     Dialect
	n     int
	args  []any
	exact bool
}

func (c *compiler) bind(v any) string {
	c.n++
	c.args = append(c.args, v)
	return c.d.Placeholder(c.n)
}

func (c *compiler) compile(p Predicate) string {
	switch v := p.(type) {
	case nil, truePredicate:
		return "1=1"
	case eqPredicate:
		return fmt.Sprintf("%s = %s", v.field, c.bind(v.value))
	case containsFoldPredicate:
		return c.d.ContainsFold(string(v.field), c.bind(v.term))
	case betweenPredicate:
		lo := c.bind(c.d.TimeArg(v.start))
		hi := c.bind(c.d.TimeArg(v.end))
		return fmt.Sprintf("%s BETWEEN %s AND %s", c.d.TimeColumn, lo, hi)
	case andPredicate:
		return c.join(v, " AND ")
	case orPredicate:
		return c.join(v, " OR ")
	default:
		// Opaque predicates cannot be pushed down. Every combinator here is
		// monotone, so widening to TRUE keeps the clause a superset.
		c.exact = false
		return "1=1"
	}
}

func (c *compiler) join(ps []Predicate, sep string) string {
	if len(ps) == 0 {
		if sep == " OR " {
			return "1=0"
		}
		return "1=1"
	}
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		parts = append(parts, "("+c.compile(p)+")")
	}
	return strings.Join(parts, sep)
}

// -----------------------------------------------------------------------------
// Ordering
// -----------------------------------------------------------------------------

// NewestFirst orders events by timestamp descending, breaking ties by the
// most recently assigned id.
func NewestFirst(a, b Event) int {
	if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// SortNewestFirst sorts events in place with NewestFirst.
func SortNewestFirst(events []Event) {
	slices.SortStableFunc(events, NewestFirst)
}

// Filter returns the events matching p, preserving order.
func Filter(events []Event, p Predicate) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if p.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
