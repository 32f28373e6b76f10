package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	audit "activitylog/pkg/platform/audit"
	txcontext "activitylog/pkg/platform/tx"
)

// Schema creates the activity log table and its indexes. The timestamp index
// backs every range query; the others serve the single-field lookups.
const Schema = `
CREATE TABLE IF NOT EXISTS user_activity_logs (
	id             BIGSERIAL PRIMARY KEY,
	timestamp      TIMESTAMPTZ  NOT NULL,
	actor_email    TEXT         NOT NULL,
	actor_name     TEXT         NOT NULL,
	actor_role     TEXT         NOT NULL,
	action         TEXT         NOT NULL,
	details        VARCHAR(1000) NOT NULL DEFAULT '',
	status         TEXT         NOT NULL CHECK (status IN ('success', 'failed')),
	source_address VARCHAR(500) NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_activity_logs_timestamp ON user_activity_logs (timestamp DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_activity_logs_actor_email ON user_activity_logs (actor_email);
CREATE INDEX IF NOT EXISTS idx_activity_logs_action ON user_activity_logs (action);
CREATE INDEX IF NOT EXISTS idx_activity_logs_status ON user_activity_logs (status);
`

const selectColumns = `id, timestamp, actor_email, actor_name, actor_role, action, details, status, source_address`

var dialect = audit.Dialect{
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	ContainsFold: func(column, param string) string {
		return fmt.Sprintf("strpos(lower(%s), %s) > 0", column, param)
	},
	TimeColumn: "timestamp",
	TimeArg:    func(t time.Time) any { return t },
}

// Store implements audit.Store on PostgreSQL. Ids come from a BIGSERIAL
// sequence, which hands out unique increasing values to concurrent writers.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a PostgreSQL event store.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// EnsureSchema creates the table when missing. Case-insensitive search relies
// on lower(), which folds non-ASCII letters only when the database collation
// is not C/POSIX; create the database with a UTF-8 locale such as en_US.UTF-8.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create activity log schema: %w", err)
	}
	return nil
}

type dbExecutor interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// execer lets an append join the caller's transaction when one is in the
// context.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts the event and returns it with the id and stored timestamp.
func (s *Store) Append(ctx context.Context, event audit.Event) (audit.Event, error) {
	prepared, err := audit.Prepare(event, s.now())
	if err != nil {
		return audit.Event{}, err
	}

	query := `
		INSERT INTO user_activity_logs (
			timestamp, actor_email, actor_name, actor_role,
			action, details, status, source_address
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, timestamp
	`
	err = s.execer(ctx).QueryRowContext(ctx, query,
		prepared.Timestamp,
		prepared.ActorEmail,
		prepared.ActorName,
		prepared.ActorRole,
		prepared.Action,
		prepared.Details,
		string(prepared.Status),
		prepared.SourceAddress,
	).Scan(&prepared.ID, &prepared.Timestamp)
	if err != nil {
		return audit.Event{}, audit.NewStorageError("append", fmt.Errorf("insert activity log: %w", err))
	}
	prepared.Timestamp = prepared.Timestamp.UTC()
	return prepared, nil
}

// All returns every event, most recent first.
func (s *Store) All(ctx context.Context) ([]audit.Event, error) {
	return s.FindBy(ctx, audit.True())
}

// FindBy returns events matching p, most recent first.
func (s *Store) FindBy(ctx context.Context, p audit.Predicate) ([]audit.Event, error) {
	compiled := audit.CompileSQL(p, dialect, 0)
	query := `SELECT ` + selectColumns + `
		FROM user_activity_logs
		WHERE ` + compiled.Where + `
		ORDER BY timestamp DESC, id DESC`

	events, err := s.query(ctx, "find", query, compiled.Args...)
	if err != nil {
		return nil, err
	}
	if !compiled.Exact {
		events = audit.Filter(events, p)
	}
	return events, nil
}

// Recent returns the limit most recent events.
func (s *Store) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		return []audit.Event{}, nil
	}
	query := `SELECT ` + selectColumns + `
		FROM user_activity_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT $1`
	return s.query(ctx, "recent", query, limit)
}

func (s *Store) query(ctx context.Context, op, query string, args ...any) ([]audit.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, audit.NewStorageError(op, fmt.Errorf("query activity logs: %w", err))
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, audit.NewStorageError(op, err)
	}
	return events, nil
}

// scanEvents scans multiple rows into an audit.Event slice.
func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	events := []audit.Event{}

	for rows.Next() {
		var (
			event  audit.Event
			status string
		)
		err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.ActorEmail,
			&event.ActorName,
			&event.ActorRole,
			&event.Action,
			&event.Details,
			&status,
			&event.SourceAddress,
		)
		if err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		event.Status = audit.Status(status)
		event.Timestamp = event.Timestamp.UTC()
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity logs: %w", err)
	}
	return events, nil
}
