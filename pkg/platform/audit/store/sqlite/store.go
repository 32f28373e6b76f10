// Package sqlite is the embedded event store: a single-file SQLite database
// accessed through sqlx. SQLite serializes writers, which is what gives
// AUTOINCREMENT ids their strict ordering.
package sqlite

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	sqlitedriver "modernc.org/sqlite"

	audit "activitylog/pkg/platform/audit"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_activity_logs (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp_us   INTEGER NOT NULL,
		actor_email    TEXT    NOT NULL,
		actor_name     TEXT    NOT NULL,
		actor_role     TEXT    NOT NULL,
		action         TEXT    NOT NULL,
		details        TEXT    NOT NULL DEFAULT '',
		status         TEXT    NOT NULL CHECK (status IN ('success', 'failed')),
		source_address TEXT    NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_logs_timestamp ON user_activity_logs (timestamp_us DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_logs_actor_email ON user_activity_logs (actor_email)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_logs_action ON user_activity_logs (action)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_logs_status ON user_activity_logs (status)`,
}

const selectColumns = `id, timestamp_us, actor_email, actor_name, actor_role, action, details, status, source_address`

// foldFunc lowercases with Go's Unicode tables. SQLite's built-in lower()
// only folds ASCII, which would miss "Élise" when searching for "élise".
const foldFunc = "go_lower"

func init() {
	if err := sqlitedriver.RegisterDeterministicScalarFunction(foldFunc, 1, fold); err != nil {
		panic(fmt.Sprintf("register %s: %v", foldFunc, err))
	}
}

func fold(_ *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

var dialect = audit.Dialect{
	Placeholder: func(int) string { return "?" },
	ContainsFold: func(column, param string) string {
		return fmt.Sprintf("instr(%s(%s), %s) > 0", foldFunc, column, param)
	},
	TimeColumn: "timestamp_us",
	TimeArg:    func(t time.Time) any { return t.UnixMicro() },
}

// Store implements audit.Store on SQLite.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects to the database at path (":memory:" for tests) and creates
// the table when missing.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	// One connection: in-memory databases are per-connection and SQLite
	// allows a single writer anyway.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type row struct {
	ID            int64  `db:"id"`
	TimestampUS   int64  `db:"timestamp_us"`
	ActorEmail    string `db:"actor_email"`
	ActorName     string `db:"actor_name"`
	ActorRole     string `db:"actor_role"`
	Action        string `db:"action"`
	Details       string `db:"details"`
	Status        string `db:"status"`
	SourceAddress string `db:"source_address"`
}

func (r row) event() audit.Event {
	return audit.Event{
		ID:            r.ID,
		Timestamp:     time.UnixMicro(r.TimestampUS).UTC(),
		ActorEmail:    r.ActorEmail,
		ActorName:     r.ActorName,
		ActorRole:     r.ActorRole,
		Action:        r.Action,
		Details:       r.Details,
		Status:        audit.Status(r.Status),
		SourceAddress: r.SourceAddress,
	}
}

func (s *Store) Append(ctx context.Context, event audit.Event) (audit.Event, error) {
	prepared, err := audit.Prepare(event, s.now())
	if err != nil {
		return audit.Event{}, err
	}

	query := `
		INSERT INTO user_activity_logs (
			timestamp_us, actor_email, actor_name, actor_role,
			action, details, status, source_address
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		prepared.Timestamp.UnixMicro(),
		prepared.ActorEmail,
		prepared.ActorName,
		prepared.ActorRole,
		prepared.Action,
		prepared.Details,
		string(prepared.Status),
		prepared.SourceAddress,
	)
	if err != nil {
		return audit.Event{}, audit.NewStorageError("append", fmt.Errorf("insert activity log: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return audit.Event{}, audit.NewStorageError("append", fmt.Errorf("read inserted id: %w", err))
	}
	prepared.ID = id
	return prepared, nil
}

func (s *Store) All(ctx context.Context) ([]audit.Event, error) {
	return s.FindBy(ctx, audit.True())
}

func (s *Store) FindBy(ctx context.Context, p audit.Predicate) ([]audit.Event, error) {
	compiled := audit.CompileSQL(p, dialect, 0)
	query := `SELECT ` + selectColumns + `
		FROM user_activity_logs
		WHERE ` + compiled.Where + `
		ORDER BY timestamp_us DESC, id DESC`

	events, err := s.selectEvents(ctx, "find", query, compiled.Args...)
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
		ORDER BY timestamp_us DESC, id DESC
		LIMIT ?`
	return s.selectEvents(ctx, "recent", query, limit)
}

func (s *Store) selectEvents(ctx context.Context, op, query string, args ...any) ([]audit.Event, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, audit.NewStorageError(op, fmt.Errorf("query activity logs: %w", err))
	}
	events := make([]audit.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.event())
	}
	return events, nil
}
