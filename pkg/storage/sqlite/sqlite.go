// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/memoirhq/memoir/pkg/memory"
	"github.com/memoirhq/memoir/pkg/storage"
)

// Driver implements storage.Driver using SQLite as the storage backend.
type Driver struct {
	db *sql.DB

	// mu guards the ULID entropy source, which is not safe for
	// concurrent use.
	mu      sync.Mutex
	entropy *rand.Rand
}

// NewDriver creates a new SQLite-backed storage driver.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Driver{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

// migrate creates the necessary tables if they don't exist.
func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		scope_kind TEXT NOT NULL,
		scope_id TEXT NOT NULL,
		target TEXT,
		expires TEXT NOT NULL,
		content TEXT NOT NULL,
		title TEXT,
		event_time TEXT,
		place TEXT,
		attachments TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_memories_scope ON memories(scope_kind, scope_id);
	CREATE INDEX IF NOT EXISTS idx_memories_expires ON memories(expires);
	`

	_, err := d.db.Exec(schema)
	return err
}

func (d *Driver) newID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), d.entropy).String()
}

// Save persists a memory. An empty id allocates a fresh ULID identity;
// a non-empty id overwrites that record in place.
func (d *Driver) Save(ctx context.Context, m *memory.Memory, id string) (string, error) {
	if m == nil {
		return "", fmt.Errorf("cannot store nil memory")
	}

	if id == "" {
		id = d.newID()
	}

	var target any
	if dt, ok := m.Target.Date(); ok {
		target = memory.FormatDate(dt)
	}

	var attachments any
	if len(m.Attachments) > 0 {
		data, err := json.Marshal(m.Attachments)
		if err != nil {
			return "", fmt.Errorf("failed to marshal attachments: %w", err)
		}
		attachments = string(data)
	}

	query := `INSERT INTO memories (id, scope_kind, scope_id, target, expires, content, title, event_time, place, attachments)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		scope_kind = excluded.scope_kind,
		scope_id = excluded.scope_id,
		target = excluded.target,
		expires = excluded.expires,
		content = excluded.content,
		title = excluded.title,
		event_time = excluded.event_time,
		place = excluded.place,
		attachments = excluded.attachments`

	_, err := d.db.ExecContext(ctx, query,
		id, string(m.Scope.Kind), m.Scope.ID, target, memory.FormatDate(m.Expires),
		m.Content, nullable(m.Title), nullable(m.Time), nullable(m.Place), attachments,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save memory: %w", err)
	}

	return id, nil
}

const selectColumns = `id, scope_kind, scope_id, target, expires, content, title, event_time, place, attachments`

// Get retrieves a memory by identity.
func (d *Driver) Get(ctx context.Context, id string) (*memory.Memory, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM memories WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}

	return rec.Memory, nil
}

// Delete removes a record by identity. Missing records are a no-op.
func (d *Driver) Delete(ctx context.Context, id string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return nil
}

// List returns every record in the store.
func (d *Driver) List(ctx context.Context) ([]storage.Record, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM memories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// LoadLive returns the non-expired records for a scope, ordered by identity.
// Expiry compares ISO date strings, which sort lexicographically: a record
// is live while expires >= ref.
func (d *Driver) LoadLive(ctx context.Context, scope memory.Scope, ref time.Time) ([]storage.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM memories
	WHERE scope_kind = ? AND scope_id = ? AND expires >= ?
	ORDER BY id`

	rows, err := d.db.QueryContext(ctx, query, string(scope.Kind), scope.ID, memory.FormatDate(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to load live memories: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// FindLiveByTitle returns the first live record in a scope with an exact
// title match.
func (d *Driver) FindLiveByTitle(ctx context.Context, scope memory.Scope, title string, ref time.Time) (*storage.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM memories
	WHERE scope_kind = ? AND scope_id = ? AND expires >= ? AND title = ?
	ORDER BY id LIMIT 1`

	row := d.db.QueryRowContext(ctx, query, string(scope.Kind), scope.ID, memory.FormatDate(ref), title)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, storage.NotFoundError{}
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// SweepExpired deletes every expired record and returns the deleted pairs.
func (d *Driver) SweepExpired(ctx context.Context, ref time.Time) ([]storage.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM memories WHERE expires < ? ORDER BY id`

	rows, err := d.db.QueryContext(ctx, query, memory.FormatDate(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to find expired memories: %w", err)
	}
	expired, err := scanRecords(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	for _, rec := range expired {
		if _, err := d.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, rec.ID); err != nil {
			return nil, fmt.Errorf("failed to delete expired memory %s: %w", rec.ID, err)
		}
	}

	return expired, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (storage.Record, error) {
	var (
		rec         storage.Record
		scopeKind   string
		scopeID     string
		target      sql.NullString
		expires     string
		content     string
		title       sql.NullString
		eventTime   sql.NullString
		place       sql.NullString
		attachments sql.NullString
	)

	err := row.Scan(&rec.ID, &scopeKind, &scopeID, &target, &expires, &content,
		&title, &eventTime, &place, &attachments)
	if err != nil {
		return rec, err
	}

	m := &memory.Memory{
		Content: content,
		Title:   title.String,
		Time:    eventTime.String,
		Place:   place.String,
		Scope:   memory.Scope{Kind: memory.ScopeKind(scopeKind), ID: scopeID},
	}

	if target.Valid {
		d, err := memory.ParseDate(target.String)
		if err != nil {
			return rec, fmt.Errorf("failed to parse target: %w", err)
		}
		m.Target = memory.OnDate(d)
	} else {
		m.Target = memory.OngoingDate()
	}

	exp, err := memory.ParseDate(expires)
	if err != nil {
		return rec, fmt.Errorf("failed to parse expires: %w", err)
	}
	m.Expires = exp

	if attachments.Valid {
		if err := json.Unmarshal([]byte(attachments.String), &m.Attachments); err != nil {
			return rec, fmt.Errorf("failed to unmarshal attachments: %w", err)
		}
	}

	rec.Memory = m
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]storage.Record, error) {
	var records []storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}
	return records, nil
}
