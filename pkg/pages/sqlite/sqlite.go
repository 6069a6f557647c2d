// Package sqlite provides a SQLite-backed pages store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/memoirhq/memoir/pkg/pages"
)

// Store implements pages.Store using SQLite as the storage backend.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite-backed pages store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		slug TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		visibility TEXT NOT NULL,
		owners TEXT NOT NULL,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);

	CREATE TABLE IF NOT EXISTS invites (
		id TEXT PRIMARY KEY,
		page_slug TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		accepted_by TEXT,
		accepted_at TEXT
	);

	CREATE TABLE IF NOT EXISTS users (
		uid TEXT PRIMARY KEY,
		display_name TEXT,
		personal_slug TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS page_audit (
		id TEXT PRIMARY KEY,
		page_slug TEXT NOT NULL,
		actor_uid TEXT NOT NULL,
		action TEXT NOT NULL,
		detail TEXT,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invites_page ON invites(page_slug);
	CREATE INDEX IF NOT EXISTS idx_page_audit_page ON page_audit(page_slug, at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreatePage inserts a page, rejecting duplicate slugs.
func (s *Store) CreatePage(ctx context.Context, page *pages.Page) error {
	owners, err := json.Marshal(page.Owners)
	if err != nil {
		return fmt.Errorf("failed to marshal owners: %w", err)
	}

	query := `INSERT INTO pages (slug, title, visibility, owners, created_at, deleted_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		page.Slug, page.Title, string(page.Visibility), string(owners),
		formatTime(page.CreatedAt), nullableTime(page.DeletedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("page %s: %w", page.Slug, pages.ErrSlugTaken)
		}
		return fmt.Errorf("failed to create page: %w", err)
	}
	return nil
}

// GetPage retrieves a page by slug, soft-deleted included.
func (s *Store) GetPage(ctx context.Context, slug string) (*pages.Page, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT slug, title, visibility, owners, created_at, deleted_at FROM pages WHERE slug = ?`, slug)

	page, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", slug, pages.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

// UpdatePage overwrites a page by slug.
func (s *Store) UpdatePage(ctx context.Context, page *pages.Page) error {
	owners, err := json.Marshal(page.Owners)
	if err != nil {
		return fmt.Errorf("failed to marshal owners: %w", err)
	}

	query := `UPDATE pages SET title = ?, visibility = ?, owners = ?, deleted_at = ? WHERE slug = ?`

	result, err := s.db.ExecContext(ctx, query,
		page.Title, string(page.Visibility), string(owners), nullableTime(page.DeletedAt), page.Slug)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("page %s: %w", page.Slug, pages.ErrNotFound)
	}
	return nil
}

// ListPagesByOwner returns uid's pages in slug order. Ownership lives in a
// JSON array column, so membership is checked after scanning.
func (s *Store) ListPagesByOwner(ctx context.Context, uid string) ([]pages.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, title, visibility, owners, created_at, deleted_at FROM pages ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var owned []pages.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		if page.HasOwner(uid) {
			owned = append(owned, *page)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}
	return owned, nil
}

// CreateInvite inserts an invite.
func (s *Store) CreateInvite(ctx context.Context, invite *pages.Invite) error {
	query := `INSERT INTO invites (id, page_slug, created_by, created_at, expires_at, accepted_by, accepted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		invite.ID, invite.PageSlug, invite.CreatedBy,
		formatTime(invite.CreatedAt), formatTime(invite.ExpiresAt),
		nullable(invite.AcceptedBy), nullableTime(invite.AcceptedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// GetInvite retrieves an invite by id.
func (s *Store) GetInvite(ctx context.Context, id string) (*pages.Invite, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, page_slug, created_by, created_at, expires_at, accepted_by, accepted_at
		FROM invites WHERE id = ?`, id)

	var (
		invite     pages.Invite
		createdAt  string
		expiresAt  string
		acceptedBy sql.NullString
		acceptedAt sql.NullString
	)
	err := row.Scan(&invite.ID, &invite.PageSlug, &invite.CreatedBy,
		&createdAt, &expiresAt, &acceptedBy, &acceptedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invite %s: %w", id, pages.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invite: %w", err)
	}

	if invite.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if invite.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	invite.AcceptedBy = acceptedBy.String
	if acceptedAt.Valid {
		t, err := parseTime(acceptedAt.String)
		if err != nil {
			return nil, err
		}
		invite.AcceptedAt = &t
	}
	return &invite, nil
}

// UpdateInvite overwrites an invite by id.
func (s *Store) UpdateInvite(ctx context.Context, invite *pages.Invite) error {
	query := `UPDATE invites SET accepted_by = ?, accepted_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query,
		nullable(invite.AcceptedBy), nullableTime(invite.AcceptedAt), invite.ID)
	if err != nil {
		return fmt.Errorf("failed to update invite: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("invite %s: %w", invite.ID, pages.ErrNotFound)
	}
	return nil
}

// GetUser retrieves a user by uid.
func (s *Store) GetUser(ctx context.Context, uid string) (*pages.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT uid, display_name, personal_slug, created_at FROM users WHERE uid = ?`, uid)

	var (
		user        pages.User
		displayName sql.NullString
		createdAt   string
	)
	err := row.Scan(&user.UID, &displayName, &user.PersonalSlug, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", uid, pages.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.DisplayName = displayName.String
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// PutUser inserts or overwrites a user.
func (s *Store) PutUser(ctx context.Context, user *pages.User) error {
	query := `INSERT INTO users (uid, display_name, personal_slug, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(uid) DO UPDATE SET
		display_name = excluded.display_name,
		personal_slug = excluded.personal_slug`

	_, err := s.db.ExecContext(ctx, query,
		user.UID, nullable(user.DisplayName), user.PersonalSlug, formatTime(user.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to put user: %w", err)
	}
	return nil
}

// AppendAudit records a page mutation.
func (s *Store) AppendAudit(ctx context.Context, entry *pages.AuditEntry) error {
	query := `INSERT INTO page_audit (id, page_slug, actor_uid, action, detail, at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.PageSlug, entry.ActorUID, entry.Action,
		nullable(entry.Detail), formatTime(entry.At))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns a page's audit entries in chronological order.
func (s *Store) ListAudit(ctx context.Context, slug string) ([]pages.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, page_slug, actor_uid, action, detail, at FROM page_audit
		WHERE page_slug = ? ORDER BY at, id`, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []pages.AuditEntry
	for rows.Next() {
		var (
			entry  pages.AuditEntry
			detail sql.NullString
			at     string
		)
		if err := rows.Scan(&entry.ID, &entry.PageSlug, &entry.ActorUID, &entry.Action, &detail, &at); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Detail = detail.String
		if entry.At, err = parseTime(at); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (*pages.Page, error) {
	var (
		page       pages.Page
		visibility string
		owners     string
		createdAt  string
		deletedAt  sql.NullString
	)
	err := row.Scan(&page.Slug, &page.Title, &visibility, &owners, &createdAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	page.Visibility = pages.Visibility(visibility)
	if err := json.Unmarshal([]byte(owners), &page.Owners); err != nil {
		return nil, fmt.Errorf("failed to unmarshal owners: %w", err)
	}
	if page.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t, err := parseTime(deletedAt.String)
		if err != nil {
			return nil, err
		}
		page.DeletedAt = &t
	}
	return &page, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// isUniqueViolation reports whether err is a primary key conflict.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
