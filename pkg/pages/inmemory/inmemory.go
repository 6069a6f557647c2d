// Package inmemory provides an in-memory pages store for tests and
// single-process use.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/memoirhq/memoir/pkg/pages"
)

// Store implements pages.Store with plain maps guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	pages   map[string]pages.Page
	invites map[string]pages.Invite
	users   map[string]pages.User
	audit   map[string][]pages.AuditEntry
}

// NewStore creates an empty in-memory pages store.
func NewStore() *Store {
	return &Store{
		pages:   make(map[string]pages.Page),
		invites: make(map[string]pages.Invite),
		users:   make(map[string]pages.User),
		audit:   make(map[string][]pages.AuditEntry),
	}
}

// CreatePage inserts a page, rejecting duplicate slugs.
func (s *Store) CreatePage(_ context.Context, page *pages.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pages[page.Slug]; ok {
		return fmt.Errorf("page %s: %w", page.Slug, pages.ErrSlugTaken)
	}
	s.pages[page.Slug] = clonePage(page)
	return nil
}

// GetPage retrieves a page by slug, soft-deleted included.
func (s *Store) GetPage(_ context.Context, slug string) (*pages.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page, ok := s.pages[slug]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", slug, pages.ErrNotFound)
	}
	copied := clonePage(&page)
	return &copied, nil
}

// UpdatePage overwrites a page by slug.
func (s *Store) UpdatePage(_ context.Context, page *pages.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pages[page.Slug]; !ok {
		return fmt.Errorf("page %s: %w", page.Slug, pages.ErrNotFound)
	}
	s.pages[page.Slug] = clonePage(page)
	return nil
}

// ListPagesByOwner returns uid's pages in slug order.
func (s *Store) ListPagesByOwner(_ context.Context, uid string) ([]pages.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []pages.Page
	for _, page := range s.pages {
		if page.HasOwner(uid) {
			owned = append(owned, clonePage(&page))
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].Slug < owned[j].Slug })
	return owned, nil
}

// CreateInvite inserts an invite.
func (s *Store) CreateInvite(_ context.Context, invite *pages.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invites[invite.ID] = *invite
	return nil
}

// GetInvite retrieves an invite by id.
func (s *Store) GetInvite(_ context.Context, id string) (*pages.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invite, ok := s.invites[id]
	if !ok {
		return nil, fmt.Errorf("invite %s: %w", id, pages.ErrNotFound)
	}
	return &invite, nil
}

// UpdateInvite overwrites an invite by id.
func (s *Store) UpdateInvite(_ context.Context, invite *pages.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invites[invite.ID]; !ok {
		return fmt.Errorf("invite %s: %w", invite.ID, pages.ErrNotFound)
	}
	s.invites[invite.ID] = *invite
	return nil
}

// GetUser retrieves a user by uid.
func (s *Store) GetUser(_ context.Context, uid string) (*pages.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[uid]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", uid, pages.ErrNotFound)
	}
	return &user, nil
}

// PutUser inserts or overwrites a user.
func (s *Store) PutUser(_ context.Context, user *pages.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.UID] = *user
	return nil
}

// AppendAudit records a page mutation.
func (s *Store) AppendAudit(_ context.Context, entry *pages.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit[entry.PageSlug] = append(s.audit[entry.PageSlug], *entry)
	return nil
}

// ListAudit returns a page's audit entries in insertion order.
func (s *Store) ListAudit(_ context.Context, slug string) ([]pages.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.audit[slug]
	out := make([]pages.AuditEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func clonePage(page *pages.Page) pages.Page {
	copied := *page
	copied.Owners = append([]string(nil), page.Owners...)
	if page.DeletedAt != nil {
		t := *page.DeletedAt
		copied.DeletedAt = &t
	}
	return copied
}
