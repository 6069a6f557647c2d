// Package pages manages the multi-tenant surface around memories: shared
// pages and their owners, invites, users, and the audit trail of page
// mutations. Membership rules live in Service; backends implement Store as
// plain CRUD.
package pages

import "time"

// Visibility controls who can read a page's memories.
type Visibility string

const (
	// VisibilityPublic pages are readable without authentication.
	VisibilityPublic Visibility = "public"

	// VisibilityPersonal pages are readable by their owners only.
	VisibilityPersonal Visibility = "personal"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPersonal
}

// Page is a shared memory scope identified by slug.
type Page struct {
	Slug       string
	Title      string
	Visibility Visibility
	Owners     []string
	CreatedAt  time.Time

	// DeletedAt marks a soft-deleted page. Soft-deleted pages are hidden
	// from reads until restored.
	DeletedAt *time.Time
}

// Deleted reports whether the page is soft-deleted.
func (p *Page) Deleted() bool {
	return p.DeletedAt != nil
}

// HasOwner reports whether uid is among the page's owners.
func (p *Page) HasOwner(uid string) bool {
	for _, o := range p.Owners {
		if o == uid {
			return true
		}
	}
	return false
}

// Invite grants ownership of a page to whoever accepts it first.
type Invite struct {
	ID         string
	PageSlug   string
	CreatedBy  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	AcceptedBy string
	AcceptedAt *time.Time
}

// Accepted reports whether the invite has already been used.
func (i *Invite) Accepted() bool {
	return i.AcceptedAt != nil
}

// User is an authenticated principal. Every user gets a personal page on
// first sight.
type User struct {
	UID          string
	DisplayName  string
	PersonalSlug string
	CreatedAt    time.Time
}

// AuditEntry records one page mutation.
type AuditEntry struct {
	ID       string
	PageSlug string
	ActorUID string
	Action   string
	Detail   string
	At       time.Time
}
