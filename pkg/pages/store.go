package pages

import "context"

// Store is the persistence interface for pages, invites, users, and audit
// entries. Implementations return ErrNotFound and ErrSlugTaken where noted
// and enforce nothing else; membership rules belong to Service.
type Store interface {
	// CreatePage inserts a new page. Returns ErrSlugTaken when the slug
	// exists, soft-deleted or not.
	CreatePage(ctx context.Context, page *Page) error

	// GetPage retrieves a page by slug, including soft-deleted pages.
	GetPage(ctx context.Context, slug string) (*Page, error)

	// UpdatePage overwrites a page by slug.
	UpdatePage(ctx context.Context, page *Page) error

	// ListPagesByOwner returns every page (including soft-deleted) that
	// lists uid as an owner, in slug order.
	ListPagesByOwner(ctx context.Context, uid string) ([]Page, error)

	// CreateInvite inserts an invite.
	CreateInvite(ctx context.Context, invite *Invite) error

	// GetInvite retrieves an invite by id.
	GetInvite(ctx context.Context, id string) (*Invite, error)

	// UpdateInvite overwrites an invite by id.
	UpdateInvite(ctx context.Context, invite *Invite) error

	// GetUser retrieves a user by uid.
	GetUser(ctx context.Context, uid string) (*User, error)

	// PutUser inserts or overwrites a user.
	PutUser(ctx context.Context, user *User) error

	// AppendAudit records a page mutation.
	AppendAudit(ctx context.Context, entry *AuditEntry) error

	// ListAudit returns a page's audit entries in chronological order.
	ListAudit(ctx context.Context, slug string) ([]AuditEntry, error)

	// Close releases backend resources.
	Close() error
}
