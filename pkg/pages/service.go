package pages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// inviteTTL is how long an invite stays acceptable.
const inviteTTL = 7 * 24 * time.Hour

// Service enforces the membership rules on top of a Store: every page keeps
// at least one owner, visibility values come from the whitelist, slugs are
// unique, deletes are soft, and an invite adds an owner exactly once.
type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service. A nil logger disables logging.
func NewService(store Store, log *zap.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Service{
		store: store,
		log:   log,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// EnsureUser returns the user for uid, creating it together with a personal
// page on first sight.
func (s *Service) EnsureUser(ctx context.Context, uid, displayName string) (*User, error) {
	user, err := s.store.GetUser(ctx, uid)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user %s: %w", uid, err)
	}

	now := s.now().UTC()
	personal := &Page{
		Slug:       "u-" + uid,
		Title:      displayName,
		Visibility: VisibilityPersonal,
		Owners:     []string{uid},
		CreatedAt:  now,
	}
	if err := s.store.CreatePage(ctx, personal); err != nil && !errors.Is(err, ErrSlugTaken) {
		return nil, fmt.Errorf("create personal page: %w", err)
	}

	user = &User{
		UID:          uid,
		DisplayName:  displayName,
		PersonalSlug: personal.Slug,
		CreatedAt:    now,
	}
	if err := s.store.PutUser(ctx, user); err != nil {
		return nil, fmt.Errorf("put user %s: %w", uid, err)
	}

	s.log.Info("created user", zap.String("uid", uid), zap.String("personal_slug", personal.Slug))
	return user, nil
}

// CreatePage creates a page owned by the actor.
func (s *Service) CreatePage(ctx context.Context, actor, slug, title string, visibility Visibility) (*Page, error) {
	if !visibility.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVisibility, visibility)
	}

	page := &Page{
		Slug:       slug,
		Title:      title,
		Visibility: visibility,
		Owners:     []string{actor},
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.CreatePage(ctx, page); err != nil {
		return nil, err
	}

	s.audit(ctx, slug, actor, "page.create", title)
	return page, nil
}

// GetPage retrieves a live page by slug. Soft-deleted pages read as missing.
func (s *Service) GetPage(ctx context.Context, slug string) (*Page, error) {
	page, err := s.store.GetPage(ctx, slug)
	if err != nil {
		return nil, err
	}
	if page.Deleted() {
		return nil, fmt.Errorf("page %s: %w", slug, ErrNotFound)
	}
	return page, nil
}

// UpdatePage patches a page's title and visibility. Nil fields are left
// unchanged. The actor must be an owner.
func (s *Service) UpdatePage(ctx context.Context, actor, slug string, title *string, visibility *Visibility) (*Page, error) {
	page, err := s.ownedPage(ctx, actor, slug)
	if err != nil {
		return nil, err
	}

	if title != nil {
		page.Title = *title
	}
	if visibility != nil {
		if !visibility.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidVisibility, *visibility)
		}
		page.Visibility = *visibility
	}

	if err := s.store.UpdatePage(ctx, page); err != nil {
		return nil, err
	}

	s.audit(ctx, slug, actor, "page.update", page.Title)
	return page, nil
}

// DeletePage soft-deletes a page. The actor must be an owner.
func (s *Service) DeletePage(ctx context.Context, actor, slug string) error {
	page, err := s.ownedPage(ctx, actor, slug)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	page.DeletedAt = &now
	if err := s.store.UpdatePage(ctx, page); err != nil {
		return err
	}

	s.audit(ctx, slug, actor, "page.delete", "")
	return nil
}

// RestorePage clears a page's soft-delete mark. The actor must be an owner.
func (s *Service) RestorePage(ctx context.Context, actor, slug string) (*Page, error) {
	page, err := s.store.GetPage(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !page.HasOwner(actor) {
		return nil, fmt.Errorf("page %s: %w", slug, ErrNotOwner)
	}

	page.DeletedAt = nil
	if err := s.store.UpdatePage(ctx, page); err != nil {
		return nil, err
	}

	s.audit(ctx, slug, actor, "page.restore", "")
	return page, nil
}

// RemoveOwner removes uid from a page's owners. The last owner cannot be
// removed.
func (s *Service) RemoveOwner(ctx context.Context, actor, slug, uid string) (*Page, error) {
	page, err := s.ownedPage(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	if !page.HasOwner(uid) {
		return nil, fmt.Errorf("owner %s: %w", uid, ErrNotFound)
	}
	if len(page.Owners) == 1 {
		return nil, fmt.Errorf("page %s: %w", slug, ErrLastOwner)
	}

	owners := make([]string, 0, len(page.Owners)-1)
	for _, o := range page.Owners {
		if o != uid {
			owners = append(owners, o)
		}
	}
	page.Owners = owners

	if err := s.store.UpdatePage(ctx, page); err != nil {
		return nil, err
	}

	s.audit(ctx, slug, actor, "page.remove_owner", uid)
	return page, nil
}

// ListPagesForUser returns the live pages uid owns, in slug order.
func (s *Service) ListPagesForUser(ctx context.Context, uid string) ([]Page, error) {
	all, err := s.store.ListPagesByOwner(ctx, uid)
	if err != nil {
		return nil, err
	}

	live := make([]Page, 0, len(all))
	for _, p := range all {
		if !p.Deleted() {
			live = append(live, p)
		}
	}
	return live, nil
}

// CreateInvite issues an ownership invite for a page. The actor must be an
// owner. Invites expire after seven days.
func (s *Service) CreateInvite(ctx context.Context, actor, slug string) (*Invite, error) {
	if _, err := s.ownedPage(ctx, actor, slug); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	invite := &Invite{
		ID:        uuid.NewString(),
		PageSlug:  slug,
		CreatedBy: actor,
		CreatedAt: now,
		ExpiresAt: now.Add(inviteTTL),
	}
	if err := s.store.CreateInvite(ctx, invite); err != nil {
		return nil, err
	}

	s.audit(ctx, slug, actor, "invite.create", invite.ID)
	return invite, nil
}

// AcceptInvite consumes an invite, adding the actor as an owner of the
// invite's page. An invite accepts exactly once; accepting your own page
// again changes nothing.
func (s *Service) AcceptInvite(ctx context.Context, actor, inviteID string) (*Page, error) {
	invite, err := s.store.GetInvite(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if invite.Accepted() {
		return nil, fmt.Errorf("invite %s: %w", inviteID, ErrInviteUsed)
	}

	now := s.now().UTC()
	if now.After(invite.ExpiresAt) {
		return nil, fmt.Errorf("invite %s: %w", inviteID, ErrInviteExpired)
	}

	page, err := s.GetPage(ctx, invite.PageSlug)
	if err != nil {
		return nil, err
	}

	if !page.HasOwner(actor) {
		page.Owners = append(page.Owners, actor)
		if err := s.store.UpdatePage(ctx, page); err != nil {
			return nil, err
		}
	}

	invite.AcceptedBy = actor
	invite.AcceptedAt = &now
	if err := s.store.UpdateInvite(ctx, invite); err != nil {
		return nil, err
	}

	s.audit(ctx, page.Slug, actor, "invite.accept", inviteID)
	return page, nil
}

// AuditLog returns a page's audit trail in chronological order.
func (s *Service) AuditLog(ctx context.Context, slug string) ([]AuditEntry, error) {
	return s.store.ListAudit(ctx, slug)
}

// ownedPage loads a live page and checks the actor's ownership.
func (s *Service) ownedPage(ctx context.Context, actor, slug string) (*Page, error) {
	page, err := s.GetPage(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !page.HasOwner(actor) {
		return nil, fmt.Errorf("page %s: %w", slug, ErrNotOwner)
	}
	return page, nil
}

// audit appends an audit entry. Audit failures are logged, never returned.
func (s *Service) audit(ctx context.Context, slug, actor, action, detail string) {
	entry := &AuditEntry{
		ID:       uuid.NewString(),
		PageSlug: slug,
		ActorUID: actor,
		Action:   action,
		Detail:   detail,
		At:       s.now().UTC(),
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.log.Warn("audit append failed",
			zap.String("slug", slug),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
