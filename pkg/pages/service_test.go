package pages_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/memoirhq/memoir/pkg/pages"
	"github.com/memoirhq/memoir/pkg/pages/inmemory"
)

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		store   *inmemory.Store
		now     time.Time
		service *pages.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewStore()
		now = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)
		service = pages.NewService(store, nil, pages.WithClock(func() time.Time { return now }))
	})

	Describe("EnsureUser", func() {
		It("creates the user and a personal page on first sight", func() {
			user, err := service.EnsureUser(ctx, "alice", "Alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.UID).To(Equal("alice"))
			Expect(user.PersonalSlug).To(Equal("u-alice"))

			page, err := service.GetPage(ctx, "u-alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Visibility).To(Equal(pages.VisibilityPersonal))
			Expect(page.Owners).To(ConsistOf("alice"))
		})

		It("is idempotent", func() {
			first, err := service.EnsureUser(ctx, "alice", "Alice")
			Expect(err).NotTo(HaveOccurred())

			second, err := service.EnsureUser(ctx, "alice", "Alice A.")
			Expect(err).NotTo(HaveOccurred())
			Expect(second.DisplayName).To(Equal(first.DisplayName))
		})
	})

	Describe("CreatePage", func() {
		It("creates a page owned by the actor", func() {
			page, err := service.CreatePage(ctx, "alice", "newton-club", "Newton Club", pages.VisibilityPublic)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Owners).To(ConsistOf("alice"))
			Expect(page.CreatedAt).To(Equal(now))
		})

		It("rejects duplicate slugs", func() {
			_, err := service.CreatePage(ctx, "alice", "newton-club", "Newton Club", pages.VisibilityPublic)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreatePage(ctx, "bob", "newton-club", "Other Club", pages.VisibilityPublic)
			Expect(err).To(MatchError(pages.ErrSlugTaken))
		})

		It("rejects unknown visibility values", func() {
			_, err := service.CreatePage(ctx, "alice", "p", "P", pages.Visibility("secret"))
			Expect(err).To(MatchError(pages.ErrInvalidVisibility))
		})

		It("writes an audit entry", func() {
			_, err := service.CreatePage(ctx, "alice", "newton-club", "Newton Club", pages.VisibilityPublic)
			Expect(err).NotTo(HaveOccurred())

			entries, err := service.AuditLog(ctx, "newton-club")
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Action).To(Equal("page.create"))
			Expect(entries[0].ActorUID).To(Equal("alice"))
		})
	})

	Describe("UpdatePage", func() {
		BeforeEach(func() {
			_, err := service.CreatePage(ctx, "alice", "newton-club", "Newton Club", pages.VisibilityPublic)
			Expect(err).NotTo(HaveOccurred())
		})

		It("patches title and visibility", func() {
			title := "Newton Social Club"
			vis := pages.VisibilityPersonal
			page, err := service.UpdatePage(ctx, "alice", "newton-club", &title, &vis)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Title).To(Equal("Newton Social Club"))
			Expect(page.Visibility).To(Equal(pages.VisibilityPersonal))
		})

		It("leaves nil fields unchanged", func() {
			title := "Renamed"
			page, err := service.UpdatePage(ctx, "alice", "newton-club", &title, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Visibility).To(Equal(pages.VisibilityPublic))
		})

		It("rejects non-owners", func() {
			title := "Hijacked"
			_, err := service.UpdatePage(ctx, "mallory", "newton-club", &title, nil)
			Expect(err).To(MatchError(pages.ErrNotOwner))
		})
	})

	Describe("soft delete and restore", func() {
		BeforeEach(func() {
			_, err := service.CreatePage(ctx, "alice", "newton-club", "Newton Club", pages.VisibilityPublic)
			Expect(err).NotTo(HaveOccurred())
		})

		It("hides a deleted page from reads", func() {
			Expect(service.DeletePage(ctx, "alice", "newton-club")).To(Succeed())

			_, err := service.GetPage(ctx, "newton-club")
			Expect(err).To(MatchError(pages.ErrNotFound))
		})

		It("keeps the slug reserved while deleted", func() {
			Expect(service.DeletePage(ctx, "alice", "newton-club")).To(Succeed())

			_, err := service.CreatePage(ctx, "bob", "newton-club", "Squatter", pages.VisibilityPublic)
			Expect(err).To(MatchError(pages.ErrSlugTaken))
		})

		It("restores a deleted page", func() {
			Expect(service.DeletePage(ctx, "alice", "newton-club")).To(Succeed())

			page, err := service.RestorePage(ctx, "alice", "newton-club")
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Deleted()).To(BeFalse())

			_, err = service.GetPage(ctx, "newton-club")
			Expect(err).NotTo(HaveOccurred())
		})

		It("excludes deleted pages from the owner's listing", func() {
			Expect(service.DeletePage(ctx, "alice", "newton-club")).To(Succeed())

			owned, err := service.ListPagesForUser(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(owned).To(BeEmpty())
		})
	})

	Describe("RemoveOwner", func() {
		BeforeEach(func() {
			_, err := service.CreatePage(ctx, "alice", "newton-club", "Newton Club", pages.VisibilityPublic)
			Expect(err).NotTo(HaveOccurred())

			invite, err := service.CreateInvite(ctx, "alice", "newton-club")
			Expect(err).NotTo(HaveOccurred())
			_, err = service.AcceptInvite(ctx, "bob", invite.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("removes an owner", func() {
			page, err := service.RemoveOwner(ctx, "alice", "newton-club", "bob")
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Owners).To(ConsistOf("alice"))
		})

		It("refuses to remove the last owner", func() {
			_, err := service.RemoveOwner(ctx, "alice", "newton-club", "bob")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RemoveOwner(ctx, "alice", "newton-club", "alice")
			Expect(err).To(MatchError(pages.ErrLastOwner))
		})

		It("rejects removing someone who is not an owner", func() {
			_, err := service.RemoveOwner(ctx, "alice", "newton-club", "mallory")
			Expect(err).To(MatchError(pages.ErrNotFound))
		})
	})

	Describe("invites", func() {
		BeforeEach(func() {
			_, err := service.CreatePage(ctx, "alice", "newton-club", "Newton Club", pages.VisibilityPublic)
			Expect(err).NotTo(HaveOccurred())
		})

		It("expires seven days after creation", func() {
			invite, err := service.CreateInvite(ctx, "alice", "newton-club")
			Expect(err).NotTo(HaveOccurred())
			Expect(invite.ExpiresAt).To(Equal(now.Add(7 * 24 * time.Hour)))
		})

		It("only owners can invite", func() {
			_, err := service.CreateInvite(ctx, "mallory", "newton-club")
			Expect(err).To(MatchError(pages.ErrNotOwner))
		})

		It("accepting adds the actor as an owner", func() {
			invite, err := service.CreateInvite(ctx, "alice", "newton-club")
			Expect(err).NotTo(HaveOccurred())

			page, err := service.AcceptInvite(ctx, "bob", invite.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Owners).To(ConsistOf("alice", "bob"))
		})

		It("accepts exactly once", func() {
			invite, err := service.CreateInvite(ctx, "alice", "newton-club")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.AcceptInvite(ctx, "bob", invite.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.AcceptInvite(ctx, "carol", invite.ID)
			Expect(err).To(MatchError(pages.ErrInviteUsed))
		})

		It("rejects expired invites", func() {
			invite, err := service.CreateInvite(ctx, "alice", "newton-club")
			Expect(err).NotTo(HaveOccurred())

			now = now.Add(7*24*time.Hour + time.Minute)
			_, err = service.AcceptInvite(ctx, "bob", invite.ID)
			Expect(err).To(MatchError(pages.ErrInviteExpired))
		})

		It("does not duplicate an existing owner", func() {
			invite, err := service.CreateInvite(ctx, "alice", "newton-club")
			Expect(err).NotTo(HaveOccurred())

			page, err := service.AcceptInvite(ctx, "alice", invite.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Owners).To(ConsistOf("alice"))
		})
	})
})
