package inmemory

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/memoirhq/memoir/pkg/memory"
	"github.com/memoirhq/memoir/pkg/storage"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testMemory(scope memory.Scope, title string, expires time.Time) *memory.Memory {
	return &memory.Memory{
		Target:  memory.OnDate(date(2026, 3, 5)),
		Expires: expires,
		Content: "content for " + title,
		Title:   title,
		Scope:   scope,
	}
}

var _ = Describe("InMemory Driver", func() {
	var (
		driver *Driver
		ctx    context.Context
		scope  memory.Scope
		today  time.Time
	)

	BeforeEach(func() {
		driver = NewDriver()
		ctx = context.Background()
		scope = memory.PageScope("cambridge")
		today = date(2026, 2, 18)
	})

	Describe("Save", func() {
		It("allocates a fresh identity for an empty id", func() {
			id, err := driver.Save(ctx, testMemory(scope, "Standup", date(2026, 4, 1)), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())
		})

		It("overwrites in place for a given id", func() {
			id, err := driver.Save(ctx, testMemory(scope, "Standup", date(2026, 4, 1)), "")
			Expect(err).NotTo(HaveOccurred())

			updated := testMemory(scope, "Standup", date(2026, 4, 1))
			updated.Content = "moved to 11am"
			sameID, err := driver.Save(ctx, updated, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(sameID).To(Equal(id))

			got, err := driver.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content).To(Equal("moved to 11am"))
		})

		It("rejects nil memories", func() {
			_, err := driver.Save(ctx, nil, "")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Get", func() {
		It("returns NotFoundError for unknown identities", func() {
			_, err := driver.Get(ctx, "nope")
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})

		It("round-trips a stored memory", func() {
			m := testMemory(scope, "Standup", date(2026, 4, 1))
			m.Attachments = []string{"https://example.com/a.pdf"}
			id, err := driver.Save(ctx, m, "")
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(m))
		})
	})

	Describe("LoadLive", func() {
		It("filters by scope and expiry", func() {
			_, err := driver.Save(ctx, testMemory(scope, "Live", date(2026, 4, 1)), "")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.Save(ctx, testMemory(scope, "Expired", date(2026, 2, 1)), "")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.Save(ctx, testMemory(memory.UserScope("alice"), "Other scope", date(2026, 4, 1)), "")
			Expect(err).NotTo(HaveOccurred())

			live, err := driver.LoadLive(ctx, scope, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(live).To(HaveLen(1))
			Expect(live[0].Memory.Title).To(Equal("Live"))
		})

		It("keeps records live on their expiry boundary day", func() {
			_, err := driver.Save(ctx, testMemory(scope, "Boundary", today), "")
			Expect(err).NotTo(HaveOccurred())

			live, err := driver.LoadLive(ctx, scope, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(live).To(HaveLen(1))
		})
	})

	Describe("FindLiveByTitle", func() {
		It("matches titles exactly", func() {
			id, err := driver.Save(ctx, testMemory(scope, "Team Meeting", date(2026, 4, 1)), "")
			Expect(err).NotTo(HaveOccurred())

			rec, err := driver.FindLiveByTitle(ctx, scope, "Team Meeting", today)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.ID).To(Equal(id))

			_, err = driver.FindLiveByTitle(ctx, scope, "team meeting", today)
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})

		It("ignores expired records with matching titles", func() {
			_, err := driver.Save(ctx, testMemory(scope, "Gone", date(2026, 1, 1)), "")
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.FindLiveByTitle(ctx, scope, "Gone", today)
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})
	})

	Describe("SweepExpired", func() {
		It("deletes expired records and returns them", func() {
			_, err := driver.Save(ctx, testMemory(scope, "Keep", date(2026, 4, 1)), "")
			Expect(err).NotTo(HaveOccurred())
			goneID, err := driver.Save(ctx, testMemory(scope, "Gone", date(2026, 2, 1)), "")
			Expect(err).NotTo(HaveOccurred())

			deleted, err := driver.SweepExpired(ctx, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(HaveLen(1))
			Expect(deleted[0].ID).To(Equal(goneID))
			Expect(deleted[0].Memory.Title).To(Equal("Gone"))

			remaining, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(HaveLen(1))
			Expect(remaining[0].Memory.Title).To(Equal("Keep"))
		})

		It("is idempotent", func() {
			_, err := driver.Save(ctx, testMemory(scope, "Gone", date(2026, 2, 1)), "")
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.SweepExpired(ctx, today)
			Expect(err).NotTo(HaveOccurred())

			again, err := driver.SweepExpired(ctx, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeEmpty())
		})
	})
})
