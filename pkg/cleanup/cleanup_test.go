package cleanup_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/memoirhq/memoir/pkg/cleanup"
	"github.com/memoirhq/memoir/pkg/memory"
	"github.com/memoirhq/memoir/pkg/storage/inmemory"
)

// blobRecorder records deletions and fails for configured URLs.
type blobRecorder struct {
	mu      sync.Mutex
	deleted []string
	failOn  map[string]bool
}

func (b *blobRecorder) Upload(_ context.Context, filename string, _ io.Reader) (string, error) {
	return "https://cdn.example.com/" + filename, nil
}

func (b *blobRecorder) Delete(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failOn[url] {
		return errors.New("backend unavailable")
	}
	b.deleted = append(b.deleted, url)
	return nil
}

func (b *blobRecorder) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

var _ = Describe("Runner", func() {
	var (
		ctx   context.Context
		store *inmemory.Driver
		ref   time.Time
	)

	seed := func(id string, expires time.Time, attachments ...string) {
		_, err := store.Save(ctx, &memory.Memory{
			Expires:     expires,
			Content:     "event",
			Attachments: attachments,
			Scope:       memory.UserScope("u1"),
		}, id)
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		ref = time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC)
	})

	It("sweeps expired records and purges their attachments", func() {
		seed("old", time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
			"https://cdn.example.com/a.png", "https://cdn.example.com/b.png")
		seed("live", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			"https://cdn.example.com/keep.png")

		blobs := &blobRecorder{}
		runner := cleanup.NewRunner(&cleanup.Config{Store: store, Blobs: blobs})

		result, err := runner.Run(ctx, ref)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Swept).To(Equal(1))
		Expect(result.Purged).To(Equal(2))
		Expect(result.Failed).To(BeZero())

		Expect(blobs.snapshot()).To(ConsistOf(
			"https://cdn.example.com/a.png",
			"https://cdn.example.com/b.png",
		))

		_, err = store.Get(ctx, "live")
		Expect(err).NotTo(HaveOccurred())
	})

	It("keeps records expiring on the reference date", func() {
		seed("boundary", ref)

		runner := cleanup.NewRunner(&cleanup.Config{Store: store})
		result, err := runner.Run(ctx, ref)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Swept).To(BeZero())
	})

	It("counts purge failures without failing the run", func() {
		seed("old", time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
			"https://cdn.example.com/a.png", "https://cdn.example.com/broken.png")

		blobs := &blobRecorder{failOn: map[string]bool{"https://cdn.example.com/broken.png": true}}
		runner := cleanup.NewRunner(&cleanup.Config{Store: store, Blobs: blobs})

		result, err := runner.Run(ctx, ref)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Purged).To(Equal(1))
		Expect(result.Failed).To(Equal(1))
	})

	It("skips purge without a blob store", func() {
		seed("old", time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), "https://cdn.example.com/a.png")

		runner := cleanup.NewRunner(&cleanup.Config{Store: store})
		result, err := runner.Run(ctx, ref)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Swept).To(Equal(1))
		Expect(result.Purged).To(BeZero())
	})

	It("handles many attachments with a small worker pool", func() {
		var urls []string
		for i := 0; i < 20; i++ {
			urls = append(urls, "https://cdn.example.com/"+string(rune('a'+i))+".png")
		}
		seed("old", time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), urls...)

		blobs := &blobRecorder{}
		runner := cleanup.NewRunner(&cleanup.Config{Store: store, Blobs: blobs, NumWorkers: 2})

		result, err := runner.Run(ctx, ref)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Purged).To(Equal(20))
		Expect(blobs.snapshot()).To(HaveLen(20))
	})
})
