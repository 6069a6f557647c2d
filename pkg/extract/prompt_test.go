package extract

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/memoirhq/memoir/pkg/memory"
	"github.com/memoirhq/memoir/pkg/storage"
)

var _ = Describe("BuildPrompt", func() {
	var (
		ref  time.Time
		live []storage.Record
	)

	BeforeEach(func() {
		ref = time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC)
		live = []storage.Record{
			{ID: "a", Memory: &memory.Memory{
				Target:  memory.OnDate(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)),
				Expires: time.Date(2026, 4, 4, 0, 0, 0, 0, time.UTC),
				Title:   "Team Meeting",
				Time:    "10:00",
				Place:   "Room A",
				Content: "Weekly planning",
			}},
			{ID: "b", Memory: &memory.Memory{
				Target:  memory.OngoingDate(),
				Expires: time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC),
				Content: "Recycling reminder",
			}},
		}
	})

	It("states the reference date", func() {
		prompt := BuildPrompt("hello", nil, ref, nil)
		Expect(prompt).To(ContainSubstring("Today's date is 2026-02-18."))
	})

	It("summarizes each live memory on one line", func() {
		prompt := BuildPrompt("hello", live, ref, nil)
		Expect(prompt).To(ContainSubstring("- 2026-03-05 | Team Meeting | 10:00 | Room A | expires 2026-04-04"))
		Expect(prompt).To(ContainSubstring("- ongoing | expires 2026-02-22"))
	})

	It("marks an empty memory set", func() {
		prompt := BuildPrompt("hello", nil, ref, nil)
		Expect(prompt).To(ContainSubstring("(none)"))
	})

	It("embeds the user message verbatim", func() {
		message := "温馨提醒：周六3/7 ⭐️牛顿会所有聚会\nZoom ID: 233 069 6236"
		prompt := BuildPrompt(message, live, ref, nil)
		Expect(prompt).To(ContainSubstring(message))
	})

	It("lists attachment URLs under their own header", func() {
		prompt := BuildPrompt("flyer attached", nil, ref, []string{"https://cdn.example.com/flyer.png"})
		Expect(prompt).To(ContainSubstring("Uploaded attachments"))
		Expect(prompt).To(ContainSubstring("- https://cdn.example.com/flyer.png"))
	})

	It("omits the attachments header without attachments", func() {
		prompt := BuildPrompt("no files", nil, ref, nil)
		Expect(prompt).NotTo(ContainSubstring("Uploaded attachments"))
	})

	It("spells out the response contract fields", func() {
		prompt := BuildPrompt("hello", nil, ref, nil)
		for _, field := range []string{"action", "update_title", "target", "expires", "title", "slug", "time", "place", "content", "attachments"} {
			Expect(prompt).To(ContainSubstring(`"` + field + `"`))
		}
		Expect(prompt).To(ContainSubstring("same language"))
	})

	It("is deterministic", func() {
		first := BuildPrompt("hello", live, ref, []string{"https://a.com/x"})
		second := BuildPrompt("hello", live, ref, []string{"https://a.com/x"})
		Expect(first).To(Equal(second))
	})
})
