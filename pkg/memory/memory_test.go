package memory

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("Memory", func() {
	Describe("IsExpired", func() {
		It("treats the boundary day as still valid", func() {
			m := &Memory{
				Target:  OnDate(date(2026, 1, 1)),
				Expires: date(2026, 1, 31),
				Content: "January event.",
			}
			Expect(m.IsExpired(date(2026, 1, 15))).To(BeFalse())
			Expect(m.IsExpired(date(2026, 1, 31))).To(BeFalse())
			Expect(m.IsExpired(date(2026, 2, 1))).To(BeTrue())
		})

		It("expires ongoing memories by their expires date", func() {
			m := &Memory{
				Target:  OngoingDate(),
				Expires: date(2026, 2, 22),
				Content: "Weekly event.",
			}
			Expect(m.IsExpired(date(2026, 2, 18))).To(BeFalse())
			Expect(m.IsExpired(date(2026, 2, 22))).To(BeFalse())
			Expect(m.IsExpired(date(2026, 2, 23))).To(BeTrue())
		})

		It("ignores the time-of-day of the reference instant", func() {
			m := &Memory{
				Target:  OngoingDate(),
				Expires: date(2026, 2, 22),
			}
			lateBoundary := time.Date(2026, 2, 22, 23, 59, 0, 0, time.UTC)
			Expect(m.IsExpired(lateBoundary)).To(BeFalse())
		})
	})

	Describe("ToMap", func() {
		It("serializes all fields with ISO dates", func() {
			m := &Memory{
				Target:  OnDate(date(2026, 3, 15)),
				Expires: date(2026, 4, 15),
				Content: "Team standup at 10am.",
				Title:   "Standup",
				Time:    "10:00",
				Place:   "Room A",
				Scope:   UserScope("alice"),
			}
			doc := m.ToMap()
			Expect(doc["target"]).To(Equal("2026-03-15"))
			Expect(doc["expires"]).To(Equal("2026-04-15"))
			Expect(doc["content"]).To(Equal("Team standup at 10am."))
			Expect(doc["title"]).To(Equal("Standup"))
			Expect(doc["time"]).To(Equal("10:00"))
			Expect(doc["place"]).To(Equal("Room A"))
			Expect(doc["user_id"]).To(Equal("alice"))
			Expect(doc["page_id"]).To(BeNil())
			Expect(doc["attachments"]).To(BeNil())
		})

		It("serializes an ongoing target as explicit null", func() {
			m := &Memory{Target: OngoingDate(), Expires: date(2026, 2, 22), Content: "Weekly."}
			Expect(m.ToMap()["target"]).To(BeNil())
		})
	})

	Describe("FromMap", func() {
		It("parses a document mapping", func() {
			m, err := FromMap(map[string]any{
				"target":      "2026-03-15",
				"expires":     "2026-04-15",
				"content":     "Team standup.",
				"title":       "Standup",
				"time":        "10:00",
				"place":       "Room A",
				"user_id":     "alice",
				"attachments": []any{"https://example.com/a.pdf"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Target).To(Equal(OnDate(date(2026, 3, 15))))
			Expect(m.Expires).To(Equal(date(2026, 4, 15)))
			Expect(m.Title).To(Equal("Standup"))
			Expect(m.Scope).To(Equal(UserScope("alice")))
			Expect(m.Attachments).To(Equal([]string{"https://example.com/a.pdf"}))
		})

		It("defaults optional fields", func() {
			m, err := FromMap(map[string]any{"expires": "2026-04-15", "content": "Minimal."})
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Target.IsOngoing()).To(BeTrue())
			Expect(m.Title).To(BeEmpty())
			Expect(m.Attachments).To(BeNil())
		})

		It("rejects a missing expires field", func() {
			_, err := FromMap(map[string]any{"content": "No expiry."})
			Expect(err).To(HaveOccurred())
		})

		It("rejects a malformed date", func() {
			_, err := FromMap(map[string]any{"expires": "soonish", "content": "Bad."})
			Expect(err).To(HaveOccurred())
		})

		It("round-trips exactly", func() {
			m := &Memory{
				Target:      OnDate(date(2026, 3, 15)),
				Expires:     date(2026, 4, 15),
				Content:     "Event.",
				Title:       "Roundtrip",
				Time:        "14:00",
				Place:       "Park",
				Attachments: []string{"https://example.com/x.png"},
				Scope:       PageScope("cambridge"),
			}
			restored, err := FromMap(m.ToMap())
			Expect(err).NotTo(HaveOccurred())
			Expect(restored).To(Equal(m))
		})

		It("round-trips an ongoing untitled memory exactly", func() {
			m := &Memory{
				Target:  OngoingDate(),
				Expires: date(2026, 2, 22),
				Content: "Weekly.",
				Scope:   UserScope("bob"),
			}
			restored, err := FromMap(m.ToMap())
			Expect(err).NotTo(HaveOccurred())
			Expect(restored).To(Equal(m))
		})
	})

	Describe("document form", func() {
		It("round-trips through the markdown document form", func() {
			m := &Memory{
				Target:      OnDate(date(2026, 3, 1)),
				Expires:     date(2026, 4, 1),
				Content:     "Team sync\n\nBring notes.",
				Title:       "Standup",
				Time:        "10:00",
				Place:       "Room A",
				Attachments: []string{"https://example.com/agenda.pdf"},
				Scope:       PageScope("cambridge"),
			}
			data, err := m.MarshalDocument()
			Expect(err).NotTo(HaveOccurred())

			restored, err := UnmarshalDocument(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(restored).To(Equal(m))
		})

		It("omits the target key for ongoing memories", func() {
			m := &Memory{Target: OngoingDate(), Expires: date(2026, 2, 22), Content: "Weekly."}
			data, err := m.MarshalDocument()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).NotTo(ContainSubstring("target"))

			restored, err := UnmarshalDocument(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(restored.Target.IsOngoing()).To(BeTrue())
		})

		It("rejects input without frontmatter", func() {
			_, err := UnmarshalDocument([]byte("just some text"))
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("NextSunday", func() {
	It("maps a Wednesday to the coming Sunday", func() {
		Expect(NextSunday(date(2026, 2, 18))).To(Equal(date(2026, 2, 22)))
	})

	It("is a fixed point on Sundays", func() {
		Expect(NextSunday(date(2026, 2, 22))).To(Equal(date(2026, 2, 22)))
	})

	It("maps a Monday to the coming Sunday", func() {
		Expect(NextSunday(date(2026, 2, 16))).To(Equal(date(2026, 2, 22)))
	})
})

var _ = Describe("EventDate", func() {
	It("renders a fixed date as ISO", func() {
		Expect(OnDate(date(2026, 3, 5)).String()).To(Equal("2026-03-05"))
	})

	It("renders the ongoing marker", func() {
		Expect(OngoingDate().String()).To(Equal("ongoing"))
	})

	It("exposes the date only when fixed", func() {
		d, ok := OnDate(date(2026, 3, 5)).Date()
		Expect(ok).To(BeTrue())
		Expect(d).To(Equal(date(2026, 3, 5)))

		_, ok = OngoingDate().Date()
		Expect(ok).To(BeFalse())
	})
})
