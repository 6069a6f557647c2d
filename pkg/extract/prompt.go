package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/memoirhq/memoir/pkg/memory"
	"github.com/memoirhq/memoir/pkg/storage"
)

// BuildPrompt assembles the deterministic instruction payload for the
// extraction model: reference date, a compact summary of the scope's live
// memories, the verbatim user message, any uploaded attachment URLs, and the
// response contract. Pure string building; no I/O.
func BuildPrompt(message string, live []storage.Record, ref time.Time, attachmentURLs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Today's date is %s.\n\n", memory.FormatDate(ref))

	b.WriteString("You maintain a living memory of events. Current memories:\n")
	if len(live) == 0 {
		b.WriteString("(none)\n")
	} else {
		for _, rec := range live {
			b.WriteString(summarize(rec.Memory))
			b.WriteString("\n")
		}
	}

	b.WriteString("\nUser message:\n")
	b.WriteString(message)
	b.WriteString("\n")

	if len(attachmentURLs) > 0 {
		b.WriteString("\nUploaded attachments for this message:\n")
		for _, url := range attachmentURLs {
			b.WriteString("- " + url + "\n")
		}
	}

	b.WriteString(promptContract)

	return b.String()
}

// summarize renders one live memory as a single line for the prompt.
func summarize(m *memory.Memory) string {
	parts := []string{"- " + m.Target.String()}
	if m.Title != "" {
		parts = append(parts, m.Title)
	}
	if m.Time != "" {
		parts = append(parts, m.Time)
	}
	if m.Place != "" {
		parts = append(parts, m.Place)
	}
	parts = append(parts, "expires "+memory.FormatDate(m.Expires))
	return strings.Join(parts, " | ")
}

const promptContract = `
Decide whether the message describes a new event or an update to one of the
current memories, then respond with ONLY a single JSON object:

{
  "action": "create" or "update",
  "update_title": "exact title of the memory being updated (required when action is update)",
  "target": "event date as YYYY-MM-DD, or null for ongoing reminders with no fixed date",
  "expires": "date after which the memory can be forgotten as YYYY-MM-DD, or null to use the default",
  "title": "short event title, may be omitted",
  "slug": "short ASCII identifier for the event, lowercase words joined by hyphens, regardless of the title's script",
  "time": "time of day as written by the user, or null",
  "place": "location as written by the user, or null",
  "content": "markdown description of the event",
  "attachments": ["uploaded file URLs relevant to this event"] or null
}

Write title and content in the same language as the user message. When
matching against current memories, treat events that are semantically the
same as identical even when written in a different language or script.
`
