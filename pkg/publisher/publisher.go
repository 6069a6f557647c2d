// Package publisher renders a scope's live memories into the weekly digest
// page: events through the coming Sunday under This Week, later events under
// Upcoming. Ongoing reminders have no date and list under This Week.
package publisher

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/memoirhq/memoir/pkg/memory"
	"github.com/memoirhq/memoir/pkg/storage"
)

// Entry is one rendered digest item.
type Entry struct {
	Title   string
	Date    string
	Time    string
	Place   string
	Content string
	Ongoing bool
}

// Digest is the data the template renders.
type Digest struct {
	PageTitle string
	Ref       string
	ThisWeek  []Entry
	Upcoming  []Entry
}

// Renderer renders digests from a parsed template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer creates a digest renderer.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("digest").Parse(digestTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse digest template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render produces the digest HTML for a set of live records as of ref.
func (r *Renderer) Render(pageTitle string, records []storage.Record, ref time.Time) ([]byte, error) {
	ref = memory.Truncate(ref)
	digest := Build(pageTitle, records, ref)

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, digest); err != nil {
		return nil, fmt.Errorf("render digest: %w", err)
	}
	return buf.Bytes(), nil
}

// Build splits records into the digest sections. Ongoing reminders and
// events dated through the coming Sunday go under This Week; everything
// later goes under Upcoming.
func Build(pageTitle string, records []storage.Record, ref time.Time) Digest {
	cutoff := memory.NextSunday(ref)

	digest := Digest{
		PageTitle: pageTitle,
		Ref:       memory.FormatDate(ref),
	}

	for _, rec := range records {
		entry := toEntry(rec.Memory)
		date, ok := rec.Memory.Target.Date()
		if !ok || !date.After(cutoff) {
			digest.ThisWeek = append(digest.ThisWeek, entry)
		} else {
			digest.Upcoming = append(digest.Upcoming, entry)
		}
	}

	sortEntries(digest.ThisWeek)
	sortEntries(digest.Upcoming)
	return digest
}

func toEntry(m *memory.Memory) Entry {
	entry := Entry{
		Title:   m.Title,
		Time:    m.Time,
		Place:   m.Place,
		Content: m.Content,
	}
	if date, ok := m.Target.Date(); ok {
		entry.Date = memory.FormatDate(date)
	} else {
		entry.Ongoing = true
	}
	return entry
}

// sortEntries orders ongoing reminders first, then by date, then by title.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Ongoing != entries[j].Ongoing {
			return entries[i].Ongoing
		}
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return entries[i].Title < entries[j].Title
	})
}

const digestTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.PageTitle}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 42rem; margin: 2rem auto; padding: 0 1rem; color: #1a1a1a; }
h1 { font-size: 1.5rem; }
h2 { font-size: 1.1rem; border-bottom: 1px solid #ddd; padding-bottom: .25rem; margin-top: 2rem; }
article { margin: 1rem 0; }
.meta { color: #666; font-size: .9rem; }
.content { white-space: pre-wrap; }
.empty { color: #999; font-style: italic; }
</style>
</head>
<body>
<h1>{{.PageTitle}}</h1>
<p class="meta">As of {{.Ref}}</p>

<h2>This Week</h2>
{{if .ThisWeek}}{{range .ThisWeek}}<article>
{{if .Title}}<h3>{{.Title}}</h3>{{end}}
<p class="meta">{{if .Ongoing}}Ongoing{{else}}{{.Date}}{{end}}{{if .Time}} &middot; {{.Time}}{{end}}{{if .Place}} &middot; {{.Place}}{{end}}</p>
<p class="content">{{.Content}}</p>
</article>
{{end}}{{else}}<p class="empty">Nothing this week.</p>
{{end}}
<h2>Upcoming</h2>
{{if .Upcoming}}{{range .Upcoming}}<article>
{{if .Title}}<h3>{{.Title}}</h3>{{end}}
<p class="meta">{{.Date}}{{if .Time}} &middot; {{.Time}}{{end}}{{if .Place}} &middot; {{.Place}}{{end}}</p>
<p class="content">{{.Content}}</p>
</article>
{{end}}{{else}}<p class="empty">Nothing scheduled yet.</p>
{{end}}</body>
</html>
`
