// Package memory defines the memory record at the heart of the memoir
// ledger: one event or ongoing reminder, extracted from a free-form user
// message, grouped under a scope, and pruned once its expiry date passes.
package memory

import (
	"fmt"
	"time"
)

// ScopeKind selects the partition a memory belongs to.
type ScopeKind string

const (
	// ScopeUser partitions memories per user.
	ScopeUser ScopeKind = "user"

	// ScopePage partitions memories per shared page.
	ScopePage ScopeKind = "page"
)

// Scope is the partition key under which memories are grouped and queried.
// Exactly one kind is active per record; queries never cross scopes.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// UserScope returns a user-partition scope.
func UserScope(uid string) Scope {
	return Scope{Kind: ScopeUser, ID: uid}
}

// PageScope returns a page-partition scope.
func PageScope(slug string) Scope {
	return Scope{Kind: ScopePage, ID: slug}
}

// Memory is a single event or ongoing-reminder record.
//
// Target is the date the event occurs; an ongoing Target means the record has
// no fixed occurrence date. Expires is the date after which the record is
// eligible for deletion and is always set — ongoing records still expire.
type Memory struct {
	Target  EventDate
	Expires time.Time

	// Content is the markdown event description.
	Content string

	// Title is an optional short label. It may contain one markdown
	// hyperlink; empty means untitled.
	Title string

	// Time and Place are uninterpreted descriptive strings.
	Time  string
	Place string

	// Attachments are URLs of previously uploaded files, in upload order.
	// nil when the record has none.
	Attachments []string

	Scope Scope
}

// IsExpired reports whether the memory has passed its expiry date relative
// to ref. The boundary day is still valid: ref == Expires is not expired.
func (m *Memory) IsExpired(ref time.Time) bool {
	return Truncate(ref).After(Truncate(m.Expires))
}

// ToMap serializes the memory to a flat field mapping for document storage.
// Dates serialize as ISO-8601 strings; an ongoing Target serializes as an
// explicit null, never an empty string.
func (m *Memory) ToMap() map[string]any {
	doc := map[string]any{
		"target":      nil,
		"expires":     FormatDate(m.Expires),
		"content":     m.Content,
		"title":       nil,
		"time":        nil,
		"place":       nil,
		"attachments": nil,
		"user_id":     nil,
		"page_id":     nil,
	}
	if d, ok := m.Target.Date(); ok {
		doc["target"] = FormatDate(d)
	}
	if m.Title != "" {
		doc["title"] = m.Title
	}
	if m.Time != "" {
		doc["time"] = m.Time
	}
	if m.Place != "" {
		doc["place"] = m.Place
	}
	if len(m.Attachments) > 0 {
		urls := make([]string, len(m.Attachments))
		copy(urls, m.Attachments)
		doc["attachments"] = urls
	}
	switch m.Scope.Kind {
	case ScopeUser:
		doc["user_id"] = m.Scope.ID
	case ScopePage:
		doc["page_id"] = m.Scope.ID
	}
	return doc
}

// FromMap deserializes a memory from its flat field mapping.
// It is the exact inverse of ToMap for every valid memory.
func FromMap(doc map[string]any) (*Memory, error) {
	m := &Memory{}

	if raw, ok := stringField(doc, "target"); ok {
		d, err := ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("target: %w", err)
		}
		m.Target = OnDate(d)
	} else {
		m.Target = OngoingDate()
	}

	raw, ok := stringField(doc, "expires")
	if !ok {
		return nil, fmt.Errorf("missing expires field")
	}
	expires, err := ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("expires: %w", err)
	}
	m.Expires = expires

	m.Content, _ = stringField(doc, "content")
	m.Title, _ = stringField(doc, "title")
	m.Time, _ = stringField(doc, "time")
	m.Place, _ = stringField(doc, "place")

	if urls := stringSliceField(doc, "attachments"); len(urls) > 0 {
		m.Attachments = urls
	}

	if pageID, ok := stringField(doc, "page_id"); ok {
		m.Scope = PageScope(pageID)
	} else if uid, ok := stringField(doc, "user_id"); ok {
		m.Scope = UserScope(uid)
	}

	return m, nil
}

func stringField(doc map[string]any, key string) (string, bool) {
	v, ok := doc[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func stringSliceField(doc map[string]any, key string) []string {
	switch v := doc[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
