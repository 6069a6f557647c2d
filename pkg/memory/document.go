package memory

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// frontmatterDelim separates TOML metadata from the markdown body in the
// document form.
const frontmatterDelim = "+++"

// docMeta is the frontmatter layout of the document form. An ongoing target
// is represented by omitting the key entirely.
type docMeta struct {
	Target      string   `toml:"target,omitempty"`
	Expires     string   `toml:"expires"`
	Title       string   `toml:"title,omitempty"`
	Time        string   `toml:"time,omitempty"`
	Place       string   `toml:"place,omitempty"`
	Attachments []string `toml:"attachments,omitempty"`
	UserID      string   `toml:"user_id,omitempty"`
	PageID      string   `toml:"page_id,omitempty"`
}

// MarshalDocument renders the memory as a markdown document with TOML
// frontmatter. The body is the memory content verbatim.
func (m *Memory) MarshalDocument() ([]byte, error) {
	meta := docMeta{
		Expires:     FormatDate(m.Expires),
		Title:       m.Title,
		Time:        m.Time,
		Place:       m.Place,
		Attachments: m.Attachments,
	}
	if d, ok := m.Target.Date(); ok {
		meta.Target = FormatDate(d)
	}
	switch m.Scope.Kind {
	case ScopeUser:
		meta.UserID = m.Scope.ID
	case ScopePage:
		meta.PageID = m.Scope.ID
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterDelim + "\n")
	if err := toml.NewEncoder(&buf).Encode(meta); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	buf.WriteString(frontmatterDelim + "\n")
	buf.WriteString(m.Content)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// UnmarshalDocument parses the document form produced by MarshalDocument.
func UnmarshalDocument(data []byte) (*Memory, error) {
	text := string(data)
	if !strings.HasPrefix(text, frontmatterDelim+"\n") {
		return nil, fmt.Errorf("missing frontmatter delimiter")
	}
	rest := text[len(frontmatterDelim)+1:]
	end := strings.Index(rest, frontmatterDelim+"\n")
	if end < 0 {
		return nil, fmt.Errorf("unterminated frontmatter")
	}

	var meta docMeta
	if err := toml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return nil, fmt.Errorf("decoding frontmatter: %w", err)
	}

	body := rest[end+len(frontmatterDelim)+1:]
	body = strings.TrimSuffix(body, "\n")

	m := &Memory{
		Content:     body,
		Title:       meta.Title,
		Time:        meta.Time,
		Place:       meta.Place,
		Attachments: meta.Attachments,
	}

	if meta.Target == "" {
		m.Target = OngoingDate()
	} else {
		d, err := ParseDate(meta.Target)
		if err != nil {
			return nil, fmt.Errorf("target: %w", err)
		}
		m.Target = OnDate(d)
	}

	expires, err := ParseDate(meta.Expires)
	if err != nil {
		return nil, fmt.Errorf("expires: %w", err)
	}
	m.Expires = expires

	switch {
	case meta.PageID != "":
		m.Scope = PageScope(meta.PageID)
	case meta.UserID != "":
		m.Scope = UserScope(meta.UserID)
	}

	return m, nil
}
