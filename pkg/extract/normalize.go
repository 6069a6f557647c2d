package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/memoirhq/memoir/pkg/memory"
)

// Extraction is the normalized, validated form of a RawResult: sentinels
// resolved, dates parsed, user URLs applied, defaults filled in.
type Extraction struct {
	Action      Action
	UpdateTitle string
	Target      memory.EventDate
	Expires     time.Time
	Title       string
	Slug        string
	Time        string
	Place       string
	Content     string
	Attachments []string
}

// dateSentinels are string values extraction models emit in place of a true
// null. All sentinel recognition lives here.
var dateSentinels = map[string]bool{
	"":          true,
	"ongoing":   true,
	"recurring": true,
	"none":      true,
	"null":      true,
}

// normalizeDate resolves a raw date string into the {Date | Ongoing} sum
// type. Sentinel values (case-insensitive) mean absent; anything else must
// parse as an ISO date or the whole extraction is invalid.
func normalizeDate(field, raw string) (memory.EventDate, error) {
	if dateSentinels[strings.ToLower(strings.TrimSpace(raw))] {
		return memory.OngoingDate(), nil
	}
	d, err := memory.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return memory.EventDate{}, fmt.Errorf("%w: %s: %v", ErrInvalidResult, field, err)
	}
	return memory.OnDate(d), nil
}

// Normalize validates a raw extraction result against the reference date and
// reconciles it with the URLs found in the user's original message.
//
// An absent expires defaults to the coming Sunday on or after ref. Malformed
// dates are hard failures, never coerced.
func Normalize(raw *RawResult, ref time.Time, userURLs []string) (*Extraction, error) {
	target, err := normalizeDate("target", raw.Target)
	if err != nil {
		return nil, err
	}

	expiresDate, err := normalizeDate("expires", raw.Expires)
	if err != nil {
		return nil, err
	}
	expires, ok := expiresDate.Date()
	if !ok {
		expires = memory.NextSunday(ref)
	}

	title, content := ApplyUserURLs(raw.Title, raw.Content, userURLs)

	ex := &Extraction{
		Action:      Action(raw.Action),
		UpdateTitle: raw.UpdateTitle,
		Target:      target,
		Expires:     expires,
		Title:       title,
		Slug:        raw.Slug,
		Time:        raw.Time,
		Place:       raw.Place,
		Content:     content,
	}

	if len(raw.Attachments) > 0 {
		ex.Attachments = raw.Attachments
	}

	return ex, nil
}
