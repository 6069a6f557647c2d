package extract

import (
	"regexp"
	"strings"
)

// markdownLink matches a single markdown hyperlink and captures its text and
// URL portions.
var markdownLink = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)

// urlTrailers are characters stripped from the end of a scanned URL; they
// are sentence punctuation or closing delimiters, not part of the link.
const urlTrailers = `.,;:!?'")]>`

// ExtractURLs returns every http(s) URL substring of text, left to right,
// duplicates preserved. The scan runs over the raw text, so URLs written
// inside markdown link syntax are found by the same pass. Scanning does not
// stop at colons after the scheme and keeps raw or percent-encoded non-ASCII
// characters.
func ExtractURLs(text string) []string {
	var urls []string

	for i := 0; i < len(text); {
		rest := text[i:]
		offset := strings.Index(rest, "http://")
		if httpsOffset := strings.Index(rest, "https://"); httpsOffset >= 0 && (offset < 0 || httpsOffset < offset) {
			offset = httpsOffset
		}
		if offset < 0 {
			break
		}

		start := i + offset
		end := start
		for end < len(text) && !isURLBoundary(text[end]) {
			end++
		}

		url := strings.TrimRight(text[start:end], urlTrailers)
		if url != "" {
			urls = append(urls, url)
		}
		i = end
	}

	return urls
}

func isURLBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '<', '>', '"':
		return true
	}
	return false
}

// ApplyUserURLs forces URLs found in the user's raw message to take
// precedence over whatever the extractor produced for title and content.
// It corrects URL identity only; it never invents semantic content.
//
// The title keeps its text: an existing markdown link gets its URL swapped
// for the first user URL, a plain title is wrapped into a link. User URLs
// not already present in the content are appended under a Links section.
func ApplyUserURLs(title, content string, userURLs []string) (string, string) {
	if len(userURLs) == 0 {
		return title, content
	}

	if loc := markdownLink.FindStringSubmatchIndex(title); loc != nil {
		text := title[loc[2]:loc[3]]
		title = title[:loc[0]] + "[" + text + "](" + userURLs[0] + ")" + title[loc[1]:]
	} else if title != "" {
		title = "[" + title + "](" + userURLs[0] + ")"
	}

	var missing []string
	for _, url := range userURLs {
		if !strings.Contains(content, url) {
			missing = append(missing, url)
		}
	}
	if len(missing) > 0 {
		content = strings.TrimRight(content, "\n") + "\n\nLinks:\n" + strings.Join(missing, "\n")
	}

	return title, content
}
