package mapxsd

import (
	"regexp"
	"sort"
	"strings"
)

// Locator maps tags and values back to approximate line numbers in the source
// text. It is a diagnostic aid only: lookups are plain text searches, so a
// repeated tag or value may resolve to an earlier occurrence than intended.
type Locator struct {
	text     string
	newlines []int // byte offsets of every '\n'
}

// NewLocator indexes the line breaks of text
func NewLocator(text string) *Locator {
	l := &Locator{text: text}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			l.newlines = append(l.newlines, i)
		}
	}
	return l
}

// LineAt returns the 1-based line containing a byte offset
func (l *Locator) LineAt(offset int) int {
	return sort.SearchInts(l.newlines, offset) + 1
}

// lineStart returns the byte offset where a 1-based line begins
func (l *Locator) lineStart(line int) int {
	if line <= 1 || len(l.newlines) == 0 {
		return 0
	}
	if line-2 >= len(l.newlines) {
		return len(l.text)
	}
	return l.newlines[line-2] + 1
}

// TagLine returns the line of the occurrence-th (0-based) opening tag with the
// given local name, or 0 when there is no such tag. Tags written with a
// namespace prefix (<m:LAYER>) count as well.
func (l *Locator) TagLine(tag string, occurrence int) int {
	if tag == "" || occurrence < 0 {
		return 0
	}
	re := regexp.MustCompile(`<(?:[A-Za-z_][-A-Za-z0-9_.]*:)?` + regexp.QuoteMeta(tag) + `(?:[\s/>]|$)`)
	matches := re.FindAllStringIndex(l.text, occurrence+1)
	if len(matches) <= occurrence {
		return 0
	}
	return l.LineAt(matches[occurrence][0])
}

// ValueLine returns the line of the first occurrence of value at or after
// fromLine, or 0 when it does not appear.
func (l *Locator) ValueLine(value string, fromLine int) int {
	if value == "" {
		return 0
	}
	start := l.lineStart(fromLine)
	idx := strings.Index(l.text[start:], value)
	if idx < 0 {
		return 0
	}
	return l.LineAt(start + idx)
}
