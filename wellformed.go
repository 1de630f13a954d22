package mapxsd

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Comments, CDATA sections and processing instructions, matched left to right
	// so that one kind of span never starts inside another
	opaqueSpan = regexp.MustCompile(`(?s)<!--.*?-->|<!\[CDATA\[.*?\]\]>|<\?.*?\?>`)
	// A markup tag: optional slash, name, attributes (quoted values may hold '>'), optional self-close
	tagToken = regexp.MustCompile(`<(/?)([A-Za-z_:][-A-Za-z0-9_.:]*)((?:[^>"']|"[^"]*"|'[^']*')*)>`)
)

type openTag struct {
	name   string
	offset int
}

// CheckWellFormed scans raw document text for tag-balance errors. The XML
// parser may repair mismatched or unclosed tags, so this runs first and any
// diagnostic it returns means structural validation must not proceed.
// Declarations and self-closing tags are ignored; comment, CDATA and
// processing instruction contents never take part in matching.
func CheckWellFormed(text string) []Diagnostic {
	var diags []Diagnostic
	loc := NewLocator(text)
	scan := blankSpans(text, opaqueSpan)

	var stack []openTag
	for _, m := range tagToken.FindAllStringSubmatchIndex(scan, -1) {
		offset := m[0]
		closing := m[3] > m[2]
		name := scan[m[4]:m[5]]
		rest := scan[m[6]:m[7]]

		if closing {
			if len(stack) == 0 {
				d := newDiagnostic(KindStructuralMismatch,
					fmt.Sprintf("closing tag </%s> without matching opening tag", name))
				d.Path = name
				diags = append(diags, d.at(loc.LineAt(offset)))
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.name != name {
				d := newDiagnostic(KindStructuralMismatch,
					fmt.Sprintf("mismatched tags: expected </%s> found </%s>", top.name, name))
				d.Path = name
				diags = append(diags, d.at(loc.LineAt(offset)))
			}
			continue
		}

		if strings.HasSuffix(rest, "/") {
			continue
		}
		stack = append(stack, openTag{name: name, offset: offset})
	}

	for _, open := range stack {
		d := newDiagnostic(KindStructuralMismatch,
			fmt.Sprintf("unclosed tag <%s>", open.name))
		d.Path = open.name
		diags = append(diags, d.at(loc.LineAt(open.offset)))
	}

	return diags
}

// blankSpans replaces every match with spaces, keeping newlines so offsets and
// line numbers in the result still match the original text.
func blankSpans(text string, spans ...*regexp.Regexp) string {
	for _, re := range spans {
		text = re.ReplaceAllStringFunc(text, func(s string) string {
			b := []byte(s)
			for i := range b {
				if b[i] != '\n' {
					b[i] = ' '
				}
			}
			return string(b)
		})
	}
	return text
}
