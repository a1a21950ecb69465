package directive

import (
	"fmt"
	"regexp"
	"strings"

	"codeloop/internal/logging"
)

// Non-greedy body match: the first </tool> closes the region. Attributes
// are double-quoted; path is optional.
var (
	toolRe    = regexp.MustCompile(`(?s)<tool\s+code="([^"]*)"(?:\s+path="([^"]*)")?\s*>(.*?)</tool>`)
	searchRe  = regexp.MustCompile(`(?s)<search>(.*?)</search>`)
	replaceRe = regexp.MustCompile(`(?s)<replace>(.*?)</replace>`)
)

// Parse extracts every directive from the model's reply in document order
// and returns the narrative text with all directive regions removed.
// A reply with no directives returns the input unchanged.
func Parse(text string) ([]Directive, string) {
	matches := toolRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil, text
	}

	directives := make([]Directive, 0, len(matches))
	var narrative strings.Builder
	last := 0

	for _, m := range matches {
		start, end := m[0], m[1]
		kind := Kind(text[m[2]:m[3]])

		path := ""
		if m[4] >= 0 {
			path = text[m[4]:m[5]]
		}

		body := text[m[6]:m[7]]

		narrative.WriteString(text[last:start])
		last = end

		if !kind.Known() {
			logging.ParserDebug("skipping unknown directive kind %q", kind)
		}

		directives = append(directives, Directive{
			Kind: kind,
			Path: path,
			Body: body,
		})
	}
	narrative.WriteString(text[last:])

	logging.ParserDebug("parsed %d directive(s) from %d byte reply", len(directives), len(text))
	return directives, narrative.String()
}

// ReplacePair extracts the nested search/replace regions of a
// replace_lines body. Both regions are required.
func (d Directive) ReplacePair() (search, replace string, err error) {
	sm := searchRe.FindStringSubmatch(d.Body)
	if sm == nil {
		return "", "", fmt.Errorf("%w: replace_lines body missing <search> region", ErrMalformed)
	}
	rm := replaceRe.FindStringSubmatch(d.Body)
	if rm == nil {
		return "", "", fmt.Errorf("%w: replace_lines body missing <replace> region", ErrMalformed)
	}
	return sm[1], rm[1], nil
}

// Validate checks structural requirements that do not depend on the
// workspace: a path where the kind needs one, and well-formed nested
// regions for replace_lines.
func (d Directive) Validate() error {
	if d.Kind.RequiresPath() && d.Path == "" {
		return fmt.Errorf("%w: %s requires a path attribute", ErrMalformed, d.Kind)
	}
	if d.Kind == KindReplaceLines {
		if _, _, err := d.ReplacePair(); err != nil {
			return err
		}
	}
	return nil
}
