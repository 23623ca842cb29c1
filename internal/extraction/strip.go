package extraction

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	blankRuns  = regexp.MustCompile(`[ \t\f\v\r\x{00a0}]+`)
	blankLines = regexp.MustCompile(`\n\s*\n+`)
	markup     = regexp.MustCompile(`<[^<>]*>`)

	angleEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")
)

// Stripper removes residual markup from fetched text
type Stripper struct {
	policy *bluemonday.Policy
}

// NewStripper creates a stripper that drops every tag
func NewStripper() *Stripper {
	return &Stripper{policy: bluemonday.StrictPolicy()}
}

// Strip removes complete tags, decodes entities and collapses whitespace
// while keeping paragraph breaks. A stray < or > is kept as text.
func (s *Stripper) Strip(text string) string {
	text = s.policy.Sanitize(escapeStray(text))
	text = html.UnescapeString(text)
	text = blankRuns.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// escapeStray escapes angle brackets outside complete <...> spans so the
// sanitizer does not read them as the start of a tag
func escapeStray(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range markup.FindAllStringIndex(text, -1) {
		b.WriteString(angleEscaper.Replace(text[last:loc[0]]))
		b.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(angleEscaper.Replace(text[last:]))
	return b.String()
}
