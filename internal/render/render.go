package render

import (
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Template patterns use bare {{keyword}} placeholders, which is how
// recruiters author them. They are rewritten to {{.keyword}} field accesses
// so html/template can execute the pattern against a context map. Anything
// that is not a bare identifier between braces is left untouched.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Render substitutes context values into pattern. It is pure: the same
// pattern and context always produce the same output. Placeholders missing
// from the context render as empty strings (missingkey=zero over a string
// map), and unused context keys are ignored. Substituted values are
// HTML-escaped, the pattern's own markup is not.
func Render(pattern string, ctx map[string]string) (string, error) {
	normalized := placeholderRe.ReplaceAllString(pattern, `{{.$1}}`)

	tmpl, err := template.New("pattern").Option("missingkey=zero").Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("parse template pattern: %w", err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, ctx); err != nil {
		return "", fmt.Errorf("render template pattern: %w", err)
	}
	return b.String(), nil
}

var (
	strictPolicy = bluemonday.StrictPolicy()

	// Tags after which a line break belongs in the plain-text rendering.
	// Without this, "</p><p>" boundaries would glue adjacent words together
	// once the tags are gone.
	blockBoundaryRe = regexp.MustCompile(`(?i)<br\s*/?>|</(?:p|div|li|ul|ol|tr|table|h[1-6]|blockquote|section|article)>`)

	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// StripTags derives the plain-text alternative part from a rendered HTML
// body. Block-level tag boundaries become newlines before all markup is
// stripped, then entities are decoded back to text.
func StripTags(htmlBody string) string {
	text := blockBoundaryRe.ReplaceAllString(htmlBody, "${0}\n")
	text = strictPolicy.Sanitize(text)
	text = html.UnescapeString(text)
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
