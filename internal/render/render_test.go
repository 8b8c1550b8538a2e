package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentmail/internal/render"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		ctx      map[string]string
		expected string
	}{
		{
			name:     "substitutes placeholder",
			pattern:  "Hello {{candidate_fullname}}",
			ctx:      map[string]string{"candidate_fullname": "Jane Doe"},
			expected: "Hello Jane Doe",
		},
		{
			name:     "missing placeholder renders empty",
			pattern:  "Position: {{vacancy_title}}!",
			ctx:      map[string]string{},
			expected: "Position: !",
		},
		{
			name:     "extra context keys are ignored",
			pattern:  "Hi {{candidate_firstname}}",
			ctx:      map[string]string{"candidate_firstname": "Jane", "unused": "x"},
			expected: "Hi Jane",
		},
		{
			name:     "placeholders with surrounding spaces",
			pattern:  "Hi {{ candidate_firstname }}",
			ctx:      map[string]string{"candidate_firstname": "Jane"},
			expected: "Hi Jane",
		},
		{
			name:     "pattern markup is preserved",
			pattern:  "<p>Dear {{candidate_fullname}},</p>",
			ctx:      map[string]string{"candidate_fullname": "Jane Doe"},
			expected: "<p>Dear Jane Doe,</p>",
		},
		{
			name:     "substituted values are escaped",
			pattern:  "Team: {{vacancy_title}}",
			ctx:      map[string]string{"vacancy_title": "R&D"},
			expected: "Team: R&amp;D",
		},
		{
			name:     "no placeholders at all",
			pattern:  "Plain subject line",
			ctx:      map[string]string{"candidate_fullname": "Jane Doe"},
			expected: "Plain subject line",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := render.Render(tt.pattern, tt.ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRenderIsPure(t *testing.T) {
	t.Parallel()

	pattern := "Hello {{candidate_fullname}}, re {{vacancy_title}}"
	ctx := map[string]string{
		"candidate_fullname": "Jane Doe",
		"vacancy_title":      "Go Developer",
	}

	first, err := render.Render(pattern, ctx)
	require.NoError(t, err)
	second, err := render.Render(pattern, ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStripTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "paragraph boundary keeps words apart",
			input:    "<p>Hello</p><p>World</p>",
			expected: "Hello\nWorld",
		},
		{
			name:     "inline tags stripped in place",
			input:    "Hello <b>Jane</b>!",
			expected: "Hello Jane!",
		},
		{
			name:     "line breaks become newlines",
			input:    "line one<br>line two<br/>line three",
			expected: "line one\nline two\nline three",
		},
		{
			name:     "list items on separate lines",
			input:    "<ul><li>first</li><li>second</li></ul>",
			expected: "first\nsecond",
		},
		{
			name:     "entities decoded",
			input:    "<p>Fish &amp; Chips</p>",
			expected: "Fish & Chips",
		},
		{
			name:     "plain text unchanged",
			input:    "no markup here",
			expected: "no markup here",
		},
		{
			name:     "scripts removed entirely",
			input:    "<p>Hello</p><script>alert('x')</script>",
			expected: "Hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, render.StripTags(tt.input))
		})
	}
}

func TestRenderThenStrip(t *testing.T) {
	t.Parallel()

	ctx := map[string]string{
		"candidate_fullname": "Jane Doe",
		"vacancy_title":      "Go Developer",
	}
	html, err := render.Render(
		"<p>Dear {{candidate_fullname}},</p><p>We have an opening for {{vacancy_title}}.</p>",
		ctx,
	)
	require.NoError(t, err)

	assert.Equal(t, "Dear Jane Doe,\nWe have an opening for Go Developer.", render.StripTags(html))
}
