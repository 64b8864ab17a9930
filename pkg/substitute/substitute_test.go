package substitute_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/siteforge/pkg/rowsource"
	"github.com/arthur-debert/siteforge/pkg/substitute"
)

func testRow() rowsource.Row {
	return rowsource.Row{
		"domain":      "a.test",
		"title":       "A",
		"description": "d",
		"phone":       "1",
		"address":     "x",
	}
}

func TestApply_Variables(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		codeLike bool
		row      rowsource.Row
		expected string
	}{
		{
			name:     "known field replaced",
			text:     "Hello {{title}}!",
			row:      testRow(),
			expected: "Hello A!",
		},
		{
			name:     "whitespace inside braces",
			text:     "Call {{ phone }} now",
			row:      testRow(),
			expected: "Call 1 now",
		},
		{
			name:     "unknown field left unchanged",
			text:     "Hello {{missing}}!",
			row:      testRow(),
			expected: "Hello {{missing}}!",
		},
		{
			name:     "multiple occurrences all replaced",
			text:     "{{title}} and {{title}} again",
			row:      testRow(),
			expected: "A and A again",
		},
		{
			name:     "unterminated token is inert",
			text:     "broken {{title",
			row:      testRow(),
			expected: "broken {{title",
		},
		{
			name:     "braces with non-identifier content pass through",
			text:     "css { color: red; } and {{ not-an-ident }}",
			row:      testRow(),
			expected: "css { color: red; } and {{ not-an-ident }}",
		},
		{
			name:     "code-like escapes quotes in value",
			text:     `const t = '{{title}}';`,
			codeLike: true,
			row:      rowsource.Row{"title": `Bob's "Best" Shop`},
			expected: `const t = 'Bob\'s \"Best\" Shop';`,
		},
		{
			name:     "code-like escapes newlines and backslashes",
			text:     `const a = "{{address}}";`,
			codeLike: true,
			row:      rowsource.Row{"address": "line1\nline2\\end"},
			expected: `const a = "line1\nline2\\end";`,
		},
		{
			name:     "markup keeps value literal",
			text:     `<p>{{title}}</p>`,
			codeLike: false,
			row:      rowsource.Row{"title": `Bob's "Best"`},
			expected: `<p>Bob's "Best"</p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := substitute.New(substitute.NewLockedRand(1))
			result := engine.Apply(tt.text, tt.row, tt.codeLike)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestApply_Selections(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		allowed []string
	}{
		{
			name:    "single alternative",
			text:    "[[hello]]",
			allowed: []string{"hello"},
		},
		{
			name:    "one of two",
			text:    "[[Hi|Yo]]",
			allowed: []string{"Hi", "Yo"},
		},
		{
			name:    "alternatives are trimmed",
			text:    "[[ spaced | out ]]",
			allowed: []string{"spaced", "out"},
		},
		{
			name:    "empty alternatives discarded",
			text:    "[[|keep||]]",
			allowed: []string{"keep"},
		},
		{
			name:    "all-empty span left verbatim",
			text:    "[[ | | ]]",
			allowed: []string{"[[ | | ]]"},
		},
		{
			name:    "unterminated span is inert",
			text:    "[[never closed",
			allowed: []string{"[[never closed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := substitute.New(substitute.NewLockedRand(42))
			result := engine.Apply(tt.text, testRow(), false)
			assert.Contains(t, tt.allowed, result)
		})
	}
}

func TestApply_SelectionUniformity(t *testing.T) {
	engine := substitute.New(substitute.NewLockedRand(7))
	seen := make(map[string]int)

	for i := 0; i < 500; i++ {
		result := engine.Apply("[[a|b|c]]", testRow(), false)
		require.Contains(t, []string{"a", "b", "c"}, result)
		seen[result]++
	}

	// Over a large sample every alternative is selected, not just the edges.
	assert.Len(t, seen, 3)
	for alt, count := range seen {
		assert.Greater(t, count, 0, "alternative %q never selected", alt)
	}
}

func TestApply_IndependentSpans(t *testing.T) {
	engine := substitute.New(substitute.NewLockedRand(3))
	result := engine.Apply("[[a|b]]-[[c|d]]", testRow(), false)

	parts := strings.SplitN(result, "-", 2)
	require.Len(t, parts, 2)
	assert.Contains(t, []string{"a", "b"}, parts[0])
	assert.Contains(t, []string{"c", "d"}, parts[1])
}

func TestApply_NonGreedySpans(t *testing.T) {
	engine := substitute.New(substitute.NewLockedRand(5))

	// The span closes at the first ]]; the trailing bracket text stays.
	result := engine.Apply("[[a|b]] trailing ]]", testRow(), false)
	assert.Contains(t, []string{"a trailing ]]", "b trailing ]]"}, result)
}

func TestApply_NoRecursion(t *testing.T) {
	engine := substitute.New(substitute.NewLockedRand(9))

	// A substituted value containing token syntax is never re-scanned.
	row := rowsource.Row{"title": "{{phone}}", "phone": "1"}
	result := engine.Apply("{{title}}", row, false)
	assert.Equal(t, "{{phone}}", result)
}

func TestApply_NoCrossPassRecursion(t *testing.T) {
	engine := substitute.New(substitute.NewLockedRand(9))

	t.Run("selection syntax in a value stays literal", func(t *testing.T) {
		row := rowsource.Row{"title": "[[Hi|Yo]]"}
		result := engine.Apply("{{title}}", row, false)
		assert.Equal(t, "[[Hi|Yo]]", result)
	})

	t.Run("source spans still resolve next to a protected value", func(t *testing.T) {
		row := rowsource.Row{"title": "[[Hi|Yo]]"}
		result := engine.Apply("{{title}} [[a|b]]", row, false)
		assert.Contains(t, []string{"[[Hi|Yo]] a", "[[Hi|Yo]] b"}, result)
	})

	t.Run("value cannot smuggle a closing delimiter", func(t *testing.T) {
		row := rowsource.Row{"title": "Hi]]"}
		result := engine.Apply("[[a|{{title}}", row, false)
		assert.Equal(t, "[[a|Hi]]", result)
	})

	t.Run("substituted value inside a source span is selectable data", func(t *testing.T) {
		row := rowsource.Row{"title": "A"}
		result := engine.Apply("[[{{title}}|z]]", row, false)
		assert.Contains(t, []string{"A", "z"}, result)
	})
}

func TestApply_EndToEndScenario(t *testing.T) {
	engine := substitute.New(substitute.NewLockedRand(11))
	row := testRow()

	for i := 0; i < 50; i++ {
		result := engine.Apply("Hello {{title}}, [[Hi|Yo]]! {{missing}}", row, false)
		assert.Contains(t, []string{
			"Hello A, Hi! {{missing}}",
			"Hello A, Yo! {{missing}}",
		}, result)
	}
}
