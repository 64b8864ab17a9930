// Package substitute implements the two text substitution grammars applied
// to template files: {{field}} variable tokens resolved against a row, and
// [[a|b|c]] spans resolved to one randomly chosen alternative.
package substitute

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/siteforge/pkg/logging"
	"github.com/arthur-debert/siteforge/pkg/rowsource"
)

var (
	// {{ field }} with a bareword identifier, optional inner whitespace.
	varPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

	// Shortest span between [[ and ]]. Non-greedy, so nested-looking spans
	// resolve at the first closing bracket.
	selPattern = regexp.MustCompile(`\[\[(.*?)\]\]`)
)

// Rand supplies the selection randomness. Injected so tests can seed it.
type Rand interface {
	Intn(n int) int
}

// lockedRand makes a math/rand source safe to share between concurrently
// running rows.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// NewLockedRand returns a goroutine-safe Rand seeded with seed.
func NewLockedRand(seed int64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// Engine applies both substitution grammars to text.
type Engine struct {
	rng    Rand
	logger zerolog.Logger
}

// New creates an Engine using rng for selection substitution. A nil rng gets
// a time-seeded locked source.
func New(rng Rand) *Engine {
	if rng == nil {
		rng = NewLockedRand(time.Now().UnixNano())
	}
	return &Engine{
		rng:    rng,
		logger: logging.GetLogger("substitute"),
	}
}

// span is a half-open range of bytes in the variable pass output that came
// from a substituted value rather than the source text.
type span struct {
	start, end int
}

// overlaps reports whether s intersects any of the produced ranges.
func overlaps(produced []span, s span) bool {
	for _, p := range produced {
		if p.start < s.end && s.start < p.end {
			return true
		}
	}
	return false
}

// Apply runs the variable pass and then the selection pass. When codeLike is
// true, substituted values are escaped so they cannot break out of a string
// literal in the target source file. Text produced by a variable replacement
// is never re-scanned: a selection span only resolves when both its
// delimiters come from the source text. Malformed tokens are left as literal
// text; Apply never fails.
func (e *Engine) Apply(text string, row rowsource.Row, codeLike bool) string {
	out, produced := e.applyVariables(text, row, codeLike)
	return e.applySelections(out, produced)
}

// applyVariables replaces every {{field}} token whose identifier names a
// known row field, recording the output ranges covered by substituted
// values. Unknown identifiers pass through unchanged so braces used for
// unrelated syntax survive, as long as they don't collide with a field name.
func (e *Engine) applyVariables(text string, row rowsource.Row, codeLike bool) (string, []span) {
	matches := varPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var b strings.Builder
	var produced []span
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		ident := text[m[2]:m[3]]

		value, ok := row[ident]
		if !ok {
			e.logger.Warn().Str("token", text[start:end]).Msg("unknown field in variable token, leaving unchanged")
			continue
		}
		if codeLike {
			value = escapeForCode(value)
		}

		b.WriteString(text[last:start])
		produced = append(produced, span{b.Len(), b.Len() + len(value)})
		b.WriteString(value)
		last = end
	}
	b.WriteString(text[last:])

	return b.String(), produced
}

// applySelections replaces every [[a|b]] span with one alternative chosen
// uniformly at random. Alternatives are trimmed; empty ones are discarded.
// A span with no usable alternatives stays verbatim, as does any span whose
// [[ or ]] delimiter lies inside a substituted value: that text is data, not
// grammar.
func (e *Engine) applySelections(text string, produced []span) string {
	matches := selPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if overlaps(produced, span{start, start + 2}) || overlaps(produced, span{end - 2, end}) {
			continue
		}

		var alternatives []string
		for _, alt := range strings.Split(text[m[2]:m[3]], "|") {
			if trimmed := strings.TrimSpace(alt); trimmed != "" {
				alternatives = append(alternatives, trimmed)
			}
		}
		if len(alternatives) == 0 {
			e.logger.Warn().Str("span", text[start:end]).Msg("selection span has no non-empty alternatives, leaving unchanged")
			continue
		}

		b.WriteString(text[last:start])
		b.WriteString(alternatives[e.rng.Intn(len(alternatives))])
		last = end
	}
	b.WriteString(text[last:])

	return b.String()
}

// escapeForCode sanitizes a value for insertion inside a string literal in
// script source: backslashes, quotes and line breaks must not terminate the
// literal.
func escapeForCode(value string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		`'`, `\'`,
		"`", "\\`",
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return replacer.Replace(value)
}
