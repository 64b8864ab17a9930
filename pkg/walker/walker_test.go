package walker_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/siteforge/pkg/rowsource"
	"github.com/arthur-debert/siteforge/pkg/substitute"
	"github.com/arthur-debert/siteforge/pkg/walker"
)

func defaultOptions() walker.Options {
	return walker.Options{
		Include:        []string{"*.html", "*.js", "*.md"},
		ExcludeDirs:    []string{"node_modules", ".git", "dist"},
		CodeExtensions: []string{".js"},
	}
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func testRow() rowsource.Row {
	return rowsource.Row{
		"domain":      "a.test",
		"title":       "A",
		"description": "d",
		"phone":       "1",
		"address":     "x",
	}
}

func TestProcess_RewritesMatchingFiles(t *testing.T) {
	root := t.TempDir()
	index := writeFile(t, root, "index.html", "<h1>{{title}}</h1>")
	nested := writeFile(t, root, "src/pages/about.html", "<p>{{description}}</p>")
	other := writeFile(t, root, "logo.svg", "{{title}}")

	w := walker.New(substitute.New(substitute.NewLockedRand(1)), defaultOptions())
	count, err := w.Process(root, testRow())
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	assert.Equal(t, "<h1>A</h1>", readFile(t, index))
	assert.Equal(t, "<p>d</p>", readFile(t, nested))
	// Extension not in the include set stays untouched
	assert.Equal(t, "{{title}}", readFile(t, other))
}

func TestProcess_ExcludedDirsPrunedAtAnyDepth(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "{{title}}")
	topLevel := writeFile(t, root, "node_modules/pkg/readme.md", "{{title}}")
	nested := writeFile(t, root, "src/deep/.git/hooks/doc.md", "{{title}}")
	dist := writeFile(t, root, "sub/dist/index.html", "{{title}}")

	w := walker.New(substitute.New(substitute.NewLockedRand(1)), defaultOptions())
	count, err := w.Process(root, testRow())
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	// Matching extensions inside excluded dirs are never visited
	assert.Equal(t, "{{title}}", readFile(t, topLevel))
	assert.Equal(t, "{{title}}", readFile(t, nested))
	assert.Equal(t, "{{title}}", readFile(t, dist))
}

func TestProcess_CodeLikeEscaping(t *testing.T) {
	root := t.TempDir()
	script := writeFile(t, root, "config.js", "const title = '{{title}}';")
	markup := writeFile(t, root, "index.html", "<h1>{{title}}</h1>")

	row := rowsource.Row{"title": "Bob's Shop"}
	w := walker.New(substitute.New(substitute.NewLockedRand(1)), defaultOptions())
	_, err := w.Process(root, row)
	require.NoError(t, err)

	assert.Equal(t, `const title = 'Bob\'s Shop';`, readFile(t, script))
	assert.Equal(t, "<h1>Bob's Shop</h1>", readFile(t, markup))
}

func TestProcess_MissingRoot(t *testing.T) {
	w := walker.New(substitute.New(substitute.NewLockedRand(1)), defaultOptions())
	_, err := w.Process(filepath.Join(t.TempDir(), "missing"), testRow())
	assert.Error(t, err)
}

func TestProcess_PreservesFileMode(t *testing.T) {
	root := t.TempDir()
	script := writeFile(t, root, "run.js", "// {{title}}")
	require.NoError(t, os.Chmod(script, 0755))

	w := walker.New(substitute.New(substitute.NewLockedRand(1)), defaultOptions())
	_, err := w.Process(root, testRow())
	require.NoError(t, err)

	info, err := os.Stat(script)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}
