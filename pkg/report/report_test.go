package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/siteforge/pkg/report"
)

func sampleRows() []report.RowOutcome {
	return []report.RowOutcome{
		{Domain: "a.test", Success: true, Path: "out/a-test", Duration: report.Duration(time.Second)},
		{Domain: "b.test", Success: false, Error: "[BUILD] npm run build failed", Duration: report.Duration(2 * time.Second)},
		{Domain: "c.test", Success: true, Path: "out/c-test", Duration: report.Duration(time.Second)},
	}
}

func TestNew_Counts(t *testing.T) {
	s := report.New(sampleRows())

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	assert.False(t, s.GeneratedAt.IsZero())
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	report.New(sampleRows()).Render(&buf)

	out := buf.String()
	assert.Contains(t, out, "3 total")
	assert.Contains(t, out, "2 succeeded")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "a.test")
	assert.Contains(t, out, "out/a-test")
	assert.Contains(t, out, "npm run build failed")
	assert.Contains(t, out, "generated at")
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	s := report.New(sampleRows())
	require.NoError(t, s.WriteFiles(dir))

	text, err := os.ReadFile(filepath.Join(dir, report.TextFileName))
	require.NoError(t, err)
	assert.Contains(t, string(text), "Total: 3  Succeeded: 2  Failed: 1")
	assert.Contains(t, string(text), "OK   a.test -> out/a-test")
	assert.Contains(t, string(text), "FAIL b.test: [BUILD] npm run build failed")
	assert.Contains(t, string(text), "Generated at:")

	// The YAML sidecar round-trips the counts
	data, err := os.ReadFile(filepath.Join(dir, report.YAMLFileName))
	require.NoError(t, err)

	// Durations are written in human form, not nanosecond integers
	assert.Contains(t, string(data), "duration: 1s")
	assert.Contains(t, string(data), "duration: 2s")

	var loaded report.Summary
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, s.Total, loaded.Total)
	assert.Equal(t, s.Succeeded, loaded.Succeeded)
	assert.Equal(t, s.Failed, loaded.Failed)
	require.Len(t, loaded.Rows, 3)
	assert.Equal(t, "b.test", loaded.Rows[1].Domain)
	assert.False(t, loaded.Rows[1].Success)
	assert.Equal(t, report.Duration(2*time.Second), loaded.Rows[1].Duration)
}
