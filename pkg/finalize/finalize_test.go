package finalize_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/siteforge/pkg/finalize"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		domain   string
		expected string
	}{
		{"example.com", "example-com"},
		{"Foo.Example.COM", "foo-example-com"},
		{"my shop & co.test", "my-shop-co-test"},
		{"  spaced.test  ", "spaced-test"},
		{"already-fine", "already-fine"},
		{"trailing.dots...", "trailing-dots"},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			assert.Equal(t, tt.expected, finalize.Slug(tt.domain))
		})
	}
}

func TestFinalize_RewritesManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := `{"name": "site-template", "version": "1.0.0", "scripts": {"build": "astro build"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0644))

	require.NoError(t, finalize.Finalize(dir, "a.test"))

	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, "a-test", parsed["name"])
	assert.Equal(t, "https://a.test", parsed["homepage"])
	// Unrelated keys survive the rewrite
	assert.Equal(t, "1.0.0", parsed["version"])
	assert.Contains(t, parsed, "scripts")
}

func TestFinalize_CreatesMissingKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"version": "2.0.0"}`), 0644))

	require.NoError(t, finalize.Finalize(dir, "b.test"))

	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "b-test", parsed["name"])
	assert.Equal(t, "https://b.test", parsed["homepage"])
}

func TestFinalize_MissingManifestTolerated(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, finalize.Finalize(dir, "c.test"))

	assert.NoFileExists(t, filepath.Join(dir, "package.json"))
	// Identity artifacts are still stamped
	assert.FileExists(t, filepath.Join(dir, "public", "sitemap.xml"))
	assert.FileExists(t, filepath.Join(dir, "public", "robots.txt"))
}

func TestFinalize_SitemapAndRobots(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, finalize.Finalize(dir, "d.test"))

	sitemap, err := os.ReadFile(filepath.Join(dir, "public", "sitemap.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(sitemap), "<loc>https://d.test/</loc>")
	assert.Contains(t, string(sitemap), "http://www.sitemaps.org/schemas/sitemap/0.9")

	robots, err := os.ReadFile(filepath.Join(dir, "public", "robots.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(robots), "Sitemap: https://d.test/sitemap.xml")
}

func TestFinalize_InvalidManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte("not json"), 0644))

	err := finalize.Finalize(dir, "e.test")
	assert.Error(t, err)
}
