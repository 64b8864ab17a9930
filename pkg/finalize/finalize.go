// Package finalize stamps per-site identity into a materialized project:
// manifest name and homepage, sitemap and robots entries. It runs strictly
// after substitution, since the manifest may itself carry tokens.
package finalize

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"

	forgeerr "github.com/arthur-debert/siteforge/pkg/errors"
	"github.com/arthur-debert/siteforge/pkg/logging"
)

// ManifestFileName is the project manifest at the materialized root.
const ManifestFileName = "package.json"

// Slug derives a filesystem-and-registry-safe identifier from a domain:
// lowercased, runs of non-alphanumeric characters collapsed to single
// hyphens, leading and trailing hyphens trimmed.
func Slug(domain string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(domain)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// SiteURL derives the external URL for a domain.
func SiteURL(domain string) string {
	return "https://" + strings.TrimSpace(domain)
}

// Finalize applies row identity to the project at dir: rewrites the
// manifest (skipped when absent) and writes sitemap.xml and robots.txt
// under public/.
func Finalize(dir, domain string) error {
	logger := logging.GetLogger("finalize")

	if err := rewriteManifest(dir, domain); err != nil {
		return err
	}
	if err := writeSitemap(dir, domain); err != nil {
		return err
	}
	if err := writeRobots(dir, domain); err != nil {
		return err
	}

	logger.Debug().Str("dir", dir).Str("domain", domain).Msg("finalized project")
	return nil
}

// rewriteManifest sets the manifest's name to the domain slug and its
// homepage to the site URL. A missing manifest skips the rewrite without
// error; the build tool may not need one.
func rewriteManifest(dir, domain string) error {
	logger := logging.GetLogger("finalize")

	path := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("path", path).Msg("no manifest, skipping identity rewrite")
			return nil
		}
		return forgeerr.Wrapf(err, forgeerr.ErrFinalize, "failed to read manifest %s", path)
	}

	var manifest map[string]interface{}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrFinalize, "failed to parse manifest %s", path)
	}

	manifest["name"] = Slug(domain)
	manifest["homepage"] = SiteURL(domain)

	out, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrFinalize, "failed to encode manifest %s", path)
	}
	out = append(out, '\n')

	if err := os.WriteFile(path, out, 0644); err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrFileWrite, "failed to write manifest %s", path)
	}
	return nil
}

// writeSitemap emits public/sitemap.xml with the site root URL.
func writeSitemap(dir, domain string) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	urlset := doc.CreateElement("urlset")
	urlset.CreateAttr("xmlns", "http://www.sitemaps.org/schemas/sitemap/0.9")

	url := urlset.CreateElement("url")
	url.CreateElement("loc").SetText(SiteURL(domain) + "/")
	url.CreateElement("lastmod").SetText(time.Now().Format("2006-01-02"))

	publicDir := filepath.Join(dir, "public")
	if err := os.MkdirAll(publicDir, 0755); err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrDirCreate, "failed to create %s", publicDir)
	}

	doc.Indent(2)
	path := filepath.Join(publicDir, "sitemap.xml")
	if err := doc.WriteToFile(path); err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrFileWrite, "failed to write %s", path)
	}
	return nil
}

// writeRobots emits public/robots.txt pointing at the sitemap.
func writeRobots(dir, domain string) error {
	path := filepath.Join(dir, "public", "robots.txt")
	content := fmt.Sprintf("User-agent: *\nAllow: /\n\nSitemap: %s/sitemap.xml\n", SiteURL(domain))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrFileWrite, "failed to write %s", path)
	}
	return nil
}
