// Package materialize copies the template project into a fresh per-row
// output directory.
package materialize

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	forgeerr "github.com/arthur-debert/siteforge/pkg/errors"
	"github.com/arthur-debert/siteforge/pkg/logging"
)

// Materialize copies templateDir to destDir, pruning directories named in
// excludeDirs at every level. An existing destination is removed first so
// each run starts from a clean copy, never an incremental diff.
func Materialize(templateDir, destDir string, excludeDirs []string) error {
	logger := logging.GetLogger("materialize")

	info, err := os.Stat(templateDir)
	if err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrMaterialize, "template directory %s not accessible", templateDir)
	}
	if !info.IsDir() {
		return forgeerr.Newf(forgeerr.ErrMaterialize, "template path %s is not a directory", templateDir)
	}

	if err := os.RemoveAll(destDir); err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrMaterialize, "failed to clean destination %s", destDir)
	}

	excluded := make(map[string]struct{}, len(excludeDirs))
	for _, name := range excludeDirs {
		excluded[name] = struct{}{}
	}

	err = filepath.WalkDir(templateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return forgeerr.Wrapf(err, forgeerr.ErrMaterialize, "failed to walk %s", path)
		}

		rel, err := filepath.Rel(templateDir, path)
		if err != nil {
			return forgeerr.Wrapf(err, forgeerr.ErrMaterialize, "failed to relativize %s", path)
		}
		target := filepath.Join(destDir, rel)

		if d.IsDir() {
			if _, skip := excluded[d.Name()]; skip && path != templateDir {
				return fs.SkipDir
			}
			info, err := d.Info()
			if err != nil {
				return forgeerr.Wrapf(err, forgeerr.ErrMaterialize, "failed to stat %s", path)
			}
			if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
				return forgeerr.Wrapf(err, forgeerr.ErrDirCreate, "failed to create %s", target)
			}
			return nil
		}

		if !d.Type().IsRegular() {
			logger.Debug().Str("path", path).Msg("skipping irregular file")
			return nil
		}

		return copyFile(path, target, d)
	})
	if err != nil {
		return err
	}

	logger.Debug().Str("template", templateDir).Str("dest", destDir).Msg("materialized project")
	return nil
}

// copyFile copies one regular file, preserving its mode.
func copyFile(src, dst string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrMaterialize, "failed to stat %s", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrMaterialize, "failed to open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrMaterialize, "failed to create %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrMaterialize, "failed to copy %s", src)
	}
	return nil
}
