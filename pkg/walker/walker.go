// Package walker rewrites a materialized project tree in place by running
// every matching file through the substitution engine.
package walker

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	forgeerr "github.com/arthur-debert/siteforge/pkg/errors"
	"github.com/arthur-debert/siteforge/pkg/logging"
	"github.com/arthur-debert/siteforge/pkg/rowsource"
	"github.com/arthur-debert/siteforge/pkg/substitute"
)

// Options configures which files a Walker touches.
type Options struct {
	// Include holds glob patterns matched against file base names,
	// e.g. "*.html".
	Include []string

	// ExcludeDirs are directory names pruned entirely at any depth.
	ExcludeDirs []string

	// CodeExtensions mark files whose substituted values need string-literal
	// escaping, e.g. ".js".
	CodeExtensions []string
}

// Walker applies the substitution engine to files under a root.
type Walker struct {
	engine   *substitute.Engine
	include  []string
	excluded map[string]struct{}
	codeLike map[string]struct{}
	logger   zerolog.Logger
}

// New creates a Walker around engine.
func New(engine *substitute.Engine, opts Options) *Walker {
	excluded := make(map[string]struct{}, len(opts.ExcludeDirs))
	for _, name := range opts.ExcludeDirs {
		excluded[name] = struct{}{}
	}
	codeLike := make(map[string]struct{}, len(opts.CodeExtensions))
	for _, ext := range opts.CodeExtensions {
		codeLike[strings.ToLower(ext)] = struct{}{}
	}
	return &Walker{
		engine:   engine,
		include:  opts.Include,
		excluded: excluded,
		codeLike: codeLike,
		logger:   logging.GetLogger("walker"),
	}
}

// Process rewrites every matching file under root with row's substitutions
// and returns the number of files processed. The rewrite is destructive and
// single-pass: the first file error aborts the walk, and files already
// rewritten stay rewritten.
func (w *Walker) Process(root string, row rowsource.Row) (int, error) {
	count := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return forgeerr.Wrapf(err, forgeerr.ErrFileAccess, "failed to walk %s", path)
		}

		if d.IsDir() {
			if _, skip := w.excluded[d.Name()]; skip && path != root {
				return fs.SkipDir
			}
			return nil
		}

		if !w.matches(d.Name()) {
			return nil
		}

		if err := w.processFile(path, row); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	w.logger.Debug().Str("root", root).Int("files", count).Msg("processed directory")
	return count, nil
}

// matches reports whether name matches any include pattern.
func (w *Walker) matches(name string) bool {
	for _, pattern := range w.include {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// processFile reads, substitutes and overwrites one file, preserving its
// mode. No backup is kept.
func (w *Walker) processFile(path string, row rowsource.Row) error {
	info, err := os.Stat(path)
	if err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrFileAccess, "failed to stat %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrFileAccess, "failed to read %s", path)
	}

	codeLike := w.isCodeLike(path)
	result := w.engine.Apply(string(content), row, codeLike)

	if err := os.WriteFile(path, []byte(result), info.Mode().Perm()); err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrFileWrite, "failed to write %s", path)
	}

	w.logger.Trace().Str("path", path).Bool("codeLike", codeLike).Msg("substituted file")
	return nil
}

// isCodeLike derives the escaping mode from the file extension.
func (w *Walker) isCodeLike(path string) bool {
	_, ok := w.codeLike[strings.ToLower(filepath.Ext(path))]
	return ok
}
