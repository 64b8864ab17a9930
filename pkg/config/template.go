package config

import (
	"os"
	"path/filepath"

	gotoml "github.com/pelletier/go-toml/v2"

	forgeerr "github.com/arthur-debert/siteforge/pkg/errors"
	"github.com/arthur-debert/siteforge/pkg/logging"
)

// templateOverrides is the shape of a template-local siteforge.toml. A
// template may narrow or widen the walk settings for its own files; all
// other keys are ignored there.
type templateOverrides struct {
	Walk struct {
		Include        []string `toml:"include"`
		ExcludeDirs    []string `toml:"exclude_dirs"`
		CodeExtensions []string `toml:"code_extensions"`
	} `toml:"walk"`
}

// ApplyTemplateOverrides merges a siteforge.toml found at the template root
// into cfg. Missing file is not an error.
func ApplyTemplateOverrides(cfg *Config, templateDir string) error {
	logger := logging.GetLogger("config")

	path := filepath.Join(templateDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return forgeerr.Wrapf(err, forgeerr.ErrConfigLoad,
			"failed to read template config %s", path)
	}

	var overrides templateOverrides
	if err := gotoml.Unmarshal(data, &overrides); err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrConfigParse,
			"failed to parse template config %s", path)
	}

	if len(overrides.Walk.Include) > 0 {
		cfg.Walk.Include = overrides.Walk.Include
	}
	if len(overrides.Walk.ExcludeDirs) > 0 {
		cfg.Walk.ExcludeDirs = overrides.Walk.ExcludeDirs
	}
	if len(overrides.Walk.CodeExtensions) > 0 {
		cfg.Walk.CodeExtensions = overrides.Walk.CodeExtensions
	}

	logger.Debug().
		Str("path", path).
		Strs("include", cfg.Walk.Include).
		Msg("applied template config overrides")

	return nil
}
