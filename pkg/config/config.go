// Package config loads siteforge configuration by layering embedded
// defaults, an optional siteforge.toml in the working directory, and
// SITEFORGE_-prefixed environment variables.
package config

import (
	_ "embed"
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	forgeerr "github.com/arthur-debert/siteforge/pkg/errors"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// ConfigFileName is looked up in the working directory.
const ConfigFileName = "siteforge.toml"

// Config is the fully resolved configuration for a run.
type Config struct {
	CSV      string      `koanf:"csv"`
	Template string      `koanf:"template"`
	Output   string      `koanf:"output"`
	Walk     WalkConfig  `koanf:"walk"`
	Build    BuildConfig `koanf:"build"`
	Run      RunConfig   `koanf:"run"`
}

// WalkConfig controls which files the directory walker rewrites.
type WalkConfig struct {
	Include        []string `koanf:"include"`
	ExcludeDirs    []string `koanf:"exclude_dirs"`
	CodeExtensions []string `koanf:"code_extensions"`
}

// BuildConfig controls the external build tool invocations.
type BuildConfig struct {
	InstallCommand []string `koanf:"install_command"`
	BuildCommand   []string `koanf:"build_command"`
	TimeoutMinutes int      `koanf:"timeout_minutes"`
	Skip           bool     `koanf:"skip"`
}

// RunConfig controls row scheduling.
type RunConfig struct {
	Parallel  bool `koanf:"parallel"`
	BatchSize int  `koanf:"batch_size"`
}

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Load resolves the effective configuration: embedded defaults, then the
// working-directory config file if present, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, forgeerr.Wrap(err, forgeerr.ErrConfigLoad, "failed to load defaults")
	}

	// 2. Working-directory config file, if it exists
	if _, err := os.Stat(ConfigFileName); err == nil {
		if err := k.Load(file.Provider(ConfigFileName), toml.Parser()); err != nil {
			return nil, forgeerr.Wrapf(err, forgeerr.ErrConfigParse,
				"failed to load config from %s", ConfigFileName)
		}
	}

	// 3. Environment variables: SITEFORGE_RUN_BATCH_SIZE -> run.batch_size
	if err := k.Load(env.Provider("SITEFORGE_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "SITEFORGE_"))
		for _, section := range []string{"walk_", "build_", "run_"} {
			if strings.HasPrefix(key, section) {
				return strings.TrimSuffix(section, "_") + "." + strings.TrimPrefix(key, section)
			}
		}
		return key
	}), nil); err != nil {
		return nil, forgeerr.Wrap(err, forgeerr.ErrConfigLoad, "failed to load environment")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, forgeerr.Wrap(err, forgeerr.ErrConfigParse, "failed to unmarshal config")
	}

	return &cfg, nil
}
