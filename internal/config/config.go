// Package config loads tool settings from, in order of increasing
// precedence: built-in defaults, a promptweaver.toml file, and
// PROMPTWEAVER_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

// Settings holds the tool-level knobs. Per-document generation settings
// live in the documents themselves.
type Settings struct {
	LogLevel      string `koanf:"log_level"`
	OutputFormat  string `koanf:"output_format"` // json or text
	MaxVariations int    `koanf:"max_variations"`
}

const envPrefix = "PROMPTWEAVER_"

func defaults() map[string]any {
	return map[string]any{
		"log_level":      "warn",
		"output_format":  "json",
		"max_variations": 0,
	}
}

// Load reads settings layered from defaults, config files and the
// environment. explicitPath, when non-empty, must exist; the default
// locations are optional.
func Load(explicitPath string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, err
	}

	for _, path := range configFiles(explicitPath) {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			if path == explicitPath || !os.IsNotExist(err) {
				return nil, err
			}
			continue
		}
		log.Debug().Str("path", path).Msg("loaded config file")
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, err
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// configFiles returns candidate config paths in loading order, lowest
// precedence first.
func configFiles(explicitPath string) []string {
	if explicitPath != "" {
		return []string{explicitPath}
	}
	paths := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".promptweaver.toml"))
	}
	paths = append(paths, "promptweaver.toml")
	return paths
}
