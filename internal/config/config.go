// Package config loads the command-line configuration from defaults, a YAML
// file, FORMULA_ environment variables and flags, in increasing precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Default values
const (
	DefaultConfigFile   = "formula.yaml"
	DefaultLocale       = "en_US"
	DefaultFunctionsDir = "functions"
	DefaultLogLevel     = "info"
	DefaultOutput       = OutputTable
	DefaultMaxTokens    = 8000
	DefaultMaxPasses    = 4
)

// Output modes
const (
	OutputTable = "table"
	OutputPlain = "plain"
)

const envPrefix = "FORMULA_"

// Config holds all CLI configuration options.
type Config struct {
	Locale       string `koanf:"locale"`
	FunctionsDir string `koanf:"functions_dir"`
	Store        string `koanf:"store"` // SQLite path, empty for in-memory
	LogLevel     string `koanf:"log_level"`
	Output       string `koanf:"output"`
	MaxTokens    int    `koanf:"max_tokens"`
	MaxPasses    int    `koanf:"max_passes"`

	// file the configuration was read from, if any
	File string `koanf:"-"`
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Without an explicit cfgFile, ./formula.yaml is used when present.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"locale":        DefaultLocale,
		"functions_dir": DefaultFunctionsDir,
		"store":         "",
		"log_level":     DefaultLogLevel,
		"output":        DefaultOutput,
		"max_tokens":    DefaultMaxTokens,
		"max_passes":    DefaultMaxPasses,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. config file
	if cfgFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			cfgFile = DefaultConfigFile
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. environment: FORMULA_MAX_TOKENS -> max_tokens
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. flags that were explicitly set; kebab-case maps to snake_case keys
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = cfgFile

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is loaded.
func Default() *Config {
	return &Config{
		Locale:       DefaultLocale,
		FunctionsDir: DefaultFunctionsDir,
		LogLevel:     DefaultLogLevel,
		Output:       DefaultOutput,
		MaxTokens:    DefaultMaxTokens,
		MaxPasses:    DefaultMaxPasses,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Locale == "" {
		return fmt.Errorf("locale is required")
	}
	switch c.Output {
	case OutputTable, OutputPlain:
	default:
		return fmt.Errorf("invalid output %q (expected %s or %s)", c.Output, OutputTable, OutputPlain)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxPasses <= 0 {
		return fmt.Errorf("max_passes must be positive, got %d", c.MaxPasses)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses log_level ("debug", "info", "warn", "error").
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
