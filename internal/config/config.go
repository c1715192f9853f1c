// Package config loads rulegen project configuration.
//
// Values are layered with viper: built-in defaults, then a config file, then
// RULEGEN_* environment variables. A rulegen.cue file is validated against
// an embedded CUE schema before it is merged; YAML, TOML and JSON files are
// read by viper directly. Command-line flags are applied by the CLI on top
// of the loaded Config.
package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// FileName is the config file name without extension.
	FileName = "rulegen"

	// EnvPrefix prefixes environment overrides, e.g. RULEGEN_LOG_LEVEL.
	EnvPrefix = "RULEGEN"
)

// discovery order inside the search directory
var candidates = []string{FileName + ".cue", FileName + ".yaml", FileName + ".yml"}

//go:embed config_schema.cue
var configSchema string

// Config is the resolved project configuration.
type Config struct {
	Package     string    `mapstructure:"package_name"`
	Kind        string    `mapstructure:"kind"`
	HotReload   bool      `mapstructure:"hot_reload"`
	OutDir      string    `mapstructure:"out_dir"`
	CacheDB     string    `mapstructure:"cache_db"`
	Concurrency int       `mapstructure:"concurrency"`
	Log         LogConfig `mapstructure:"log"`
}

// LogConfig selects the CLI logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadOptions selects where configuration is read from.
type LoadOptions struct {
	// File forces a specific config file. It must exist.
	File string
	// Dir is searched for rulegen.cue, then rulegen.yaml. Empty means the
	// working directory.
	Dir string
}

// Load resolves the configuration. It returns the file that was read, or
// "" when only defaults and environment applied.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("load config canceled: %w", err)
	}

	v := viper.New()
	defaults := Default()
	v.SetDefault("package_name", defaults.Package)
	v.SetDefault("kind", defaults.Kind)
	v.SetDefault("hot_reload", defaults.HotReload)
	v.SetDefault("out_dir", defaults.OutDir)
	v.SetDefault("cache_db", defaults.CacheDB)
	v.SetDefault("concurrency", defaults.Concurrency)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := opts.File
	if path != "" {
		if !fileExists(path) {
			return nil, "", fmt.Errorf("config file not found: %s", path)
		}
	} else {
		path = discover(opts.Dir)
	}

	if path != "" {
		if err := readInto(v, path); err != nil {
			return nil, "", fmt.Errorf("load config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, path, nil
}

// Validate checks values that may also arrive from the environment, where
// the CUE schema does not apply.
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func discover(dir string) string {
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func readInto(v *viper.Viper, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return loadCUEIntoViper(v, path)
	}
	v.SetConfigFile(path)
	return v.ReadInConfig()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// v, keeping defaults and environment overrides in place.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cctx := cuecontext.New()
	schemaValue := cctx.CompileString(configSchema)
	if err := schemaValue.Err(); err != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", err)
	}

	userValue := cctx.CompileBytes(data, cue.Filename(path))
	if err := userValue.Err(); err != nil {
		return err
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return err
	}
	return v.MergeConfigMap(configMap)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
