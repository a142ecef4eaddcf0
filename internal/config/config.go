// Package config loads fleetreg settings.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults (Default)
//  2. an optional YAML file
//  3. an optional .env file, then the process environment (FLEETREG_*)
//
// The merged result is validated against an embedded CUE schema. Command
// line flags are applied by the caller after Load.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FLEETREG_"

// Config holds every runtime setting of fleetreg.
type Config struct {
	DBPath    string `yaml:"db_path"`
	Listen    string `yaml:"listen"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	CodeLength      int           `yaml:"code_length"`
	ActivationTTL   time.Duration `yaml:"activation_ttl"`
	FreshnessWindow time.Duration `yaml:"freshness_window"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	SweepRetention  time.Duration `yaml:"sweep_retention"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:          "fleet.db",
		Listen:          ":8080",
		LogLevel:        "info",
		LogFormat:       "text",
		CodeLength:      6,
		ActivationTTL:   time.Hour,
		FreshnessWindow: 5 * time.Minute,
		SweepInterval:   10 * time.Minute,
		SweepRetention:  24 * time.Hour,
	}
}

// Options controls where Load looks for settings.
type Options struct {
	// File is a YAML config file. Empty means none; a named file must exist.
	File string

	// EnvFile is a dotenv file. A missing file is ignored.
	EnvFile string

	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// ConfigError reports an invalid configuration.
type ConfigError struct {
	Source   string   // "file", "env" or "schema"
	Problems []string // one entry per offending field
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config (%s): %s", e.Source, strings.Join(e.Problems, "; "))
}

// Load builds the configuration from defaults, file and environment, and
// validates the result.
func Load(opts Options) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, &ConfigError{Source: "file", Problems: []string{err.Error()}}
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if opts.EnvFile != "" {
		dotenv, err := godotenv.Read(opts.EnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read env file: %w", err)
		}
		lookup = withFallback(lookup, dotenv)
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// withFallback consults the environment first and the dotenv values second,
// matching godotenv.Load, which never overrides variables already set.
func withFallback(lookup func(string) (string, bool), dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var problems []string

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
			return
		}
		*dst = d
	}

	str("DB", &c.DBPath)
	str("LISTEN", &c.Listen)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	if v, ok := lookup(EnvPrefix + "CODE_LENGTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%sCODE_LENGTH: %v", EnvPrefix, err))
		} else {
			c.CodeLength = n
		}
	}
	dur("ACTIVATION_TTL", &c.ActivationTTL)
	dur("FRESHNESS_WINDOW", &c.FreshnessWindow)
	dur("SWEEP_INTERVAL", &c.SweepInterval)
	dur("SWEEP_RETENTION", &c.SweepRetention)

	if len(problems) > 0 {
		return &ConfigError{Source: "env", Problems: problems}
	}
	return nil
}

// Validate checks c against the embedded CUE schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	v := schema.Unify(ctx.Encode(c.fields()))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		var problems []string
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, e.Error())
		}
		if len(problems) == 0 {
			problems = []string{err.Error()}
		}
		return &ConfigError{Source: "schema", Problems: problems}
	}
	return nil
}

// fields renders c with the schema's field names and durations in seconds.
// Durations that are not whole seconds are rounded down.
func (c Config) fields() map[string]any {
	return map[string]any{
		"db_path":          c.DBPath,
		"listen":           c.Listen,
		"log_level":        c.LogLevel,
		"log_format":       c.LogFormat,
		"code_length":      c.CodeLength,
		"activation_ttl":   int64(c.ActivationTTL / time.Second),
		"freshness_window": int64(c.FreshnessWindow / time.Second),
		"sweep_interval":   int64(c.SweepInterval / time.Second),
		"sweep_retention":  int64(c.SweepRetention / time.Second),
	}
}

// SlogLevel maps LogLevel to a slog.Level. Unknown names map to Info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
