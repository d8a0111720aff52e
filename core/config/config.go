package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tristendillon/nixbundle/core/inliner"
	"github.com/tristendillon/nixbundle/core/logger"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is looked up in the working directory.
	FileName = "nixbundle.yaml"
	// EnvPrefix prefixes environment overrides, e.g. NIXBUNDLE_OUTPUT.
	EnvPrefix = "NIXBUNDLE"
	// DefaultOutput is written when no output path is configured.
	DefaultOutput = "bundled.nix"
	// DefaultValidator is run against the written bundle.
	DefaultValidator = "nix-instantiate --eval"
)

type Config struct {
	Entry        string `yaml:"entry" mapstructure:"entry"`
	Output       string `yaml:"output" mapstructure:"output"`
	Validate     bool   `yaml:"validate" mapstructure:"validate"`
	Validator    string `yaml:"validator" mapstructure:"validator"`
	CyclePolicy  string `yaml:"cycle_policy" mapstructure:"cycle_policy"`
	ReplaceMode  string `yaml:"replace_mode" mapstructure:"replace_mode"`
	Parenthesize bool   `yaml:"parenthesize" mapstructure:"parenthesize"`
	CacheSize    int    `yaml:"cache_size" mapstructure:"cache_size"`
	Watch        Watch  `yaml:"watch" mapstructure:"watch"`
}

type Watch struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
	Exclude  []string      `yaml:"exclude" mapstructure:"exclude"`
}

func Default() *Config {
	return &Config{
		Output:      DefaultOutput,
		Validate:    true,
		Validator:   DefaultValidator,
		CyclePolicy: string(inliner.CycleEmpty),
		ReplaceMode: string(inliner.ReplaceLiteral),
		CacheSize:   512,
		Watch: Watch{
			Debounce: 500 * time.Millisecond,
			Exclude:  []string{},
		},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"entry":        "entry",
	"output":       "output",
	"validate":     "validate",
	"validator":    "validator",
	"cycle-policy": "cycle_policy",
	"replace-mode": "replace_mode",
	"parenthesize": "parenthesize",
	"debounce":     "watch.debounce",
}

type LoadOptions struct {
	// Dir holds nixbundle.yaml and .env. Defaults to the working directory.
	Dir string
	// Flags overrides file and environment values for every flag the user set.
	Flags *pflag.FlagSet
}

// Load resolves configuration from, lowest to highest precedence: defaults,
// nixbundle.yaml, .env and NIXBUNDLE_* environment variables, explicit flags.
func Load(opts LoadOptions) (*Config, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cannot determine working dir: %w", err)
		}
		dir = wd
	}

	envPath := filepath.Join(dir, ".env")
	if err := godotenv.Load(envPath); err == nil {
		logger.Debug("Loaded environment from %s", envPath)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigFile(filepath.Join(dir, FileName))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
		logger.Debug("No config file found, using default config")
	} else {
		logger.Debug("Config file found: %s", v.ConfigFileUsed())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}

	logger.Debug("Config: %+v", cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("entry", d.Entry)
	v.SetDefault("output", d.Output)
	v.SetDefault("validate", d.Validate)
	v.SetDefault("validator", d.Validator)
	v.SetDefault("cycle_policy", d.CyclePolicy)
	v.SetDefault("replace_mode", d.ReplaceMode)
	v.SetDefault("parenthesize", d.Parenthesize)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.exclude", d.Watch.Exclude)
}

// Check rejects values no command can run with.
func (c *Config) Check() error {
	if err := c.InlineOptions().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("invalid config: cache_size must be positive, got %d", c.CacheSize)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("invalid config: watch.debounce must not be negative, got %s", c.Watch.Debounce)
	}
	if c.Validate && strings.TrimSpace(c.Validator) == "" {
		return fmt.Errorf("invalid config: validator is empty but validate is enabled")
	}
	return nil
}

// InlineOptions converts the inlining settings for the inliner package.
func (c *Config) InlineOptions() inliner.Options {
	return inliner.Options{
		CyclePolicy:  inliner.CyclePolicy(c.CyclePolicy),
		ReplaceMode:  inliner.ReplaceMode(c.ReplaceMode),
		Parenthesize: c.Parenthesize,
	}
}

// Write stores cfg as YAML at path.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
