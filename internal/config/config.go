// Package config loads inspector settings from defaults, a YAML file, a
// .env file and OKNI_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/inventory"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/render"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/selection"
)

const (
	configDirName  = ".oke-node-inspector"
	configFileName = "config.yaml"
	dotEnvFileName = ".env"

	EnvPrefix = "OKNI"
)

var (
	allowedLogLevels  = []string{"debug", "info", "warn", "error"}
	allowedLogFormats = []string{"console", "json"}
)

type Config struct {
	Context                 string          `yaml:"context" mapstructure:"context"`
	Kubeconfig              string          `yaml:"kubeconfig" mapstructure:"kubeconfig"`
	Timeout                 string          `yaml:"timeout" mapstructure:"timeout"`
	Basis                   string          `yaml:"basis" mapstructure:"basis"`
	AutoscalerLabelPatterns []string        `yaml:"autoscalerLabelPatterns" mapstructure:"autoscalerLabelPatterns"`
	Display                 DisplayConfig   `yaml:"display" mapstructure:"display"`
	Selection               SelectionConfig `yaml:"selection" mapstructure:"selection"`
	Log                     LogConfig       `yaml:"log" mapstructure:"log"`
}

type DisplayConfig struct {
	// Width is the box width in columns; 0 follows the terminal.
	Width      int               `yaml:"width" mapstructure:"width"`
	Colors     bool              `yaml:"colors" mapstructure:"colors"`
	Thresholds render.Thresholds `yaml:"thresholds" mapstructure:"thresholds"`
}

type SelectionConfig struct {
	SortBy             string   `yaml:"sortBy" mapstructure:"sortBy"`
	Filters            []string `yaml:"filters" mapstructure:"filters"`
	HighUsageThreshold float64  `yaml:"highUsageThreshold" mapstructure:"highUsageThreshold"`
}

type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB" mapstructure:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups" mapstructure:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays" mapstructure:"maxAgeDays"`
}

func Default() *Config {
	return &Config{
		Timeout:                 "30s",
		Basis:                   string(inventory.BasisCapacity),
		AutoscalerLabelPatterns: append([]string(nil), inventory.DefaultAutoscalerPatterns...),
		Display: DisplayConfig{
			Width:      0,
			Colors:     true,
			Thresholds: render.DefaultThresholds(),
		},
		Selection: SelectionConfig{
			SortBy:             string(selection.ByName),
			Filters:            []string{},
			HighUsageThreshold: selection.DefaultHighUsageThreshold,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// FilePath returns ~/.oke-node-inspector/config.yaml.
func FilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

// Load reads the config file at path, or the default location when path is
// empty. A missing default file is not an error; a missing explicit file is.
// Precedence, highest first: OKNI_* environment, K8S_CONTEXT (environment,
// then ./.env) for the context, the config file, defaults.
func Load(path string) (*Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		p, err := FilePath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if err := applyDotEnv(v, dotEnvFileName); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("context", d.Context)
	v.SetDefault("kubeconfig", d.Kubeconfig)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("basis", d.Basis)
	v.SetDefault("autoscalerLabelPatterns", d.AutoscalerLabelPatterns)
	v.SetDefault("display.width", d.Display.Width)
	v.SetDefault("display.colors", d.Display.Colors)
	v.SetDefault("display.thresholds.mid", d.Display.Thresholds.Mid)
	v.SetDefault("display.thresholds.high", d.Display.Thresholds.High)
	v.SetDefault("display.thresholds.critical", d.Display.Thresholds.Critical)
	v.SetDefault("selection.sortBy", d.Selection.SortBy)
	v.SetDefault("selection.filters", d.Selection.Filters)
	v.SetDefault("selection.highUsageThreshold", d.Selection.HighUsageThreshold)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.maxSizeMB", d.Log.MaxSizeMB)
	v.SetDefault("log.maxBackups", d.Log.MaxBackups)
	v.SetDefault("log.maxAgeDays", d.Log.MaxAgeDays)

	// OKNI_DISPLAY_WIDTH, OKNI_LOG_LEVEL, OKNI_SELECTION_SORTBY, ...
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("context", EnvPrefix+"_CONTEXT", "K8S_CONTEXT")
	return v
}

// applyDotEnv fills the context from K8S_CONTEXT in a .env file when the
// environment does not already provide one.
func applyDotEnv(v *viper.Viper, path string) error {
	if _, ok := os.LookupEnv(EnvPrefix + "_CONTEXT"); ok {
		return nil
	}
	if _, ok := os.LookupEnv("K8S_CONTEXT"); ok {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	dv := viper.New()
	dv.SetConfigFile(path)
	dv.SetConfigType("env")
	if err := dv.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if ctx := strings.TrimSpace(dv.GetString("k8s_context")); ctx != "" {
		v.Set("context", ctx)
	}
	return nil
}

func (c *Config) normalize() {
	c.Context = strings.TrimSpace(c.Context)
	c.Kubeconfig = strings.TrimSpace(c.Kubeconfig)
	c.Basis = strings.ToLower(strings.TrimSpace(c.Basis))
	c.Selection.SortBy = strings.ToLower(strings.TrimSpace(c.Selection.SortBy))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Selection.Filters == nil {
		c.Selection.Filters = []string{}
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := inventory.ParseBasis(c.Basis); err != nil {
		return fmt.Errorf("invalid basis: %w", err)
	}
	if c.Display.Width < 0 {
		return fmt.Errorf("display.width must be >= 0")
	}
	if err := c.Display.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid display.thresholds: %w", err)
	}
	if _, err := selection.ParseSortKey(c.Selection.SortBy); err != nil {
		return fmt.Errorf("invalid selection.sortBy: %w", err)
	}
	for _, f := range c.Selection.Filters {
		if _, err := selection.ParseFilter(f); err != nil {
			return fmt.Errorf("invalid selection.filters: %w", err)
		}
	}
	if t := c.Selection.HighUsageThreshold; t <= 0 || t > 100 {
		return fmt.Errorf("selection.highUsageThreshold must be in (0, 100]")
	}
	if !contains(allowedLogLevels, c.Log.Level) {
		return fmt.Errorf("invalid log.level %q (allowed: %s)", c.Log.Level, strings.Join(allowedLogLevels, ", "))
	}
	if !contains(allowedLogFormats, c.Log.Format) {
		return fmt.Errorf("invalid log.format %q (allowed: %s)", c.Log.Format, strings.Join(allowedLogFormats, ", "))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation settings must be >= 0")
	}
	return nil
}

// TimeoutDuration parses Timeout. An empty value means no timeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	s := strings.TrimSpace(c.Timeout)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: must be a duration like 30s", c.Timeout)
	}
	return d, nil
}

// Save writes cfg to path, or the default location when path is empty.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" {
		p, err := FilePath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// EnsureExists writes the default config to path unless a file is already
// there. It reports whether a file was created.
func EnsureExists(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		p, err := FilePath()
		if err != nil {
			return "", false, err
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", false, err
	}
	if err := Save(path, Default()); err != nil {
		return "", false, err
	}
	return path, true, nil
}

// YAML renders the effective configuration.
func (c *Config) YAML() (string, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
