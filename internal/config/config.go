package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

// Config is the top-level configuration for veridec
type Config struct {
	// Sources is a list of glob patterns for Veride files (relative to the project root)
	Sources []string `json:"sources,omitempty"`

	// Exclude is a list of glob patterns removed from Sources
	Exclude []string `json:"exclude,omitempty"`

	// Output controls where and how Verilog is written
	Output OutputConfig `json:"output,omitempty"`

	// Lint contains lint rule configuration
	Lint LintConfig `json:"lint,omitempty"`

	// Build contains compilation options
	Build BuildConfig `json:"build,omitempty"`
}

// OutputConfig controls generated Verilog
type OutputConfig struct {
	// Dir receives .v files, mirroring the source tree. Empty writes next to each source.
	Dir string `json:"dir,omitempty"`

	// Indent is the number of spaces per nesting level
	Indent int `json:"indent,omitempty"`
}

// LintConfig contains linting configuration
type LintConfig struct {
	// Enabled turns policy evaluation on or off
	Enabled *bool `json:"enabled,omitempty"`

	// Rules maps rule names to severity: "off", "info", "warning", "error"
	Rules map[string]string `json:"rules,omitempty"`

	// IgnorePatterns is a list of file patterns to skip linting entirely
	IgnorePatterns []string `json:"ignorePatterns,omitempty"`

	// PolicyDir holds extra .rego files loaded next to the built-in rules
	PolicyDir string `json:"policyDir,omitempty"`
}

// CacheConfig controls incremental build cache behavior
type CacheConfig struct {
	// Enabled turns on incremental cache usage
	Enabled *bool `json:"enabled,omitempty"`

	// Dir is the cache directory (relative to project root if not absolute)
	Dir string `json:"dir,omitempty"`
}

// BuildConfig contains compilation options
type BuildConfig struct {
	// MaxParallelFiles limits concurrent file processing (0 = auto)
	MaxParallelFiles int `json:"maxParallelFiles,omitempty"`

	// MaxNestingDepth bounds statement nesting in the parser
	MaxNestingDepth int `json:"maxNestingDepth,omitempty"`

	// Cache controls incremental build cache behavior
	Cache CacheConfig `json:"cache,omitempty"`
}

const (
	defaultIndent   = 4
	defaultDepth    = 256
	defaultCacheDir = ".veride_cache"
)

var defaultSources = []string{"*.vd", "**/*.vd"}

// validSeverities are the accepted values in Lint.Rules
var validSeverities = map[string]bool{"off": true, "info": true, "warning": true, "error": true}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Sources: append([]string(nil), defaultSources...),
		Exclude: []string{},
		Output: OutputConfig{
			Indent: defaultIndent,
		},
		Lint: LintConfig{
			Enabled:        boolPtr(true),
			Rules:          map[string]string{},
			IgnorePatterns: []string{},
		},
		Build: BuildConfig{
			MaxParallelFiles: 0, // auto
			MaxNestingDepth:  defaultDepth,
			Cache: CacheConfig{
				Enabled: boolPtr(true),
				Dir:     defaultCacheDir,
			},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

var configNames = []string{"veride.json", ".veride.json", "veride.yaml", ".veride.yaml"}

// Load finds and loads the configuration file
// Search order:
//  1. ./veride.json, ./.veride.json, ./veride.yaml, ./.veride.yaml (current working directory)
//  2. the same names under <rootPath> (if different from cwd)
//  3. ~/.config/veride/config.json
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	var searchPaths []string
	for _, name := range configNames {
		searchPaths = append(searchPaths, filepath.Join(cwd, name))
	}

	// If rootPath is a directory and different from cwd, also check there
	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			for _, name := range configNames {
				searchPaths = append(searchPaths, filepath.Join(rootPath, name))
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "veride", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadFile loads configuration from a specific file. Files ending in
// .yaml or .yml are decoded as YAML using the same field names as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if len(c.Sources) == 0 {
		c.Sources = append([]string(nil), defaultSources...)
	}
	if c.Exclude == nil {
		c.Exclude = []string{}
	}
	if c.Output.Indent == 0 {
		c.Output.Indent = defaultIndent
	}
	if c.Lint.Enabled == nil {
		c.Lint.Enabled = boolPtr(true)
	}
	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}
	if c.Lint.IgnorePatterns == nil {
		c.Lint.IgnorePatterns = []string{}
	}
	if c.Build.MaxNestingDepth == 0 {
		c.Build.MaxNestingDepth = defaultDepth
	}
	if c.Build.Cache.Dir == "" {
		c.Build.Cache.Dir = defaultCacheDir
	}
	if c.Build.Cache.Enabled == nil {
		c.Build.Cache.Enabled = boolPtr(true)
	}
}

// Validate checks value ranges that the decoder cannot enforce
func (c *Config) Validate() error {
	if c.Output.Indent < 0 {
		return fmt.Errorf("output.indent must be positive, got %d", c.Output.Indent)
	}
	if c.Build.MaxNestingDepth < 0 {
		return fmt.Errorf("build.maxNestingDepth must be positive, got %d", c.Build.MaxNestingDepth)
	}
	if c.Build.MaxParallelFiles < 0 {
		return fmt.Errorf("build.maxParallelFiles must not be negative, got %d", c.Build.MaxParallelFiles)
	}
	for rule, severity := range c.Lint.Rules {
		if !validSeverities[severity] {
			return fmt.Errorf("lint.rules.%s: unknown severity %q (want off, info, warning or error)", rule, severity)
		}
	}
	return nil
}

// Save writes the configuration to a file, as YAML when the name ends in .yaml or .yml
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// LintEnabled reports whether policy evaluation should run
func (c *Config) LintEnabled() bool {
	return c.Lint.Enabled == nil || *c.Lint.Enabled
}

// CacheEnabled reports whether the incremental cache should be used
func (c *Config) CacheEnabled() bool {
	return c.Build.Cache.Enabled == nil || *c.Build.Cache.Enabled
}

// CacheDir returns the cache directory resolved against rootPath
func (c *Config) CacheDir(rootPath string) string {
	dir := c.Build.Cache.Dir
	if dir == "" {
		dir = defaultCacheDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(rootPath, dir)
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity != "off"
	}
	return true // enabled by default
}

// ShouldIgnoreFile checks if a file should be skipped by lint
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	for _, pattern := range c.Lint.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, filePath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(filePath)); matched {
			return true
		}
	}
	return false
}
