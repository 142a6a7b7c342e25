package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the reqprobe configuration
type Config struct {
	Timeout         int               `json:"timeout,omitempty" yaml:"timeout,omitempty"`                 // milliseconds
	WindowSize      int               `json:"windowSize,omitempty" yaml:"windowSize,omitempty"`           // concurrent requests per batch window
	RateLimit       float64           `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`             // request launches per second, 0 = unlimited
	CacheTTL        int               `json:"cacheTTL,omitempty" yaml:"cacheTTL,omitempty"`               // seconds
	CacheCapacity   int               `json:"cacheCapacity,omitempty" yaml:"cacheCapacity,omitempty"`
	HistoryLimit    int               `json:"historyLimit,omitempty" yaml:"historyLimit,omitempty"`
	HistoryDebounce int               `json:"historyDebounce,omitempty" yaml:"historyDebounce,omitempty"` // milliseconds
	HistoryCacheTTL int               `json:"historyCacheTTL,omitempty" yaml:"historyCacheTTL,omitempty"` // seconds
	HistoryPath     string            `json:"historyPath,omitempty" yaml:"historyPath,omitempty"`         // sqlite file, empty = in-memory
	MaxBodySize     int               `json:"maxBodySize,omitempty" yaml:"maxBodySize,omitempty"`
	AllowedHeaders  []string          `json:"allowedHeaders,omitempty" yaml:"allowedHeaders,omitempty"`
	FollowRedirects *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects    int               `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL     *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy           string            `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	Verbose         *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor         *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".reqprobe.config.json",
	"reqprobe.config.json",
	".reqprobe.config.yaml",
	"reqprobe.config.yaml",
	".reqproberc",
	".reqproberc.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file, choosing the
// codec by extension. Anything that is not YAML is parsed as JSON.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("invalid YAML config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("invalid JSON config %s: %w", path, err)
		}
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.WindowSize > 0 {
		result.WindowSize = other.WindowSize
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.CacheTTL > 0 {
		result.CacheTTL = other.CacheTTL
	}
	if other.CacheCapacity > 0 {
		result.CacheCapacity = other.CacheCapacity
	}
	if other.HistoryLimit > 0 {
		result.HistoryLimit = other.HistoryLimit
	}
	if other.HistoryDebounce > 0 {
		result.HistoryDebounce = other.HistoryDebounce
	}
	if other.HistoryCacheTTL > 0 {
		result.HistoryCacheTTL = other.HistoryCacheTTL
	}
	if other.HistoryPath != "" {
		result.HistoryPath = other.HistoryPath
	}
	if other.MaxBodySize > 0 {
		result.MaxBodySize = other.MaxBodySize
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	// Merge headers
	if len(other.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range other.Headers {
			result.Headers[k] = v
		}
	}

	if len(other.AllowedHeaders) > 0 {
		result.AllowedHeaders = other.AllowedHeaders
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
