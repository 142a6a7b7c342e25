// Package config handles configuration loading and management for reqprobe.
//
// It provides functionality for:
//   - Loading configuration from .reqprobe.config.json or YAML equivalents
//   - Default configuration values
//   - Merging file settings with CLI overrides
package config
