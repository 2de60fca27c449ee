// Package config loads runtime settings from a YAML file with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LibraryDir string        `yaml:"library_dir"`
	DebugDir   string        `yaml:"debug_dir"`
	LogLevel   string        `yaml:"log_level"`
	Server     ServerConfig  `yaml:"server"`
	Segment    SegmentConfig `yaml:"segment"`
	Match      MatchConfig   `yaml:"match"`
}

type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// SegmentConfig exposes the segmentation knobs worth tuning per deployment;
// everything else stays at its default.
type SegmentConfig struct {
	MinRows   int     `yaml:"min_rows"`
	DialogPad int     `yaml:"dialog_pad"`
	Extent    float64 `yaml:"extent"`
}

type MatchConfig struct {
	TopKHash          int `yaml:"top_k_hash"`
	TopKProf          int `yaml:"top_k_prof"`
	MaxCand           int `yaml:"max_cand"`
	VerdictCacheLimit int `yaml:"verdict_cache_limit"`
}

func defaults() *Config {
	return &Config{
		LibraryDir: "library",
		DebugDir:   "",
		LogLevel:   "info",
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 32 << 20,
		},
		Segment: SegmentConfig{
			MinRows:   12,
			DialogPad: 12,
			Extent:    0.65,
		},
		Match: MatchConfig{
			TopKHash:          8,
			TopKProf:          8,
			MaxCand:           12,
			VerdictCacheLimit: 8192,
		},
	}
}

// Load reads the config file when path is non-empty, then applies
// environment overrides. A .env file next to the binary is honored.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if v := os.Getenv("WARSCAN_LIBRARY_DIR"); v != "" {
		cfg.LibraryDir = v
	}
	if v := os.Getenv("WARSCAN_DEBUG_DIR"); v != "" {
		cfg.DebugDir = v
	}
	if v := os.Getenv("WARSCAN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WARSCAN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	cfg.Segment.MinRows = envInt("WARSCAN_MIN_ROWS", cfg.Segment.MinRows)

	return cfg, nil
}

// envInt parses an environment variable as a positive integer, keeping the
// default when unset or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}
