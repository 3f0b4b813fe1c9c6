// Package config loads the hexpath server configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/hexpath/internal/world"
)

// Config holds all server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Session  SessionConfig  `yaml:"session"`
	Generate GenerateConfig `yaml:"generate"`
}

// ServerConfig holds HTTP settings
type ServerConfig struct {
	Port        int      `yaml:"port"`
	AdminKey    string   `yaml:"admin_key"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig holds the proposal cache location
type DatabaseConfig struct {
	Path         string `yaml:"path"`
	CacheTTLDays int    `yaml:"cache_ttl_days"` // 0 keeps entries forever
}

// LLMConfig holds Anthropic client settings
type LLMConfig struct {
	APIKey         string `yaml:"api_key"`
	RateLimit      int    `yaml:"rate_limit"` // calls per minute
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SessionConfig holds editor session settings
type SessionConfig struct {
	DefaultRadius    int `yaml:"default_radius"`
	IdleMinutes      int `yaml:"idle_minutes"`
	SweepIntervalSec int `yaml:"sweep_interval_seconds"`
}

// GenerateConfig holds the noise fallback and the generate endpoint limits
type GenerateConfig struct {
	Seed          int64   `yaml:"seed"`
	WaterLevel    float64 `yaml:"water_level"`
	MountainLevel float64 `yaml:"mountain_level"`
	Sites         int     `yaml:"sites"`
	PerMinute     int     `yaml:"per_minute"` // requests per IP
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	gen := world.DefaultGenConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/hexpath.db"
	}
	if cfg.LLM.RateLimit == 0 {
		cfg.LLM.RateLimit = 20
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 30
	}
	if cfg.Session.DefaultRadius == 0 {
		cfg.Session.DefaultRadius = gen.Radius
	}
	if cfg.Session.IdleMinutes == 0 {
		cfg.Session.IdleMinutes = 60
	}
	if cfg.Session.SweepIntervalSec == 0 {
		cfg.Session.SweepIntervalSec = 60
	}
	if cfg.Generate.WaterLevel == 0 {
		cfg.Generate.WaterLevel = gen.WaterLevel
	}
	if cfg.Generate.MountainLevel == 0 {
		cfg.Generate.MountainLevel = gen.MountainLvl
	}
	if cfg.Generate.Sites == 0 {
		cfg.Generate.Sites = gen.Sites
	}
	if cfg.Generate.PerMinute == 0 {
		cfg.Generate.PerMinute = 6
	}
}

// ApplyEnv overrides file values with environment variables. getenv is
// usually os.Getenv.
func (cfg *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := getenv("HEXPATH_ADMIN_KEY"); v != "" {
		cfg.Server.AdminKey = v
	}
	if v := getenv("HEXPATH_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, o)
			}
		}
	}
	if v := getenv("HEXPATH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid HEXPATH_PORT %q", v)
		}
		cfg.Server.Port = port
	}
	return nil
}

// FromEnv loads the file named by CONFIG_PATH, or the defaults when it is
// unset, then applies environment overrides.
func FromEnv() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GenConfig returns the noise generator settings for a map of radius.
func (cfg *Config) GenConfig(radius int) world.GenConfig {
	return world.GenConfig{
		Radius:      radius,
		Seed:        cfg.Generate.Seed,
		WaterLevel:  cfg.Generate.WaterLevel,
		MountainLvl: cfg.Generate.MountainLevel,
		Sites:       cfg.Generate.Sites,
	}
}

// IdleTimeout is how long a session may sit unused before eviction.
func (cfg *Config) IdleTimeout() time.Duration {
	return time.Duration(cfg.Session.IdleMinutes) * time.Minute
}

// SweepInterval is how often idle sessions are collected.
func (cfg *Config) SweepInterval() time.Duration {
	return time.Duration(cfg.Session.SweepIntervalSec) * time.Second
}

// LLMTimeout bounds a single LLM call.
func (cfg *Config) LLMTimeout() time.Duration {
	return time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
}

// CacheTTL is the proposal cache lifetime; zero disables purging.
func (cfg *Config) CacheTTL() time.Duration {
	return time.Duration(cfg.Database.CacheTTLDays) * 24 * time.Hour
}
