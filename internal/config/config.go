// Package config loads and saves the assistant's JSON configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config is the root configuration.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Session  SessionConfig  `json:"session"`
	Dialog   DialogConfig   `json:"dialog"`
	Skills   SkillsConfig   `json:"skills"`
	Channels ChannelsConfig `json:"channels"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"`
}

// SessionConfig picks and tunes the session store backend.
type SessionConfig struct {
	Backend           string `json:"backend"` // "memory" | "sqlite"
	DBPath            string `json:"dbPath,omitempty"`
	IdleTTLMinutes    int    `json:"idleTtlMinutes"`
	SweepIntervalSecs int    `json:"sweepIntervalSeconds,omitempty"` // 0 disables the sweep
}

// DialogConfig tunes skill behavior.
type DialogConfig struct {
	// MaxRetries is how many consecutive unrecognized inputs a state
	// tolerates before the skill cancels itself.
	MaxRetries int `json:"maxRetries"`
	// RestartOnDeny sends a rejected confirmation back to the start
	// of the exchange instead of cancelling it.
	RestartOnDeny bool `json:"restartOnDeny"`
	// Concurrency bounds parallel turns across users.
	Concurrency int `json:"concurrency"`
}

type SkillsConfig struct {
	PromptDir string   `json:"promptDir,omitempty"` // directory of YAML prompt packs
	Disabled  []string `json:"disabled,omitempty"`
}

type ChannelsConfig struct {
	CLI      CLIConfig      `json:"cli"`
	Telegram TelegramConfig `json:"telegram"`
}

type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom,omitempty"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen,omitempty"` // host:port for the /metrics endpoint
}

// DefaultConfigDir is ~/.opendialog.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".opendialog"
	}
	return filepath.Join(home, ".opendialog")
}

// DefaultConfigPath is ~/.opendialog/config.json.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads and validates a config file. Paths starting with ~/ are
// expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Session.DBPath = expandHome(cfg.Session.DBPath)
	cfg.Skills.PromptDir = expandHome(cfg.Skills.PromptDir)
	cfg.General.LogFile = expandHome(cfg.General.LogFile)
	return cfg, nil
}

// Save writes the config as indented JSON.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Session.Backend {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("config: unknown session backend %q", c.Session.Backend)
	}
	if c.Session.Backend == "sqlite" && c.Session.DBPath == "" {
		return fmt.Errorf("config: sqlite session backend needs session.dbPath")
	}
	if c.Session.IdleTTLMinutes < 0 {
		return fmt.Errorf("config: negative session TTL")
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
