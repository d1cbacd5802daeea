package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"mclaunch/internal/paths"
	"mclaunch/internal/platform"
	"mclaunch/internal/rules"
)

// DefaultUUID is the identity substituted for ${auth_uuid} in offline play.
const DefaultUUID = "f81d4fae-7dec-11d0-a765-00a0c91e6bf6"

// Config captures launcher settings. It is passed explicitly to every
// component; there is no process-wide instance.
type Config struct {
	Version      int             `yaml:"version" toml:"version"`
	Platform     string          `yaml:"platform,omitempty" toml:"platform,omitempty"`
	Architecture string          `yaml:"architecture,omitempty" toml:"architecture,omitempty" validate:"omitempty,oneof=x86 x86_64 arm64"`
	ArchRuleMode string          `yaml:"arch_rule_mode" toml:"arch_rule_mode" validate:"oneof=arch os"`
	Downloads    DownloadsConfig `yaml:"downloads" toml:"downloads"`
	Game         GameConfig      `yaml:"game" toml:"game"`
}

// DownloadsConfig tunes the artifact fetcher.
type DownloadsConfig struct {
	Concurrency int    `yaml:"concurrency" toml:"concurrency" validate:"min=1,max=64"`
	UserAgent   string `yaml:"user_agent" toml:"user_agent" validate:"required"`
}

// GameConfig is the user-facing launch configuration.
type GameConfig struct {
	Username        string   `yaml:"username" toml:"username" validate:"required,max=16"`
	UUID            string   `yaml:"uuid" toml:"uuid"`
	JavaPath        string   `yaml:"java_path,omitempty" toml:"java_path,omitempty"`
	JVMArgs         []string `yaml:"jvm_args,omitempty" toml:"jvm_args,omitempty"`
	GameArgs        []string `yaml:"game_args,omitempty" toml:"game_args,omitempty"`
	LauncherName    string   `yaml:"launcher_name" toml:"launcher_name" validate:"required"`
	LauncherVersion string   `yaml:"launcher_version" toml:"launcher_version" validate:"required"`
	LegacySounds    bool     `yaml:"legacy_sounds" toml:"legacy_sounds"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version:      1,
		ArchRuleMode: string(rules.ArchCompareArch),
		Downloads: DownloadsConfig{
			Concurrency: 5,
			UserAgent:   "mclaunch/1.0",
		},
		Game: GameConfig{
			Username:        "Player",
			UUID:            DefaultUUID,
			LauncherName:    "mclaunch",
			LauncherVersion: "1.0",
		},
	}
}

// Load reads the configuration from disk if it exists, otherwise returns the
// default configuration. Files ending in .toml are decoded as TOML, anything
// else as YAML.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if isTOML(path) {
		if err := toml.Unmarshal(contents, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(contents, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyDefaults ensures fields fall back to defaults when the file omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.ArchRuleMode == "" {
		c.ArchRuleMode = defaults.ArchRuleMode
	}
	if c.Downloads.Concurrency == 0 {
		c.Downloads.Concurrency = defaults.Downloads.Concurrency
	}
	if c.Downloads.UserAgent == "" {
		c.Downloads.UserAgent = defaults.Downloads.UserAgent
	}
	if c.Game.Username == "" {
		c.Game.Username = defaults.Game.Username
	}
	if c.Game.UUID == "" {
		c.Game.UUID = defaults.Game.UUID
	}
	if c.Game.LauncherName == "" {
		c.Game.LauncherName = defaults.Game.LauncherName
	}
	if c.Game.LauncherVersion == "" {
		c.Game.LauncherVersion = defaults.Game.LauncherVersion
	}
}

// PlatformContext returns the configured platform, detecting unset parts.
func (c Config) PlatformContext() platform.Context {
	if strings.TrimSpace(c.Platform) == "" {
		detected := platform.Detect()
		if c.Architecture != "" {
			detected.Arch = c.Architecture
		}
		return detected
	}
	return platform.FromName(c.Platform, c.Architecture)
}

// Evaluator returns the rule evaluator for the configured platform and arch mode.
func (c Config) Evaluator() rules.Evaluator {
	return rules.NewEvaluator(c.PlatformContext(), rules.ArchMode(c.ArchRuleMode))
}

// Marshal returns the encoding of the configuration matching path's extension.
func (c Config) Marshal(path string) ([]byte, error) {
	var (
		buf []byte
		err error
	)
	if isTOML(path) {
		buf, err = toml.Marshal(c)
	} else {
		buf, err = yaml.Marshal(&c)
	}
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

// Save writes the configuration to path, replacing any existing file.
func (c Config) Save(path string) error {
	buf, err := c.Marshal(path)
	if err != nil {
		return err
	}
	if err := paths.WriteFileAtomic(path, buf); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
