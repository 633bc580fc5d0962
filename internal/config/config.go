package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all synapse configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Engine   EngineConfig   `yaml:"engine"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EngineConfig is the tuning surface for the session state machine,
// retrieval, and surprise-driven capture.
type EngineConfig struct {
	// Message-count thresholds for context phase transitions.
	ContextPhaseMid  int `yaml:"context_phase_mid"`
	ContextPhaseLate int `yaml:"context_phase_late"`

	// Messages between consolidation checkpoints in the early phase.
	// Mid and late phases tighten this to 75% and 50%.
	CheckpointInterval int `yaml:"checkpoint_interval"`

	// Days without access before a memory counts as decayed.
	DecayThresholdDays int `yaml:"decay_threshold_days"`

	// Attention budget (max retrieved memories) per context phase.
	// Shrinks as the phase advances.
	AttentionEarly int `yaml:"attention_early"`
	AttentionMid   int `yaml:"attention_mid"`
	AttentionLate  int `yaml:"attention_late"`

	// Surprise score at or above which an event is auto-captured
	// as a new memory.
	SurpriseThreshold float64 `yaml:"surprise_threshold"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37878,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Engine: EngineConfig{
			ContextPhaseMid:    10,
			ContextPhaseLate:   25,
			CheckpointInterval: 10,
			DecayThresholdDays: 14,
			AttentionEarly:     10,
			AttentionMid:       7,
			AttentionLate:      5,
			SurpriseThreshold:  0.7,
		},
	}
}

// DefaultPath returns the default config file path: ~/.synapse/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".synapse", "config.yaml"), nil
}

// Load reads the YAML config at path, layered over Default().
// A missing file is not an error — defaults apply. A file that fails to
// parse or validate is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Engine.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects threshold combinations that would produce nonsensical
// phase or checkpoint arithmetic.
func (e EngineConfig) Validate() error {
	if e.ContextPhaseMid <= 0 {
		return fmt.Errorf("context_phase_mid must be positive, got %d", e.ContextPhaseMid)
	}
	if e.ContextPhaseLate <= 0 {
		return fmt.Errorf("context_phase_late must be positive, got %d", e.ContextPhaseLate)
	}
	if e.ContextPhaseMid >= e.ContextPhaseLate {
		return fmt.Errorf("context_phase_mid (%d) must be below context_phase_late (%d)", e.ContextPhaseMid, e.ContextPhaseLate)
	}
	if e.CheckpointInterval < 2 {
		return fmt.Errorf("checkpoint_interval must be at least 2, got %d", e.CheckpointInterval)
	}
	if e.DecayThresholdDays <= 0 {
		return fmt.Errorf("decay_threshold_days must be positive, got %d", e.DecayThresholdDays)
	}
	if e.AttentionEarly <= 0 || e.AttentionMid <= 0 || e.AttentionLate <= 0 {
		return fmt.Errorf("attention budgets must be positive, got %d/%d/%d", e.AttentionEarly, e.AttentionMid, e.AttentionLate)
	}
	if e.SurpriseThreshold <= 0 || e.SurpriseThreshold > 1 {
		return fmt.Errorf("surprise_threshold must be in (0, 1], got %g", e.SurpriseThreshold)
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
