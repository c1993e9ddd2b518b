// Package config loads the YAML configuration file and supplies
// defaults for every knob the daemon exposes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Addr          string           `yaml:"addr"` // HTTP bind address, loopback
	Model         ModelConfig      `yaml:"model"`
	Audio         AudioConfig      `yaml:"audio"`
	Hotkey        HotkeyConfig     `yaml:"hotkey"`
	Transcribe    TranscribeConfig `yaml:"transcribe"`
	Inject        InjectConfig     `yaml:"inject"`
	RecordingsDir string           `yaml:"recordings_dir"`
	LogLevel      string           `yaml:"log_level"`
}

// ModelConfig selects the Whisper model.
type ModelConfig struct {
	// Path is the ggml file loaded at startup. Empty means no model
	// is preselected; the daemon serves 503 until one is loaded.
	Path string `yaml:"path"`
	// Dir is where downloaded models live.
	Dir string `yaml:"dir"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	// Device is matched against capture device names, exact first,
	// then case-insensitive substring. Empty selects the default.
	Device     string `yaml:"device"`
	SampleRate uint32 `yaml:"sample_rate"`
	Channels   uint32 `yaml:"channels"`
}

// HotkeyConfig holds the global hotkey settings.
type HotkeyConfig struct {
	Keys []string `yaml:"keys"`
	Mode string   `yaml:"mode"` // "hold" or "toggle"
}

// TranscribeConfig holds decoding hints passed along with each request.
type TranscribeConfig struct {
	Language string `yaml:"language"`
	Prompt   string `yaml:"prompt"`
}

// InjectConfig holds text delivery settings.
type InjectConfig struct {
	// AutoPaste taps the platform paste chord after copying. With it
	// off the text only lands on the clipboard.
	AutoPaste bool `yaml:"auto_paste"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "whisperd")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultDataDir returns the default data directory (models and
// recording artifacts).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "whisperd")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	data := DefaultDataDir()
	return &Config{
		Addr: "127.0.0.1:9000",
		Model: ModelConfig{
			Dir: filepath.Join(data, "models"),
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
		},
		Hotkey: HotkeyConfig{
			Keys: []string{"ctrl", "shift", "r"},
			Mode: "hold",
		},
		Transcribe: TranscribeConfig{
			Language: "en",
		},
		RecordingsDir: filepath.Join(data, "recordings"),
		LogLevel:      "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults; a leading ~ in paths expands to the home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.Model.Path = expandTilde(cfg.Model.Path)
	cfg.Model.Dir = expandTilde(cfg.Model.Dir)
	cfg.RecordingsDir = expandTilde(cfg.RecordingsDir)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.Model.Dir == "" {
		return fmt.Errorf("model.dir must not be empty")
	}
	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}
	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}
	if len(c.Hotkey.Keys) == 0 {
		return fmt.Errorf("hotkey.keys must not be empty")
	}
	switch c.Hotkey.Mode {
	case "hold", "toggle":
	default:
		return fmt.Errorf("hotkey.mode must be \"hold\" or \"toggle\", got %q", c.Hotkey.Mode)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}
	return nil
}

// WriteDefault writes a commented default config to the default path
// if none exists yet. It returns the written path, or "" when a config
// was already present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}
	if err := os.MkdirAll(DefaultConfigDir(), 0o755); err != nil {
		return "", fmt.Errorf("config: creating config dir: %w", err)
	}

	out, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("config: marshaling defaults: %w", err)
	}
	content := append([]byte("# whisperd configuration\n"), out...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("config: writing %s: %w", path, err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
