// Package config loads blockstream application settings from a YAML file,
// a .env file, the environment and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-blockstream/dsp/core"
	"github.com/cwbudde/algo-blockstream/dsp/engine"
	"github.com/cwbudde/algo-blockstream/dsp/quantum"
)

// Config is the application configuration.
type Config struct {
	// Engine is the engine registry name: "pitch" or "delay".
	Engine string `yaml:"engine" env:"BLOCKSTREAM_ENGINE"`

	Audio  AudioConfig  `yaml:"audio"`
	Delay  DelayConfig  `yaml:"delay"`
	Pitch  PitchConfig  `yaml:"pitch"`
	Bridge BridgeConfig `yaml:"bridge"`
	Log    LogConfig    `yaml:"log"`
}

// AudioConfig sizes the streaming session.
type AudioConfig struct {
	SampleRate float64 `yaml:"sample_rate" env:"BLOCKSTREAM_SAMPLE_RATE"`
	// BlockSize of 0 selects 1024 for pitch and 128 for delay.
	BlockSize int `yaml:"block_size" env:"BLOCKSTREAM_BLOCK_SIZE"`
	// Quantum is the callback size requested from the device, and the
	// chunk size used when rendering files.
	Quantum int `yaml:"quantum" env:"BLOCKSTREAM_QUANTUM"`
	// MaxQuantum of 0 allows four times Quantum.
	MaxQuantum   int  `yaml:"max_quantum" env:"BLOCKSTREAM_MAX_QUANTUM"`
	ReportLevels bool `yaml:"report_levels" env:"BLOCKSTREAM_REPORT_LEVELS"`
}

// DelayConfig holds the initial delay engine parameters.
type DelayConfig struct {
	Length   float64 `yaml:"length" env:"BLOCKSTREAM_DELAY_LENGTH"`
	Wet      float64 `yaml:"wet" env:"BLOCKSTREAM_DELAY_WET"`
	Feedback float64 `yaml:"feedback" env:"BLOCKSTREAM_DELAY_FEEDBACK"`
}

// PitchConfig holds the initial pitch engine parameters.
type PitchConfig struct {
	PowerThreshold   float64 `yaml:"power_threshold" env:"BLOCKSTREAM_PITCH_POWER"`
	ClarityThreshold float64 `yaml:"clarity_threshold" env:"BLOCKSTREAM_PITCH_CLARITY"`
}

// BridgeConfig configures the websocket control bridge.
type BridgeConfig struct {
	Enabled bool   `yaml:"enabled" env:"BLOCKSTREAM_BRIDGE_ENABLED"`
	Addr    string `yaml:"addr" env:"BLOCKSTREAM_BRIDGE_ADDR"`
	Path    string `yaml:"path" env:"BLOCKSTREAM_BRIDGE_PATH"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level       string `yaml:"level" env:"BLOCKSTREAM_LOG_LEVEL"`
	Development bool   `yaml:"development" env:"BLOCKSTREAM_LOG_DEV"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Engine = engine.NameDelay

	cfg.Audio.SampleRate = 44100
	cfg.Audio.BlockSize = 0
	cfg.Audio.Quantum = 128

	cfg.Delay.Length = 0.2
	cfg.Delay.Wet = 0.5
	cfg.Delay.Feedback = 0.5

	cfg.Pitch.PowerThreshold = 5.0
	cfg.Pitch.ClarityThreshold = 0.6

	cfg.Bridge.Enabled = false
	cfg.Bridge.Addr = "127.0.0.1:8787"
	cfg.Bridge.Path = "/control"

	cfg.Log.Level = "info"

	return cfg
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.blockstream.yaml > /etc/blockstream/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".blockstream.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			cfg, err := Load(userConfigPath)
			if err == nil {
				return cfg, nil
			}
		}
	}

	systemConfigPath := "/etc/blockstream/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		cfg, err := Load(systemConfigPath)
		if err == nil {
			return cfg, nil
		}
	}

	return DefaultConfig(), nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads the given .env files, if present, and then overrides
// fields from BLOCKSTREAM_* environment variables. Missing .env files are
// not an error.
func (c *Config) ApplyEnv(dotenv ...string) error {
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// RegisterFlags binds command-line flags to c. Values already in c become
// the flag defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Engine, "engine", c.Engine, "engine to drive: pitch|delay")
	fs.Float64Var(&c.Audio.SampleRate, "sample-rate", c.Audio.SampleRate, "sample rate in Hz")
	fs.IntVar(&c.Audio.BlockSize, "block-size", c.Audio.BlockSize, "analysis block size (0 = engine default)")
	fs.IntVar(&c.Audio.Quantum, "quantum", c.Audio.Quantum, "callback size in samples")
	fs.IntVar(&c.Audio.MaxQuantum, "max-quantum", c.Audio.MaxQuantum, "largest accepted callback (0 = 4x quantum)")
	fs.BoolVar(&c.Audio.ReportLevels, "report-levels", c.Audio.ReportLevels, "emit input/output levels from effect engines")
	fs.Float64Var(&c.Delay.Length, "delay-length", c.Delay.Length, "delay time in seconds")
	fs.Float64Var(&c.Delay.Wet, "wet", c.Delay.Wet, "delay wet amount in [0, 1]")
	fs.Float64Var(&c.Delay.Feedback, "feedback", c.Delay.Feedback, "delay feedback in [0, 0.99]")
	fs.Float64Var(&c.Pitch.PowerThreshold, "power-threshold", c.Pitch.PowerThreshold, "pitch power gate")
	fs.Float64Var(&c.Pitch.ClarityThreshold, "clarity-threshold", c.Pitch.ClarityThreshold, "pitch clarity gate in [0, 1]")
	fs.BoolVar(&c.Bridge.Enabled, "bridge", c.Bridge.Enabled, "serve the websocket control bridge")
	fs.StringVar(&c.Bridge.Addr, "bridge-addr", c.Bridge.Addr, "websocket bridge listen address")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "log level: debug|info|warn|error")
	fs.BoolVar(&c.Log.Development, "log-dev", c.Log.Development, "human-friendly development logging")
}

// BlockSize returns the configured block size or the engine default.
func (c *Config) BlockSize() int {
	if c.Audio.BlockSize > 0 {
		return c.Audio.BlockSize
	}
	if c.Engine == engine.NamePitch {
		return engine.DefaultBlockSize(engine.KindPitch)
	}
	return engine.DefaultBlockSize(engine.KindEffect)
}

// ProcessorDefaults returns the processor options for sessions whose
// Initialize leaves fields zero. The block size is passed only when set
// explicitly so an engine loaded later picks its own default. The max
// quantum always is: the device period must fit every session.
func (c *Config) ProcessorDefaults() []core.ProcessorOption {
	return []core.ProcessorOption{
		core.WithSampleRate(c.Audio.SampleRate),
		core.WithBlockSize(c.Audio.BlockSize),
		core.WithMaxQuantum(c.MaxQuantum()),
	}
}

// MaxQuantum returns the configured max quantum or four times Quantum.
func (c *Config) MaxQuantum() int {
	if c.Audio.MaxQuantum > 0 {
		return c.Audio.MaxQuantum
	}
	return 4 * c.Audio.Quantum
}

// Validate checks the configuration for values no session can use.
func (c *Config) Validate() error {
	var errs []error
	switch c.Engine {
	case engine.NamePitch, engine.NameDelay:
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q", c.Engine))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be > 0: %g", c.Audio.SampleRate))
	}
	if c.Audio.BlockSize < 0 {
		errs = append(errs, fmt.Errorf("block size must be >= 0: %d", c.Audio.BlockSize))
	}
	if c.Audio.Quantum <= 0 {
		errs = append(errs, fmt.Errorf("quantum must be > 0: %d", c.Audio.Quantum))
	}
	if c.Audio.MaxQuantum != 0 && c.Audio.MaxQuantum < c.Audio.Quantum {
		errs = append(errs, fmt.Errorf("max quantum %d below quantum %d", c.Audio.MaxQuantum, c.Audio.Quantum))
	}
	for p, v := range c.params() {
		if err := engine.Validate(p.Kind(), p, v); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Bridge.Enabled && !strings.HasPrefix(c.Bridge.Path, "/") {
		errs = append(errs, fmt.Errorf("bridge path must start with '/': %q", c.Bridge.Path))
	}
	return errors.Join(errs...)
}

func (c *Config) params() map[engine.Parameter]float64 {
	if c.Engine == engine.NamePitch {
		return map[engine.Parameter]float64{
			engine.ParamPowerThreshold:   c.Pitch.PowerThreshold,
			engine.ParamClarityThreshold: c.Pitch.ClarityThreshold,
		}
	}
	return map[engine.Parameter]float64{
		engine.ParamDelayLength: c.Delay.Length,
		engine.ParamWetAmount:   c.Delay.Wet,
		engine.ParamFeedback:    c.Delay.Feedback,
	}
}

// Initialize returns the Initialize event for this configuration.
func (c *Config) Initialize() quantum.Initialize {
	return quantum.Initialize{
		SampleRate:   c.Audio.SampleRate,
		BlockSize:    c.BlockSize(),
		MaxQuantum:   c.MaxQuantum(),
		Params:       c.params(),
		ReportLevels: c.Audio.ReportLevels,
	}
}
