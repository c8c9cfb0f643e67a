package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-blockstream/dsp/core"
	"github.com/cwbudde/algo-blockstream/dsp/engine"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Engine != engine.NameDelay {
		t.Errorf("Engine = %q, want %q", cfg.Engine, engine.NameDelay)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.Quantum != 128 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Delay.Length != 0.2 || cfg.Delay.Wet != 0.5 || cfg.Delay.Feedback != 0.5 {
		t.Errorf("delay = %+v", cfg.Delay)
	}
	if cfg.Audio.ReportLevels {
		t.Error("levels should be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestBlockSizeDefaults(t *testing.T) {
	tests := []struct {
		engine string
		block  int
		want   int
	}{
		{engine.NameDelay, 0, 128},
		{engine.NamePitch, 0, 1024},
		{engine.NamePitch, 2048, 2048},
		{engine.NameDelay, 256, 256},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Engine = tt.engine
		cfg.Audio.BlockSize = tt.block
		if got := cfg.BlockSize(); got != tt.want {
			t.Errorf("%s/%d: BlockSize() = %d, want %d", tt.engine, tt.block, got, tt.want)
		}
	}
}

func TestProcessorDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audio.SampleRate = 48000
	cfg.Audio.Quantum = 256

	got := core.ApplyProcessorOptions(cfg.ProcessorDefaults()...)
	want := core.ProcessorConfig{SampleRate: 48000, BlockSize: 1024, MaxQuantum: 1024}
	if got != want {
		t.Fatalf("defaults = %+v, want %+v", got, want)
	}

	var set core.ProcessorConfig
	for _, opt := range cfg.ProcessorDefaults() {
		opt(&set)
	}
	if set.BlockSize != 0 {
		t.Fatalf("block size set to %d without audio.block_size", set.BlockSize)
	}

	cfg.Audio.BlockSize = 512
	set = core.ProcessorConfig{}
	for _, opt := range cfg.ProcessorDefaults() {
		opt(&set)
	}
	if set.BlockSize != 512 {
		t.Fatalf("block size = %d, want 512", set.BlockSize)
	}
}

func TestInitialize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine = engine.NamePitch
	cfg.Audio.Quantum = 441
	cfg.Pitch.ClarityThreshold = 0.7

	ev := cfg.Initialize()
	if ev.SampleRate != 44100 || ev.BlockSize != 1024 || ev.MaxQuantum != 4*441 {
		t.Fatalf("Initialize() = %+v", ev)
	}
	if got := ev.Params[engine.ParamClarityThreshold]; got != 0.7 {
		t.Errorf("clarity = %v, want 0.7", got)
	}
	if _, ok := ev.Params[engine.ParamWetAmount]; ok {
		t.Error("pitch session should not carry delay parameters")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Engine = engine.NamePitch
	cfg.Audio.BlockSize = 2048
	cfg.Bridge.Enabled = true
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Engine != engine.NamePitch || got.Audio.BlockSize != 2048 || !got.Bridge.Enabled {
		t.Errorf("loaded %+v", got)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("delay:\n  wet: 0.25\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Delay.Wet != 0.25 {
		t.Errorf("wet = %v, want 0.25", cfg.Delay.Wet)
	}
	if cfg.Delay.Feedback != 0.5 || cfg.Audio.SampleRate != 44100 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("audio: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoadWithFallbackExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine: pitch\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback: %v", err)
	}
	if cfg.Engine != engine.NamePitch {
		t.Errorf("Engine = %q", cfg.Engine)
	}
}

func TestLoadWithFallbackHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, ".blockstream.yaml"), []byte("audio:\n  quantum: 256\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadWithFallback("")
	if err != nil {
		t.Fatalf("LoadWithFallback: %v", err)
	}
	if cfg.Audio.Quantum != 256 {
		t.Errorf("Quantum = %d, want 256", cfg.Audio.Quantum)
	}
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	if err := os.WriteFile(dotenv, []byte("BLOCKSTREAM_DELAY_FEEDBACK=0.75\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BLOCKSTREAM_ENGINE", "pitch")
	t.Setenv("BLOCKSTREAM_REPORT_LEVELS", "true")
	t.Cleanup(func() { os.Unsetenv("BLOCKSTREAM_DELAY_FEEDBACK") })

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(dotenv, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Engine != engine.NamePitch {
		t.Errorf("Engine = %q", cfg.Engine)
	}
	if !cfg.Audio.ReportLevels {
		t.Error("ReportLevels not applied")
	}
	if cfg.Delay.Feedback != 0.75 {
		t.Errorf("Feedback = %v, want 0.75", cfg.Delay.Feedback)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("unset variable overwrote SampleRate: %v", cfg.Audio.SampleRate)
	}
}

func TestRegisterFlags(t *testing.T) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)

	if err := fs.Parse([]string{"-engine", "pitch", "-quantum", "441", "-wet", "0.1"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Engine != engine.NamePitch || cfg.Audio.Quantum != 441 || cfg.Delay.Wet != 0.1 {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Delay.Feedback != 0.5 {
		t.Errorf("untouched flag changed Feedback: %v", cfg.Delay.Feedback)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown engine", func(c *Config) { c.Engine = "reverb" }},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }},
		{"negative block", func(c *Config) { c.Audio.BlockSize = -1 }},
		{"zero quantum", func(c *Config) { c.Audio.Quantum = 0 }},
		{"max below quantum", func(c *Config) { c.Audio.MaxQuantum = 64 }},
		{"wet out of range", func(c *Config) { c.Delay.Wet = 1.5 }},
		{"feedback out of range", func(c *Config) { c.Delay.Feedback = 1 }},
		{"clarity out of range", func(c *Config) {
			c.Engine = engine.NamePitch
			c.Pitch.ClarityThreshold = 2
		}},
		{"bad bridge path", func(c *Config) {
			c.Bridge.Enabled = true
			c.Bridge.Path = "control"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
