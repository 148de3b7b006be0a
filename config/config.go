// Package config holds the emulator's run configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/armsim/emu"
	"github.com/sarchlab/armsim/loader"
)

// Config holds the settings for one emulator run. Files ending in .yaml or
// .yml are read as YAML; anything else is read as JSON.
type Config struct {
	// MemorySize is the RAM size in bytes. Default: 32768.
	MemorySize int `json:"memory_size" yaml:"memory_size"`

	// StackTop is the initial stack pointer after a load. Default: 0x7000.
	StackTop uint32 `json:"stack_top" yaml:"stack_top"`

	// TraceFile is the trace log path. Empty disables tracing.
	TraceFile string `json:"trace_file" yaml:"trace_file"`

	// TraceAll traces steps in every mode instead of System mode only.
	TraceAll bool `json:"trace_all" yaml:"trace_all"`

	// RunDelayMS is the pause between steps in continuous run, in
	// milliseconds. Zero yields without sleeping.
	RunDelayMS uint64 `json:"run_delay_ms" yaml:"run_delay_ms"`

	// Breakpoints are instruction addresses that halt a run.
	Breakpoints []uint32 `json:"breakpoints" yaml:"breakpoints"`

	// MaxSteps stops a run after this many steps. Zero means no limit.
	MaxSteps uint64 `json:"max_steps" yaml:"max_steps"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		MemorySize: emu.DefaultMemorySize,
		StackTop:   loader.DefaultStackTop,
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadConfig loads a Config from a JSON or YAML file. Fields missing from
// the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON or YAML file.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)

	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the values describe a usable machine.
func (c *Config) Validate() error {
	if c.MemorySize <= 0 {
		return fmt.Errorf("memory_size must be > 0")
	}
	if c.MemorySize%4 != 0 {
		return fmt.Errorf("memory_size must be a multiple of 4")
	}
	if c.StackTop%4 != 0 {
		return fmt.Errorf("stack_top must be word aligned")
	}
	if uint64(c.StackTop) > uint64(c.MemorySize) {
		return fmt.Errorf("stack_top 0x%x is outside memory", c.StackTop)
	}
	for _, bp := range c.Breakpoints {
		if bp%4 != 0 {
			return fmt.Errorf("breakpoint 0x%x is not word aligned", bp)
		}
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Breakpoints = slices.Clone(c.Breakpoints)
	return &clone
}

// RunDelay returns RunDelayMS as a duration.
func (c *Config) RunDelay() time.Duration {
	return time.Duration(c.RunDelayMS) * time.Millisecond
}

// EmulatorOptions converts the machine settings into emulator options.
// Tracing is left to the caller, which owns the trace file.
func (c *Config) EmulatorOptions() []emu.EmulatorOption {
	return []emu.EmulatorOption{
		emu.WithMemorySize(c.MemorySize),
		emu.WithStackTop(c.StackTop),
		emu.WithRunDelay(c.RunDelay()),
		emu.WithMaxSteps(c.MaxSteps),
		emu.WithBreakpoints(c.Breakpoints...),
	}
}
