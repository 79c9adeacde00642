package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size" yaml:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity" yaml:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size" yaml:"block_size"`
	// HitLatency in cycles
	HitLatency uint64 `json:"hit_latency" yaml:"hit_latency"`
	// MissLatency in cycles (includes the next level's access time)
	MissLatency uint64 `json:"miss_latency" yaml:"miss_latency"`
	// NumCores is the number of cores sharing the cache.
	NumCores int `json:"num_cores" yaml:"num_cores"`
	// SamplerSetsPerCore overrides the number of SHiP sampled sets per
	// core. Zero selects the policy default.
	SamplerSetsPerCore int `json:"sampler_sets_per_core,omitempty" yaml:"sampler_sets_per_core,omitempty"`
}

// DefaultL1DConfig returns default configuration for a private L1 data
// cache: 128KB, 8-way, 64B lines.
func DefaultL1DConfig() Config {
	return Config{
		Size:          128 * 1024, // 128KB
		Associativity: 8,          // 8-way
		BlockSize:     64,         // 64B cache line
		HitLatency:    3,
		MissLatency:   12, // ~12 cycles to L2
		NumCores:      1,
	}
}

// DefaultL2Config returns default configuration for a private L2 cache:
// 512KB, 8-way, 64B lines.
func DefaultL2Config() Config {
	return Config{
		Size:          512 * 1024, // 512KB per core
		Associativity: 8,
		BlockSize:     64,
		HitLatency:    12,
		MissLatency:   40, // ~40 cycles to the LLC
		NumCores:      1,
	}
}

// DefaultLLCConfig returns a shared last-level cache with 2MB and 2048 sets
// per core, 16-way, 64B lines. SHiP samples 256 of every core's 2048 sets.
func DefaultLLCConfig(cores int) Config {
	if cores <= 0 {
		cores = 1
	}

	return Config{
		Size:          cores * 2 * 1024 * 1024,
		Associativity: 16,
		BlockSize:     64,
		HitLatency:    20,
		MissLatency:   150, // ~150 cycles to DRAM
		NumCores:      cores,
	}
}

// NumSets returns the number of sets implied by the geometry.
func (c Config) NumSets() int {
	if c.Associativity <= 0 || c.BlockSize <= 0 {
		return 0
	}
	return c.Size / (c.Associativity * c.BlockSize)
}

// LoadConfig loads a Config from a JSON or YAML file. Files ending in .yaml
// or .yml are read as YAML. Fields missing from the file keep the
// single-core LLC defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache config file: %w", err)
	}

	config := DefaultLLCConfig(1)
	if isYAML(path) {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse cache config: %w", err)
	}

	return &config, nil
}

// SaveConfig writes the Config to a JSON or YAML file, chosen by extension.
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
		return fmt.Errorf("failed to serialize cache config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache config file: %w", err)
	}

	return nil
}

// Validate checks that the geometry and latencies are usable.
func (c *Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("size must be > 0")
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0")
	}
	if c.BlockSize <= 0 || c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("block_size must be a power of two")
	}
	if c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("size must be a multiple of associativity * block_size")
	}
	if c.NumCores <= 0 {
		return fmt.Errorf("num_cores must be > 0")
	}
	if c.HitLatency == 0 {
		return fmt.Errorf("hit_latency must be > 0")
	}
	if c.MissLatency < c.HitLatency {
		return fmt.Errorf("miss_latency must be >= hit_latency")
	}
	if c.SamplerSetsPerCore < 0 {
		return fmt.Errorf("sampler_sets_per_core must be >= 0")
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

func isYAML(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}
