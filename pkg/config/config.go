package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/anthonyjamesgoddard/LockFree/internal/testbench"
	"github.com/anthonyjamesgoddard/LockFree/pkg/lockfreestack"
)

// Workload is an alias for testbench.Config. This allows other programs to import
// the workload shape without pulling in the entire testbench package.
type Workload = testbench.Config

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid")

// Config is the benchmark configuration.
type Config struct {
	// Workers lists the worker counts to sweep.
	Workers []int `yaml:"workers"`
	// TotalItems is the number of pushes per run, split across workers.
	TotalItems int `yaml:"total_items"`
	// PayloadSize is the length of the []int pushed each time.
	PayloadSize int `yaml:"payload_size"`
	// Iterations repeats each (cpu, workers) pair this many times.
	Iterations int `yaml:"iterations"`
	// CPUs pins GOMAXPROCS; 0 sweeps common values up to runtime.NumCPU().
	CPUs int `yaml:"cpus"`
	// Backoff is the lock-free CAS backoff: none, spin or sleep.
	Backoff string `yaml:"backoff"`
	// Implementations filters by package name; empty runs all of them.
	Implementations []string `yaml:"implementations"`
}

// Default returns the reference workload: 4 workers pushing 210000
// vectors of 1000 ints.
func Default() Config {
	return Config{
		Workers:     []int{4},
		TotalItems:  210000,
		PayloadSize: 1000,
		Iterations:  5,
		Backoff:     "none",
	}
}

// Load decodes a YAML file over Default and validates the result. Keys
// missing from the file keep their default; keys present, zero included,
// replace it.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if len(c.Workers) == 0 {
		return fmt.Errorf("%w: no worker counts", ErrInvalidConfig)
	}
	for _, w := range c.Workers {
		if w < 1 {
			return fmt.Errorf("%w: worker count %d < 1", ErrInvalidConfig, w)
		}
	}
	if c.TotalItems < 1 {
		return fmt.Errorf("%w: total_items %d < 1", ErrInvalidConfig, c.TotalItems)
	}
	if c.PayloadSize < 0 {
		return fmt.Errorf("%w: payload_size %d < 0", ErrInvalidConfig, c.PayloadSize)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("%w: iterations %d < 1", ErrInvalidConfig, c.Iterations)
	}
	if c.CPUs < 0 {
		return fmt.Errorf("%w: cpus %d < 0", ErrInvalidConfig, c.CPUs)
	}
	if _, err := lockfreestack.ParseBackoff(c.Backoff); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Workloads expands the worker sweep into one Workload per worker count.
func (c Config) Workloads() []Workload {
	out := make([]Workload, 0, len(c.Workers))
	for _, w := range c.Workers {
		out = append(out, Workload{NumWorkers: w, TotalItems: c.TotalItems})
	}
	return out
}

// Selected reports whether the implementation with the given package name
// should run.
func (c Config) Selected(pkgName string) bool {
	if len(c.Implementations) == 0 {
		return true
	}
	for _, name := range c.Implementations {
		if strings.EqualFold(name, pkgName) {
			return true
		}
	}
	return false
}

// ParseIntList parses a comma separated list such as "1,2,4,8".
func ParseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidConfig, part)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseNameList splits a comma separated list of names, dropping blanks.
func ParseNameList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetEnvInt reads a positive integer from an environment variable with a
// default value.
func GetEnvInt(name string, defaultVal int) int {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return defaultVal
}

// GetEnvBool reads a boolean from an environment variable with a default value.
func GetEnvBool(name string, defaultVal bool) bool {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
