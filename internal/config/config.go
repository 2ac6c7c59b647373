/*
Package config loads the process configuration: built-in defaults, then an
optional YAML file, then environment variable overrides — the same
override order cuemby/warren's cmd/warren binds its flags and env together
with, generalized here into a single explicit Load function instead of
cobra flag wiring (cobra still supplies the file path and bind address,
see cmd/orchestratord).
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every environment-tunable value named in SPEC_FULL.md §1.
type Config struct {
	// ProjectRoot is the base directory the Artifact Store resolves all
	// relative paths under.
	ProjectRoot string `yaml:"projectRoot"`

	// BindAddr is the HTTP surface's listen address, e.g. ":8080".
	BindAddr string `yaml:"bindAddr"`

	// WorkerConcurrency bounds the number of compute workers that may run
	// concurrently across all job kinds.
	WorkerConcurrency int `yaml:"workerConcurrency"`

	// AdmissionQueueDepth bounds how many submissions may wait for a free
	// worker slot before new submissions are rejected synchronously.
	AdmissionQueueDepth int `yaml:"admissionQueueDepth"`

	// CacheSweepInterval is how often the TTL cache's background sweeper
	// scans for expired entries.
	CacheSweepInterval time.Duration `yaml:"cacheSweepInterval"`

	// DefaultTimeouts holds the per-kind worker deadline used when a
	// request does not override it.
	DefaultTimeouts TimeoutConfig `yaml:"defaultTimeouts"`

	// WorkerExecutables maps a job kind to the executable invoked to run
	// its compute worker.
	WorkerExecutables map[string]string `yaml:"workerExecutables"`

	LogLevel  string `yaml:"logLevel"`
	LogJSON   bool   `yaml:"logJSON"`
}

// TimeoutConfig holds the default worker deadline per job kind.
type TimeoutConfig struct {
	Forecast time.Duration `yaml:"forecast"`
	Profile  time.Duration `yaml:"profile"`
	Pypsa    time.Duration `yaml:"pypsa"`
}

// Default returns the built-in configuration used when no file or
// environment overrides are present.
func Default() Config {
	return Config{
		ProjectRoot:         "./data",
		BindAddr:            ":8080",
		WorkerConcurrency:   0, // 0 means "use runtime.NumCPU()"
		AdmissionQueueDepth: 256,
		CacheSweepInterval:  30 * time.Second,
		DefaultTimeouts: TimeoutConfig{
			Forecast: 5 * time.Minute,
			Profile:  5 * time.Minute,
			Pypsa:    15 * time.Minute,
		},
		WorkerExecutables: map[string]string{
			"forecast": "./workers/forecast.py",
			"profile":  "./workers/loadprofile.py",
			"pypsa":    "./workers/pypsa.py",
		},
		LogLevel: "info",
		LogJSON:  false,
	}
}

// Load builds a Config starting from Default, overlaying filePath (if
// non-empty) and then environment variables prefixed ORCHESTRATOR_.
func Load(filePath string) (Config, error) {
	cfg := Default()

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ORCHESTRATOR_PROJECT_ROOT"); v != "" {
		cfg.ProjectRoot = v
	}
	if v := os.Getenv("ORCHESTRATOR_BIND_ADDR"); v != "" {
		cfg.BindAddr = v
	}
	if v := os.Getenv("ORCHESTRATOR_WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WorkerConcurrency = n
		}
	}
	if v := os.Getenv("ORCHESTRATOR_CACHE_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheSweepInterval = d
		}
	}
	if v := os.Getenv("ORCHESTRATOR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ORCHESTRATOR_LOG_JSON"); v != "" {
		cfg.LogJSON = v == "true" || v == "1"
	}
}
