// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the small set of tunables the sandbox needs outside
// of a single Compile/Exec call: the compiler's own resource budget, the
// wall-clock grace period layered on top of a submission's CPU limit, and
// the defaults applied when a caller does not specify per-submission
// limits.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the sandbox's operating parameters.
type Config struct {
	// CompilerCPUSeconds bounds how long a compile step may run before it
	// is treated as TimeLimitExceeded.
	CompilerCPUSeconds uint64 `yaml:"compiler_cpu_seconds"`

	// DeadlineGrace is added to a submission's CPU time limit to compute
	// the wall-clock deadline backstopping the CPU rlimit; it absorbs
	// scheduling jitter and I/O-bound submissions that burn wall time
	// without burning CPU time.
	DeadlineGrace time.Duration `yaml:"deadline_grace"`

	// DefaultTimeLimitSeconds and DefaultMemLimitBytes apply when a caller
	// submits a run without specifying its own limits.
	DefaultTimeLimitSeconds uint64 `yaml:"default_time_limit_seconds"`
	DefaultMemLimitBytes    uint64 `yaml:"default_mem_limit_bytes"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		CompilerCPUSeconds:      3,
		DeadlineGrace:           2 * time.Second,
		DefaultTimeLimitSeconds: 5,
		DefaultMemLimitBytes:    256 << 20,
	}
}

// Load reads a YAML configuration file at path and fills in any field left
// at its zero value with the corresponding Default() value.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	loaded := &Config{}
	if err := yaml.NewDecoder(f).Decode(loaded); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyDefaults(loaded, cfg)
	return loaded, nil
}

func applyDefaults(cfg, defaults *Config) {
	if cfg.CompilerCPUSeconds == 0 {
		cfg.CompilerCPUSeconds = defaults.CompilerCPUSeconds
	}
	if cfg.DeadlineGrace == 0 {
		cfg.DeadlineGrace = defaults.DeadlineGrace
	}
	if cfg.DefaultTimeLimitSeconds == 0 {
		cfg.DefaultTimeLimitSeconds = defaults.DefaultTimeLimitSeconds
	}
	if cfg.DefaultMemLimitBytes == 0 {
		cfg.DefaultMemLimitBytes = defaults.DefaultMemLimitBytes
	}
}
