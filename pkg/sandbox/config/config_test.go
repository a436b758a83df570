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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadNoPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Load(\"\") = %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoadAppliesDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "default_time_limit_seconds: 10\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) = %v", path, err)
	}
	if cfg.DefaultTimeLimitSeconds != 10 {
		t.Errorf("DefaultTimeLimitSeconds = %d, want 10", cfg.DefaultTimeLimitSeconds)
	}
	if cfg.CompilerCPUSeconds != Default().CompilerCPUSeconds {
		t.Errorf("CompilerCPUSeconds = %d, want default %d", cfg.CompilerCPUSeconds, Default().CompilerCPUSeconds)
	}
	if cfg.DeadlineGrace != Default().DeadlineGrace {
		t.Errorf("DeadlineGrace = %v, want default %v", cfg.DeadlineGrace, Default().DeadlineGrace)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load of a nonexistent file returned nil error")
	}
}

func TestLoadParsesDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("deadline_grace: 5s\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) = %v", path, err)
	}
	if cfg.DeadlineGrace != 5*time.Second {
		t.Errorf("DeadlineGrace = %v, want 5s", cfg.DeadlineGrace)
	}
}
