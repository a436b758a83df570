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

//go:build linux

package sandbox

import (
	"strings"
	"testing"

	"github.com/gradesandbox/sandbox/pkg/sandbox/config"
	"github.com/gradesandbox/sandbox/pkg/verdict"
)

func TestCompileNonexistentBinaryFails(t *testing.T) {
	s := New(config.Default(), nil)
	if _, err := s.Compile("/nonexistent/compiler-binary", nil); err == nil {
		t.Fatal("Compile of a nonexistent binary succeeded, want an error")
	}
}

func TestCompileCapturesStderr(t *testing.T) {
	s := New(config.Default(), nil)
	_, err := s.Compile("/bin/sh", []string{"-c", "echo syntax error: unexpected token >&2; exit 1"})
	if err == nil {
		t.Fatal("Compile of a failing script succeeded, want an error")
	}
	if !strings.Contains(err.Error(), "syntax error") {
		t.Errorf("error = %q, want it to contain the script's stderr", err.Error())
	}
}

func TestExecImmediateExitZero(t *testing.T) {
	s := New(config.Default(), nil)
	state, err := s.Exec("/bin/true", nil, 5, 64<<20)
	if err != nil {
		t.Fatalf("Exec(/bin/true) = %v", err)
	}
	if state.Verdict.Kind != verdict.Ok {
		t.Errorf("Verdict = %v, want Ok", state.Verdict)
	}
	if state.MaxTimeMs > 2000 {
		t.Errorf("MaxTimeMs = %d, want a small value for an immediate exit", state.MaxTimeMs)
	}
}

func TestExecNonzeroExit(t *testing.T) {
	s := New(config.Default(), nil)
	state, err := s.Exec("/bin/false", nil, 5, 64<<20)
	if err != nil {
		t.Fatalf("Exec(/bin/false) = %v", err)
	}
	if state.Verdict.Kind != verdict.Nzec {
		t.Errorf("Verdict = %v, want Nzec", state.Verdict)
	}
	if state.Verdict.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", state.Verdict.ExitCode)
	}
}
