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

package verdict

import (
	"syscall"
	"testing"
)

func TestVerdictString(t *testing.T) {
	tests := []struct {
		name string
		v    Verdict
		want string
	}{
		{"ok", VOk(), "Ok"},
		{"nzec", VNzec(7), "Nzec(7)"},
		{"runtime error", VRuntimeError(syscall.SIGSEGV), "RuntimeError(segmentation fault)"},
		{"killed sys", VKilled(SysKillReason(syscall.EPERM)), "Killed(operation not permitted)"},
		{"killed brk", VKilled(BrkProtocolViolation), "Killed(called brk() without initial brk(NULL))"},
		{"time limit", VTimeLimitExceeded(), "TimeLimitExceeded"},
		{"mem limit", VMemoryLimitExceeded(), "MemoryLimitExceeded"},
		{"failed exec", VFailedExec(), "FailedExec"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProcStateTerminal(t *testing.T) {
	running := ProcState{Verdict: VRunning()}
	if running.Terminal() {
		t.Error("Running state reported as terminal")
	}

	done := ProcState{Verdict: VOk()}
	if !done.Terminal() {
		t.Error("Ok state not reported as terminal")
	}
}
