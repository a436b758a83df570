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

package trace

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/gradesandbox/sandbox/pkg/verdict"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		wr             waitResult
		execWindowOpen bool
		want           verdict.Kind
	}{
		{"still running", waitResult{running: true}, true, verdict.Running},
		{"clean exit", waitResult{exited: true, exitCode: 0}, true, verdict.Ok},
		{"nonzero exit", waitResult{exited: true, exitCode: 3}, true, verdict.Nzec},
		{"reserved exit, window open", waitResult{exited: true, exitCode: ExitCodeFailedExec}, true, verdict.FailedExec},
		{"reserved exit, window closed", waitResult{exited: true, exitCode: ExitCodeFailedExec}, false, verdict.Nzec},
		{"sigxcpu", waitResult{signaled: true, signal: unix.SIGXCPU}, true, verdict.TimeLimitExceeded},
		{"other signal", waitResult{signaled: true, signal: unix.SIGSEGV}, true, verdict.RuntimeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.wr, tt.execWindowOpen)
			if got.Kind != tt.want {
				t.Errorf("classify() = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}
