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

package sandbox

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/gradesandbox/sandbox/pkg/limits"
	"github.com/gradesandbox/sandbox/pkg/link"
	"github.com/gradesandbox/sandbox/pkg/seccomp"
	"github.com/gradesandbox/sandbox/pkg/trace"
)

// BridgeArg is the sentinel argv[1] that routes a re-exec of this binary
// into RunBridge instead of the normal CLI entry point. A single fork+exec
// cannot both run a user's Go code between the fork and the final execve
// (the runtime forbids arbitrary Go after a raw fork in a process with more
// than one thread) and keep that code simple; re-executing the same binary
// sidesteps the restriction entirely, since the bridge process is a freshly
// exec'd, single-threaded process with a fully initialized runtime by the
// time its main observes BridgeArg.
const BridgeArg = "__gradesandbox_bridge__"

const (
	bridgeModeCompile = "compile"
	bridgeModeExec    = "exec"
)

// bridgeArgs builds the argv for a re-exec of the running binary that will
// land in RunBridge: [self, BridgeArg, mode, memLimitBytes, cpuSeconds, bin, args...].
func bridgeArgs(self, mode string, memLimitBytes, cpuSeconds uint64, bin string, args []string) []string {
	argv := []string{self, BridgeArg, mode, strconv.FormatUint(memLimitBytes, 10), strconv.FormatUint(cpuSeconds, 10), bin}
	return append(argv, args...)
}

// RunBridge is the child-side entry point reached by re-executing the
// sandbox binary with BridgeArg. It applies rlimits, installs the seccomp
// filter, and execves the target. It never returns on success; on failure
// it writes a diagnostic to fd 3 (wired up by the parent via ExtraFiles)
// and exits with trace.ExitCodeFailedExec.
//
// argv is os.Args with BridgeArg already stripped, i.e. argv[0] is the mode.
func RunBridge(argv []string) {
	fail := func(format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		_, _ = unix.Write(3, []byte(msg))
		_ = unix.Close(3)
		os.Exit(trace.ExitCodeFailedExec)
	}

	if len(argv) < 4 {
		fail("bridge: malformed arguments")
		return
	}
	mode := argv[0]
	memLimitBytes, err := strconv.ParseUint(argv[1], 10, 64)
	if err != nil {
		fail("bridge: bad mem limit: %v", err)
		return
	}
	cpuSeconds, err := strconv.ParseUint(argv[2], 10, 64)
	if err != nil {
		fail("bridge: bad cpu limit: %v", err)
		return
	}
	bin := argv[3]
	userArgs := argv[4:]

	if err := limits.Apply(memLimitBytes, cpuSeconds); err != nil {
		fail("bridge: apply limits: %v", err)
		return
	}

	var prog []unix.SockFilter
	switch mode {
	case bridgeModeCompile:
		prog = seccomp.ForCompile()
		// Splice the compiler's stderr onto the link's write end so its
		// diagnostics become the failure message the parent reads back.
		if err := link.Reroute(3, 2); err != nil {
			fail("bridge: reroute stderr: %v", err)
			return
		}
	case bridgeModeExec:
		prog = seccomp.ForSubmission()
	default:
		fail("bridge: unknown mode %q", mode)
		return
	}
	if err := seccomp.Install(prog); err != nil {
		fail("bridge: install filter: %v", err)
		return
	}

	execArgv := append([]string{bin}, userArgs...)
	env := []string{"PATH=" + os.Getenv("PATH")}
	err = unix.Exec(bin, execArgv, env)
	fail("could not execute with error %v", err)
}
