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

// Package limits imposes the per-process resource caps a child must accept
// before it installs its syscall filter and execs.
package limits

import "golang.org/x/sys/unix"

// Unlimited disables an rlimit cap. Used for the compiler's address space.
const Unlimited uint64 = unix.RLIM_INFINITY

// Apply sets the address-space, core-dump, and CPU-time rlimits a traced
// child must run under.
//
//   - Address space: soft == hard == memBytes. Unlimited disables the cap.
//   - Core dump size: soft == hard == 0, unconditionally, so a crashing
//     child never writes a core file into the grading backend's storage.
//   - CPU time: soft == cpuSeconds, hard == cpuSeconds + 1. The kernel
//     delivers SIGXCPU when the soft cap is crossed; the extra second on
//     the hard cap keeps the kernel from SIGKILLing the process before the
//     tracer observes that signal.
//
// Apply must run in the child, after it attaches to tracing and before it
// installs its syscall filter — rlimit-setting syscalls are not on the
// submission allow-list.
func Apply(memBytes, cpuSeconds uint64) error {
	as := unix.Rlimit{Cur: memBytes, Max: memBytes}
	if err := unix.Setrlimit(unix.RLIMIT_AS, &as); err != nil {
		return err
	}

	core := unix.Rlimit{Cur: 0, Max: 0}
	if err := unix.Setrlimit(unix.RLIMIT_CORE, &core); err != nil {
		return err
	}

	cpu := unix.Rlimit{Cur: cpuSeconds, Max: cpuSeconds + 1}
	if err := unix.Setrlimit(unix.RLIMIT_CPU, &cpu); err != nil {
		return err
	}
	return nil
}
