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

// Package verdict defines the terminal classification of a traced run and
// the resource-usage record attached to it.
package verdict

import (
	"fmt"
	"syscall"
)

// Kind enumerates the mutually exclusive outcomes of a traced run.
type Kind int

const (
	// Running is a transient internal state. Callers never observe it.
	Running Kind = iota
	// Ok means the child exited with status 0.
	Ok
	// Nzec means the child exited with a nonzero status that is not the
	// reserved failure code.
	Nzec
	// FailedExec means the child exited with the reserved failure code:
	// setup or exec failed before user code ran.
	FailedExec
	// RuntimeError means the child was terminated by a signal other than
	// the deadline signal (SIGXCPU).
	RuntimeError
	// TimeLimitExceeded means the child was terminated by SIGXCPU, or the
	// parent's wall-clock deadline fired first.
	TimeLimitExceeded
	// MemoryLimitExceeded means an allocation syscall returned ENOMEM.
	// Tracked cumulative allocation is not compared against the cap.
	MemoryLimitExceeded
	// Killed means the supervisor chose to kill the child: either a
	// tracing/kernel error, or a protocol violation.
	Killed
)

func (k Kind) String() string {
	switch k {
	case Running:
		return "Running"
	case Ok:
		return "Ok"
	case Nzec:
		return "Nzec"
	case FailedExec:
		return "FailedExec"
	case RuntimeError:
		return "RuntimeError"
	case TimeLimitExceeded:
		return "TimeLimitExceeded"
	case MemoryLimitExceeded:
		return "MemoryLimitExceeded"
	case Killed:
		return "Killed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// KillReason explains why the supervisor killed the tracee when Verdict's
// Kind is Killed.
type KillReason struct {
	// BrkWithoutInitialCall is true when the child violated the brk
	// protocol: its first observed brk call did not pass a null address.
	BrkWithoutInitialCall bool
	// Sys is the kernel error that caused the kill, when
	// BrkWithoutInitialCall is false.
	Sys error
}

func (r KillReason) Error() string {
	if r.BrkWithoutInitialCall {
		return "called brk() without initial brk(NULL)"
	}
	return r.Sys.Error()
}

// SysKillReason builds a KillReason from a kernel error, e.g. an errno
// returned by a ptrace or wait operation.
func SysKillReason(err error) KillReason {
	return KillReason{Sys: err}
}

// BrkProtocolViolation is the KillReason used when a child calls brk
// without an initial query call.
var BrkProtocolViolation = KillReason{BrkWithoutInitialCall: true}

// Verdict is the terminal classification of a traced run.
type Verdict struct {
	Kind Kind

	// ExitCode is valid when Kind == Nzec: the child's exit status.
	ExitCode int
	// Signal is valid when Kind == RuntimeError: the terminating signal.
	Signal syscall.Signal
	// Reason is valid when Kind == Killed.
	Reason KillReason
	// Diagnostic is the best-effort text read from the channel when
	// Kind == FailedExec. Compile surfaces its own channel text directly
	// as the returned error instead of through this field.
	Diagnostic string
}

func (v Verdict) String() string {
	switch v.Kind {
	case Nzec:
		return fmt.Sprintf("Nzec(%d)", v.ExitCode)
	case RuntimeError:
		return fmt.Sprintf("RuntimeError(%s)", v.Signal)
	case Killed:
		return fmt.Sprintf("Killed(%s)", v.Reason.Error())
	default:
		return v.Kind.String()
	}
}

// VOk, VFailedExec and VTimeLimitExceeded are the zero-argument verdict
// constructors used throughout the tracer and orchestrator.
func VOk() Verdict                  { return Verdict{Kind: Ok} }
func VFailedExec() Verdict          { return Verdict{Kind: FailedExec} }
func VTimeLimitExceeded() Verdict   { return Verdict{Kind: TimeLimitExceeded} }
func VMemoryLimitExceeded() Verdict { return Verdict{Kind: MemoryLimitExceeded} }
func VRunning() Verdict             { return Verdict{Kind: Running} }

// VNzec builds an Nzec verdict for the given exit status.
func VNzec(code int) Verdict { return Verdict{Kind: Nzec, ExitCode: code} }

// VRuntimeError builds a RuntimeError verdict for the given signal.
func VRuntimeError(sig syscall.Signal) Verdict {
	return Verdict{Kind: RuntimeError, Signal: sig}
}

// VKilled builds a Killed verdict for the given reason.
func VKilled(reason KillReason) Verdict {
	return Verdict{Kind: Killed, Reason: reason}
}

// ProcState is the full result of a traced run.
type ProcState struct {
	Verdict   Verdict
	MaxMemBytes uint64
	MaxTimeMs   uint64
}

// Terminal reports whether the record is in a final state. Once Terminal
// returns true for a ProcState, nothing further mutates it.
func (p ProcState) Terminal() bool {
	return p.Verdict.Kind != Running
}
