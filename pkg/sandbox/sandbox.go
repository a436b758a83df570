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

// Package sandbox is the orchestrator: it forks a re-exec bridge process
// (see bridge.go), attaches a tracer to it when grading a submission, and
// reduces the outcome to either a compile duration or a full ProcState.
package sandbox

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gradesandbox/sandbox/pkg/limits"
	"github.com/gradesandbox/sandbox/pkg/link"
	"github.com/gradesandbox/sandbox/pkg/sandbox/config"
	"github.com/gradesandbox/sandbox/pkg/trace"
	"github.com/gradesandbox/sandbox/pkg/verdict"
)

// Sandbox runs compile and grading steps under the resource limits and
// syscall filter described in config.Config.
type Sandbox struct {
	cfg *config.Config
	log *logrus.Logger
}

// New builds a Sandbox from cfg. A nil cfg falls back to config.Default().
func New(cfg *config.Config, log *logrus.Logger) *Sandbox {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sandbox{cfg: cfg, log: log}
}

func (s *Sandbox) entry() *logrus.Entry {
	return s.log.WithField("run_id", uuid.New().String())
}

func selfPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("sandbox: resolve self: %w", err)
	}
	return exe, nil
}

// Compile runs bin (a compiler invocation) with args, under a fixed CPU
// budget and no memory cap, and returns the elapsed wall-clock time in
// milliseconds on success. A nonzero exit, a signal, or a missed deadline
// is reported as an error carrying the compiler's own diagnostic output
// when one was captured.
func Compile(bin string, args []string) (uint64, error) {
	return defaultSandbox().Compile(bin, args)
}

// Exec runs bin (a graded submission) with args under the given time and
// memory limits and returns the full terminal ProcState.
func Exec(bin string, args []string, timeLimitS uint64, memLimitBytes uint64) (verdict.ProcState, error) {
	return defaultSandbox().Exec(bin, args, timeLimitS, memLimitBytes)
}

var shared = New(nil, nil)

func defaultSandbox() *Sandbox { return shared }

// Compile is the Sandbox method backing the package-level Compile.
func (s *Sandbox) Compile(bin string, args []string) (uint64, error) {
	log := s.entry().WithField("op", "compile")
	self, err := selfPath()
	if err != nil {
		return 0, err
	}

	lnk, err := link.InitCloexec()
	if err != nil {
		return 0, fmt.Errorf("compile: init link: %w", err)
	}
	defer link.Close(lnk.ReadFD)

	argv := bridgeArgs(self, bridgeModeCompile, limits.Unlimited, s.cfg.CompilerCPUSeconds, bin, args)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.ExtraFiles = []*os.File{os.NewFile(uintptr(lnk.WriteFD), "link")}

	log.WithField("bin", bin).Debug("starting compiler")
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("compile: failed to fork: %w", err)
	}
	_ = cmd.ExtraFiles[0].Close()

	deadline := time.Duration(s.cfg.CompilerCPUSeconds)*time.Second + s.cfg.DeadlineGrace
	waitErr := waitWithDeadline(cmd, deadline)

	diag, _ := io.ReadAll(os.NewFile(uintptr(lnk.ReadFD), "link-read"))

	elapsed := uint64(time.Since(start).Milliseconds())

	switch {
	case waitErr == errDeadline:
		log.Warn("compiler exceeded wall-clock deadline")
		return 0, fmt.Errorf("took too long to compile")
	case waitErr != nil:
		var ee *exec.ExitError
		if ok := asExitError(waitErr, &ee); ok {
			if ws, ok := ee.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() && ws.Signal() == syscall.SIGXCPU {
				log.Warn("compiler exceeded CPU time limit")
				return 0, fmt.Errorf("took too long to compile")
			}
			if ee.ProcessState.ExitCode() == trace.ExitCodeFailedExec && len(diag) == 0 {
				return 0, fmt.Errorf("failed to execute: no further details")
			}
			return 0, fmt.Errorf("%s", diag)
		}
		return 0, fmt.Errorf("compile: wait failed: %w", waitErr)
	default:
		log.WithField("elapsed_ms", elapsed).Debug("compile finished")
		return elapsed, nil
	}
}

func asExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}
	return ok
}

var errDeadline = fmt.Errorf("deadline exceeded")

// waitWithDeadline waits for cmd to finish, killing it and returning
// errDeadline if it has not finished by deadline.
func waitWithDeadline(cmd *exec.Cmd, deadline time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(deadline):
		_ = cmd.Process.Kill()
		<-done
		return errDeadline
	}
}

// Exec is the Sandbox method backing the package-level Exec.
func (s *Sandbox) Exec(bin string, args []string, timeLimitS uint64, memLimitBytes uint64) (verdict.ProcState, error) {
	log := s.entry().WithField("op", "exec")
	self, err := selfPath()
	if err != nil {
		return verdict.ProcState{}, err
	}

	lnk, err := link.InitCloexec()
	if err != nil {
		return verdict.ProcState{}, fmt.Errorf("exec: init link: %w", err)
	}
	defer link.Close(lnk.ReadFD)

	argv := bridgeArgs(self, bridgeModeExec, memLimitBytes, timeLimitS, bin, args)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.ExtraFiles = []*os.File{os.NewFile(uintptr(lnk.WriteFD), "link")}
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}

	// ptrace is thread-affine: the tracer must remain the same OS thread
	// that observed the traced process's stops.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log.WithField("bin", bin).Debug("starting submission")
	if err := cmd.Start(); err != nil {
		return verdict.ProcState{}, fmt.Errorf("exec: failed to fork: %w", err)
	}
	_ = cmd.ExtraFiles[0].Close()

	// trace.Track owns the process's wait4 calls from here: it both
	// supervises the syscall loop and reaps the final exit/signal status,
	// so cmd.Wait must never be called for a Ptrace-started process.
	deadline := time.Duration(timeLimitS)*time.Second + s.cfg.DeadlineGrace
	state := trace.Track(cmd.Process.Pid, deadline, memLimitBytes, log)

	if state.Verdict.Kind == verdict.FailedExec {
		if diag, _ := io.ReadAll(os.NewFile(uintptr(lnk.ReadFD), "link-read")); len(diag) > 0 {
			state.Verdict.Diagnostic = string(diag)
		}
	}

	log.WithFields(logrus.Fields{
		"verdict":  state.Verdict.String(),
		"max_mem":  state.MaxMemBytes,
		"max_time": state.MaxTimeMs,
	}).Info("submission finished")

	return state, nil
}
