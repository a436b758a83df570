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

// Package seccomp builds and installs the classic-BPF syscall filter a
// traced child runs under. The filter is a fixed allow-list: any syscall
// not on it returns EPERM without reaching the kernel, and a call made
// under a mismatched instruction-set architecture kills the process
// outright rather than silently falling back to a 32-bit syscall table.
package seccomp

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Offsets into struct seccomp_data, per linux/seccomp.h: the syscall number
// is the first 4-byte field, the audit architecture token the second.
const (
	offNR   = 0
	offArch = 4
)

// auditArchX86_64 is AUDIT_ARCH_X86_64 from linux/audit.h: EM_X86_64 (62)
// OR'd with __AUDIT_ARCH_64BIT and __AUDIT_ARCH_LE.
const auditArchX86_64 = 0xc000003e

// Classic BPF opcodes, from linux/filter.h. x/sys/unix does not export
// these as named constants, so they are restated here the way the teacher's
// own BPF consumers (pkg/sentry/socket/netfilter) restate kernel constants
// not already in the unix package.
const (
	bpfLD  = 0x00
	bpfW   = 0x00
	bpfABS = 0x20
	bpfJMP = 0x05
	bpfJEQ = 0x10
	bpfK   = 0x00
	bpfRET = 0x06
)

// seccomp return-action values, from linux/seccomp.h.
const (
	retKillProcess = 0x80000000
	retErrno       = 0x00050000
	retAllow       = 0x7fff0000
)

const errnoMask = 0x0000ffff

func stmt(code uint16, k uint32) unix.SockFilter {
	return unix.SockFilter{Code: code, K: k}
}

func jump(code uint16, k uint32, jt, jf uint8) unix.SockFilter {
	return unix.SockFilter{Code: code, Jt: jt, Jf: jf, K: k}
}

// Build assembles the allow-list program: base minus denied, checked
// against the calling architecture first. The returned program is
// self-contained and allocates nothing further when installed. The
// sandbox's bridge process (pkg/sandbox) builds it and installs it
// unchanged just before its execve into the target.
func Build(denied []uintptr) []unix.SockFilter {
	deny := make(map[uintptr]bool, len(denied))
	for _, sc := range denied {
		deny[sc] = true
	}

	var allowed []uintptr
	for _, sc := range AllowedSyscalls {
		if !deny[sc] {
			allowed = append(allowed, sc)
		}
	}

	prog := make([]unix.SockFilter, 0, 4+2*len(allowed)+1)

	// Kill outright on architecture mismatch, guarding against the classic
	// 32-bit-syscall-table seccomp bypass.
	prog = append(prog,
		stmt(bpfLD|bpfW|bpfABS, offArch),
		jump(bpfJMP|bpfJEQ|bpfK, auditArchX86_64, 1, 0),
		stmt(bpfRET|bpfK, retKillProcess),
	)

	prog = append(prog, stmt(bpfLD|bpfW|bpfABS, offNR))

	// Each allowed syscall gets a compare-and-return pair: on match, fall
	// through to the very next instruction (the ALLOW return); otherwise
	// skip it and test the next syscall.
	for _, sc := range allowed {
		prog = append(prog,
			jump(bpfJMP|bpfJEQ|bpfK, uint32(sc), 0, 1),
			stmt(bpfRET|bpfK, retAllow),
		)
	}

	prog = append(prog, stmt(bpfRET|bpfK, retErrno|(uint32(unix.EPERM)&errnoMask)))
	return prog
}

// Install loads prog as the calling thread's seccomp filter. It sets
// PR_SET_NO_NEW_PRIVS itself first, so an unprivileged caller (such as the
// sandbox's bridge process) needs no CAP_SYS_ADMIN to load the filter.
func Install(prog []unix.SockFilter) error {
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("seccomp: set no_new_privs: %w", err)
	}

	fprog := unix.SockFprog{
		Len:    uint16(len(prog)),
		Filter: &prog[0],
	}
	_, _, errno := unix.RawSyscall(unix.SYS_PRCTL, unix.PR_SET_SECCOMP, unix.SECCOMP_MODE_FILTER, uintptr(unsafe.Pointer(&fprog)))
	if errno != 0 {
		return fmt.Errorf("seccomp: install filter: %w", errno)
	}
	return nil
}

// ForCompile returns the program installed while compiling a submission:
// the base allow-list with the clone family additionally denied, so a
// misbehaving compiler cannot spawn an untraced child process.
func ForCompile() []unix.SockFilter {
	return Build(CloneFamily)
}

// ForSubmission returns the program installed while running a submission
// against a test case: the base allow-list, unmodified.
func ForSubmission() []unix.SockFilter {
	return Build(nil)
}
