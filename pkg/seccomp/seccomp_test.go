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

package seccomp

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestBuildEndsWithDefaultDeny(t *testing.T) {
	prog := Build(nil)
	last := prog[len(prog)-1]
	if last.Code != bpfRET|bpfK {
		t.Fatalf("last instruction code = %#x, want a RET", last.Code)
	}
	if last.K&0xffff0000 != retErrno {
		t.Errorf("last instruction K = %#x, want SECCOMP_RET_ERRNO", last.K)
	}
	if uintptr(last.K&errnoMask) != uintptr(unix.EPERM) {
		t.Errorf("default errno = %d, want EPERM", last.K&errnoMask)
	}
}

func TestBuildStartsWithArchCheck(t *testing.T) {
	prog := Build(nil)
	if len(prog) < 3 {
		t.Fatalf("program too short: %d instructions", len(prog))
	}
	if prog[0].Code != bpfLD|bpfW|bpfABS || prog[0].K != offArch {
		t.Errorf("first instruction does not load the arch field: %+v", prog[0])
	}
	if prog[2].Code != bpfRET|bpfK || prog[2].K != retKillProcess {
		t.Errorf("third instruction does not kill on arch mismatch: %+v", prog[2])
	}
}

func TestForCompileDeniesCloneFamily(t *testing.T) {
	// No clone-family syscall may have a compare-and-allow pair.
	compile := ForCompile()
	for i, ins := range compile[4:] {
		for _, sc := range CloneFamily {
			if ins.Code == bpfJMP|bpfJEQ|bpfK && uintptr(ins.K) == sc {
				t.Errorf("compile program allows syscall %d at instruction %d, want the clone family denied", sc, i+4)
			}
		}
	}
}

func TestBuildDenyRemovesExactlyOneSyscall(t *testing.T) {
	full := Build(nil)
	withoutRead := Build([]uintptr{unix.SYS_READ})
	// Removing one allowed syscall costs exactly one compare+return pair.
	if len(full)-len(withoutRead) != 2 {
		t.Errorf("removing one syscall changed instruction count by %d, want 2", len(full)-len(withoutRead))
	}
}
