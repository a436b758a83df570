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

// Package link implements the one-shot parent/child diagnostic byte pipe
// used to carry failure messages out of a child that is about to exit with
// the reserved failure code.
package link

import "golang.org/x/sys/unix"

// Link is an unnamed unidirectional pipe. ReadFD is owned by the parent,
// WriteFD by the child; each side closes the end it does not own before the
// child execs, so the parent's read returns EOF once the child exits
// without writing (or the write end was marked close-on-exec and exec
// succeeded).
type Link struct {
	ReadFD  int
	WriteFD int
}

// Init creates a plain pipe.
func Init() (Link, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return Link{}, err
	}
	return Link{ReadFD: fds[0], WriteFD: fds[1]}, nil
}

// InitCloexec creates a pipe with both ends marked close-on-exec, so a
// successful exec in the child releases WriteFD automatically without the
// child needing to close it itself.
func InitCloexec() (Link, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return Link{}, err
	}
	return Link{ReadFD: fds[0], WriteFD: fds[1]}, nil
}

// Write is a best-effort write: the caller is typically the child about to
// exit, so a failure here is ignored by convention — there is nothing
// useful to do about a broken diagnostic channel moments before exit.
func Write(fd int, msg []byte) (int, error) {
	return unix.Write(fd, msg)
}

// Read reads up to len(buf) bytes from fd.
func Read(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}

// Reroute makes ontoFD refer to the same underlying open file description
// as fromFD, by way of dup2. It is used to splice a child's stderr into the
// write end of the link so that a compiler's diagnostics become the
// failure message read back by the parent.
func Reroute(fromFD, ontoFD int) error {
	return unix.Dup2(fromFD, ontoFD)
}

// Close closes fd. Errors are the caller's to handle or ignore; this
// package does not hide them the way Write does.
func Close(fd int) error {
	return unix.Close(fd)
}
