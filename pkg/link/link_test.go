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

package link

import "testing"

func TestInitRoundTrip(t *testing.T) {
	l, err := Init()
	if err != nil {
		t.Fatalf("Init() = %v", err)
	}
	defer Close(l.ReadFD)
	defer Close(l.WriteFD)

	msg := []byte("failed to launch compiler")
	n, err := Write(l.WriteFD, msg)
	if err != nil {
		t.Fatalf("Write() = %v", err)
	}
	if n != len(msg) {
		t.Fatalf("Write() = %d bytes, want %d", n, len(msg))
	}

	buf := make([]byte, 64)
	n, err = Read(l.ReadFD, buf)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if string(buf[:n]) != string(msg) {
		t.Errorf("Read() = %q, want %q", buf[:n], msg)
	}
}

func TestInitCloexecRoundTrip(t *testing.T) {
	l, err := InitCloexec()
	if err != nil {
		t.Fatalf("InitCloexec() = %v", err)
	}
	defer Close(l.ReadFD)
	defer Close(l.WriteFD)

	if _, err := Write(l.WriteFD, []byte("ok")); err != nil {
		t.Fatalf("Write() = %v", err)
	}
	buf := make([]byte, 8)
	n, err := Read(l.ReadFD, buf)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if string(buf[:n]) != "ok" {
		t.Errorf("Read() = %q, want %q", buf[:n], "ok")
	}
}
