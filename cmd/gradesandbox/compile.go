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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/gradesandbox/sandbox/pkg/sandbox"
	"github.com/gradesandbox/sandbox/pkg/sandbox/config"
)

// compileCommand implements subcommands.Command for "compile".
type compileCommand struct{}

func (*compileCommand) Name() string     { return "compile" }
func (*compileCommand) Synopsis() string { return "compile a submission and report the time taken" }
func (*compileCommand) Usage() string {
	return "compile <compiler-binary> [args...] - runs the compiler under a fixed CPU budget.\n"
}
func (*compileCommand) SetFlags(*flag.FlagSet) {}

type compileResult struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	ElapsedMs uint64 `json:"elapsed_ms,omitempty"`
}

func (*compileCommand) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg, _ := args[0].(*config.Config)

	bin := f.Arg(0)
	binArgs := f.Args()[1:]

	elapsed, err := sandbox.New(cfg, logrus.StandardLogger()).Compile(bin, binArgs)
	result := compileResult{ElapsedMs: elapsed, OK: err == nil}
	if err != nil {
		result.Error = err.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	if encErr := enc.Encode(result); encErr != nil {
		fmt.Fprintln(os.Stderr, encErr)
		return subcommands.ExitFailure
	}
	if err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
