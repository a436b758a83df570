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

// execCommand implements subcommands.Command for "exec".
type execCommand struct {
	timeLimitS    uint64
	memLimitBytes uint64
}

func (*execCommand) Name() string     { return "exec" }
func (*execCommand) Synopsis() string { return "grade a submission binary against the given limits" }
func (*execCommand) Usage() string {
	return "exec [-time-limit=N] [-mem-limit=N] <submission-binary> [args...] - grades a submission.\n"
}

func (c *execCommand) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&c.timeLimitS, "time-limit", 0, "CPU time limit in seconds (0 uses the configured default)")
	f.Uint64Var(&c.memLimitBytes, "mem-limit", 0, "address-space limit in bytes (0 uses the configured default)")
}

type execResult struct {
	Verdict    string `json:"verdict"`
	ExitCode   int    `json:"exit_code,omitempty"`
	Signal     string `json:"signal,omitempty"`
	Reason     string `json:"reason,omitempty"`
	MaxMemBytes uint64 `json:"max_mem_bytes"`
	MaxTimeMs   uint64 `json:"max_time_ms"`
}

func (c *execCommand) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg, _ := args[0].(*config.Config)

	timeLimit := c.timeLimitS
	if timeLimit == 0 {
		timeLimit = cfg.DefaultTimeLimitSeconds
	}
	memLimit := c.memLimitBytes
	if memLimit == 0 {
		memLimit = cfg.DefaultMemLimitBytes
	}

	bin := f.Arg(0)
	binArgs := f.Args()[1:]

	state, err := sandbox.New(cfg, logrus.StandardLogger()).Exec(bin, binArgs, timeLimit, memLimit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	result := execResult{
		Verdict:     state.Verdict.Kind.String(),
		ExitCode:    state.Verdict.ExitCode,
		MaxMemBytes: state.MaxMemBytes,
		MaxTimeMs:   state.MaxTimeMs,
	}
	if state.Verdict.Signal != 0 {
		result.Signal = state.Verdict.Signal.String()
	}
	if state.Verdict.Kind.String() == "Killed" {
		result.Reason = state.Verdict.Reason.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	if encErr := enc.Encode(result); encErr != nil {
		fmt.Fprintln(os.Stderr, encErr)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
