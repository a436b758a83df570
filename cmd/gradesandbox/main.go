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

// Command gradesandbox is the CLI harness around pkg/sandbox: it compiles
// or grades a single submission and prints the result as JSON.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/gradesandbox/sandbox/pkg/sandbox"
	"github.com/gradesandbox/sandbox/pkg/sandbox/config"
)

func main() {
	// A re-exec of this same binary lands here instead of the normal CLI
	// dispatch below; see pkg/sandbox/bridge.go for why.
	if len(os.Args) > 1 && os.Args[1] == sandbox.BridgeArg {
		sandbox.RunBridge(os.Args[2:])
		return
	}

	if os.Getenv("GRADESANDBOX_DEBUG") != "" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&compileCommand{}, "")
	subcommands.Register(&execCommand{}, "")

	flag.Parse()

	cfg, err := config.Load(os.Getenv("GRADESANDBOX_CONFIG"))
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	os.Exit(int(subcommands.Execute(context.Background(), cfg)))
}
