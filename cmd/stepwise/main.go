// Copyright 2025 Tom Barlow
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
	"github.com/tombee/stepwise/internal/cli"
	"github.com/tombee/stepwise/internal/commands/algorithms"
	"github.com/tombee/stepwise/internal/commands/completion"
	"github.com/tombee/stepwise/internal/commands/history"
	"github.com/tombee/stepwise/internal/commands/run"
	"github.com/tombee/stepwise/internal/commands/runs"
	"github.com/tombee/stepwise/internal/commands/validate"
	versioncmd "github.com/tombee/stepwise/internal/commands/version"
	"github.com/tombee/stepwise/internal/commands/watch"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	// Execution commands
	rootCmd.AddCommand(run.NewCommand())
	rootCmd.AddCommand(watch.NewCommand())
	rootCmd.AddCommand(algorithms.NewCommand())
	rootCmd.AddCommand(validate.NewCommand())

	// Recorded runs
	rootCmd.AddCommand(runs.NewCommand())
	rootCmd.AddCommand(history.NewCommand())

	rootCmd.AddCommand(completion.NewCommand())
	rootCmd.AddCommand(versioncmd.NewVersionCommand())

	// Custom help command with JSON support
	rootCmd.SetHelpCommand(cli.NewHelpCommand(rootCmd))

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
