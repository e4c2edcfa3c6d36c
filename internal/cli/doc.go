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

/*
Package cli provides the root command and the JSON-aware help command for
the stepwise CLI.

This package creates the root Cobra command and handles global concerns like
version information, persistent flags, and error handling. Individual commands
are implemented in the internal/commands subpackages.

# Command Tree

	stepwise
	├── run           Run an algorithm under the debugger
	├── watch         Re-run a session file whenever it changes
	├── algorithms    List the available algorithms
	├── validate      Validate session files
	├── runs          List, show, and delete recorded runs
	├── history       Print and query snapshot history
	├── completion    Generate shell completion scripts
	├── version       Show version
	└── help          Show help

# Usage

From main.go:

	cli.SetVersion(version, commit, date)
	rootCmd := cli.NewRootCommand()
	// ... add commands ...
	rootCmd.SetHelpCommand(cli.NewHelpCommand(rootCmd))
	if err := rootCmd.Execute(); err != nil {
	    cli.HandleExitError(err)
	}

# Global Flags

All commands inherit these flags:

	--verbose, -v    Enable debug logging
	--quiet, -q      Suppress non-error output
	--json           Output in JSON format
	--config         Session file

# Exit Codes

  - 0: Success
  - 1: The run failed
  - 2: Invalid session, flags, or expression
  - 3: Algorithm, run, or file not found
  - 130: Interrupted or aborted from the debugger prompt
*/
package cli
