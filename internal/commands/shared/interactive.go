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

package shared

import (
	"os"

	"golang.org/x/term"
)

// ciVars maps CI environment variables to whether any non-empty value
// counts. The rest must be "true" or "1".
var ciVars = map[string]bool{
	"CI":             false,
	"GITHUB_ACTIONS": false,
	"GITLAB_CI":      false,
	"CIRCLECI":       false,
	"JENKINS_HOME":   true,
}

// IsNonInteractive reports whether prompts must be avoided:
// STEPWISE_NON_INTERACTIVE=true, a CI environment, or stdin that is not
// a terminal.
func IsNonInteractive() bool {
	if os.Getenv("STEPWISE_NON_INTERACTIVE") == "true" {
		return true
	}
	if isCIEnvironment() {
		return true
	}
	return !IsTerminal(os.Stdin)
}

// CanPrompt reports whether a command may open a prompt such as the
// algorithm picker. --json and --no-interactive always disable prompts.
func CanPrompt(noInteractive bool) bool {
	return !noInteractive && !GetJSON() && !IsNonInteractive()
}

func isCIEnvironment() bool {
	for name, anyValue := range ciVars {
		value := os.Getenv(name)
		if value == "true" || value == "1" || (anyValue && value != "") {
			return true
		}
	}
	return false
}

// IsTerminal reports whether f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
