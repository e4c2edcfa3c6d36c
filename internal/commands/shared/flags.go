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

// globalFlags holds the persistent flags bound by the root command.
type globalFlags struct {
	verbose bool
	quiet   bool
	json    bool
	config  string
}

// buildInfo is injected via ldflags in main.
type buildInfo struct {
	version string
	commit  string
	date    string
}

var (
	globals globalFlags
	build   = buildInfo{version: "dev", commit: "unknown", date: "unknown"}
)

// RegisterFlagPointers returns the verbose, quiet, json and config flag
// targets for the root command to bind.
func RegisterFlagPointers() (*bool, *bool, *bool, *string) {
	return &globals.verbose, &globals.quiet, &globals.json, &globals.config
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	build = buildInfo{version: v, commit: c, date: b}
}

// GetVerbose reports whether debug logging was requested with -v.
func GetVerbose() bool { return globals.verbose }

// GetQuiet reports whether -q was given. Quiet runs print only the result array.
func GetQuiet() bool { return globals.quiet }

// GetJSON reports whether output is JSON. JSON mode also disables prompts.
func GetJSON() bool { return globals.json }

// GetConfigPath returns the session file given with --config.
func GetConfigPath() string { return globals.config }

// GetVersion returns version, commit and build date.
func GetVersion() (string, string, string) {
	return build.version, build.commit, build.date
}

// ResetFlagsForTest restores every global flag to its zero value.
func ResetFlagsForTest() {
	globals = globalFlags{}
}

// SetJSONForTest sets the --json flag for testing purposes
func SetJSONForTest(v bool) {
	globals.json = v
}
