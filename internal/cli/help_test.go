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

package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/stepwise/internal/commands/shared"
)

func newTestRoot() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "test",
		Short: "Test command",
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	sampleCmd := &cobra.Command{
		Use:     "sample",
		Short:   "Sample subcommand",
		Long:    "This is a sample subcommand for testing",
		Aliases: []string{"s"},
		Example: `  test sample --flag value`,
		Annotations: map[string]string{
			"group": "execution",
		},
		RunE: func(*cobra.Command, []string) error { return nil },
	}
	sampleCmd.Flags().String("flag", "", "A sample flag")
	sampleCmd.Flags().Int("count", 3, "A sample count")
	rootCmd.AddCommand(sampleCmd)

	hidden := &cobra.Command{Use: "secret", Hidden: true, RunE: func(*cobra.Command, []string) error { return nil }}
	rootCmd.AddCommand(hidden)

	rootCmd.SetHelpCommand(NewHelpCommand(rootCmd))
	return rootCmd
}

func runHelp(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	t.Cleanup(shared.ResetFlagsForTest)

	rootCmd := newTestRoot()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"help"}, args...))
	err := rootCmd.Execute()
	return buf.Bytes(), err
}

func TestHelpCommand_AllCommandsJSON(t *testing.T) {
	out, err := runHelp(t, "--json")
	require.NoError(t, err)

	var resp HelpResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, "1.0", resp.Version)
	assert.Equal(t, "help", resp.Command)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.DocsURL)

	names := map[string]bool{}
	for _, c := range resp.Commands {
		names[c.Name] = true
	}
	assert.True(t, names["sample"])
	assert.False(t, names["secret"], "hidden commands are not listed")
	assert.Equal(t, []string{"sample"}, resp.Groups["execution"])

	require.NotEmpty(t, resp.GlobalFlags)
	assert.Equal(t, "verbose", resp.GlobalFlags[0].Name)
	assert.Equal(t, "v", resp.GlobalFlags[0].Shorthand)
}

func TestHelpCommand_SingleCommandJSON(t *testing.T) {
	out, err := runHelp(t, "sample", "--json")
	require.NoError(t, err)

	var resp HelpResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, "help sample", resp.Command)
	require.NotNil(t, resp.Detail)

	meta := resp.Detail
	assert.Equal(t, "sample", meta.Name)
	assert.Equal(t, "execution", meta.Group)
	assert.Equal(t, []string{"s"}, meta.Aliases)
	assert.Contains(t, meta.Examples, "--flag value")

	flags := map[string]FlagMetadata{}
	for _, f := range meta.Flags {
		flags[f.Name] = f
	}
	require.Contains(t, flags, "count")
	assert.Equal(t, "int", flags["count"].Type)
	assert.Equal(t, "3", flags["count"].Default)
	assert.NotContains(t, flags, "verbose", "persistent flags are reported as global flags")
}

func TestHelpCommand_Text(t *testing.T) {
	out, err := runHelp(t, "sample")
	require.NoError(t, err)
	assert.Contains(t, string(out), "This is a sample subcommand for testing")
}

func TestHelpCommand_UnknownCommand(t *testing.T) {
	_, err := runHelp(t, "nope")
	require.Error(t, err)
	assert.Equal(t, shared.ExitNotFound, shared.ExitCode(err))
}
