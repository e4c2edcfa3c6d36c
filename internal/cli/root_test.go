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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/stepwise/internal/commands/shared"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "stepwise", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
}

func TestGlobalFlags(t *testing.T) {
	t.Cleanup(shared.ResetFlagsForTest)
	cmd := NewRootCommand()

	for _, name := range []string{"verbose", "quiet", "json", "config"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "--%s flag not registered", name)
	}

	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--json", "--config", "session.yaml", "-v"}))
	assert.True(t, shared.GetJSON())
	assert.True(t, shared.GetVerbose())
	assert.Equal(t, "session.yaml", shared.GetConfigPath())
}

func TestSetVersion(t *testing.T) {
	t.Cleanup(func() { SetVersion("dev", "unknown", "unknown") })
	SetVersion("1.2.3", "abc123", "2026-10-16")

	v, c, b := GetVersion()
	assert.Equal(t, "1.2.3", v)
	assert.Equal(t, "abc123", c)
	assert.Equal(t, "2026-10-16", b)
}
