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

package version

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/stepwise/internal/commands/shared"
	"github.com/tombee/stepwise/pkg/executor"
)

// Info describes the build and what it can run.
type Info struct {
	Version    string   `json:"version"`
	Commit     string   `json:"commit"`
	BuildDate  string   `json:"build_date"`
	GoVersion  string   `json:"go_version"`
	Platform   string   `json:"platform"`
	Algorithms []string `json:"algorithms"`
}

type versionResponse struct {
	shared.JSONResponse
	Info
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the stepwise version, build details and the built-in algorithms.`,
		Annotations: map[string]string{
			"group": "info",
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := current()
			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), versionResponse{
					JSONResponse: shared.NewJSONResponse("version", true),
					Info:         info,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "stepwise version %s\n", info.Version)
			fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
			fmt.Fprintf(out, "  build date: %s\n", info.BuildDate)
			fmt.Fprintf(out, "  go:         %s %s\n", info.GoVersion, info.Platform)
			fmt.Fprintf(out, "  algorithms: %s\n", strings.Join(info.Algorithms, ", "))
			return nil
		},
	}
}

func current() Info {
	v, c, b := shared.GetVersion()
	return Info{
		Version:    v,
		Commit:     c,
		BuildDate:  b,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		Algorithms: executor.Names(),
	}
}
