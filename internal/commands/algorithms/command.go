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

// Package algorithms implements the algorithms command.
package algorithms

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tombee/stepwise/internal/commands/shared"
	"github.com/tombee/stepwise/pkg/executor"
)

type algorithmInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Locals      []string `json:"locals"`
}

// NewCommand creates the algorithms command
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "algorithms",
		Aliases: []string{"algos", "ls"},
		Short:   "List built-in algorithms",
		Long: `List the built-in algorithms with the local variables each one tracks.

Every step also binds the standard variables array, comparisons, swaps,
accesses, and step. Locals can be used in --when, --watch, and --log
expressions.`,
		Annotations: map[string]string{
			"group": "info",
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			algos := executor.Algorithms()

			if shared.GetJSON() {
				type listResponse struct {
					shared.JSONResponse
					Standard   []string        `json:"standard_variables"`
					Algorithms []algorithmInfo `json:"algorithms"`
				}
				resp := listResponse{
					JSONResponse: shared.NewJSONResponse("algorithms", true),
					Standard:     executor.StandardVariables,
					Algorithms:   make([]algorithmInfo, 0, len(algos)),
				}
				for _, a := range algos {
					locals := a.Locals
					if locals == nil {
						locals = []string{}
					}
					resp.Algorithms = append(resp.Algorithms, algorithmInfo{Name: a.Name, Description: a.Description, Locals: locals})
				}
				return shared.EmitJSON(cmd.OutOrStdout(), resp)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tLOCALS\tDESCRIPTION")
			for _, a := range algos {
				locals := strings.Join(a.Locals, ",")
				if locals == "" {
					locals = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.Name, locals, a.Description)
			}
			return w.Flush()
		},
	}
}
