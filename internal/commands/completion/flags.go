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

package completion

import (
	"github.com/spf13/cobra"

	"github.com/tombee/stepwise/pkg/executor"
)

// CompleteAlgorithms completes built-in algorithm names with their
// descriptions.
func CompleteAlgorithms(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		algos := executor.Algorithms()
		out := make([]string, 0, len(algos))
		for _, a := range algos {
			out = append(out, a.Name+"\t"+a.Description)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteAlgorithmArg completes the optional [algorithm] argument.
func CompleteAlgorithmArg(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return CompleteAlgorithms(cmd, args, toComplete)
}

// CompleteRunStatus provides completion for --status flag values.
func CompleteRunStatus(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		statuses := []string{
			"running\tRun is in progress or was never finished",
			"completed\tRun finished successfully",
			"failed\tRun failed with an error",
			"aborted\tRun was aborted or interrupted",
		}
		return statuses, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompletePositionModes provides completion for --position flag values.
func CompletePositionModes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		modes := []string{
			"index\tBreak on step ordinals",
			"kind\tBreak on operation kinds (compare=1, swap=2, ...)",
		}
		return modes, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteOTLPProtocols provides completion for --otlp-protocol flag values.
func CompleteOTLPProtocols(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		protocols := []string{
			"grpc\tOTLP over gRPC (port 4317)",
			"http\tOTLP over HTTP/protobuf (port 4318)",
		}
		return protocols, cobra.ShellCompDirectiveNoFileComp
	})
}
