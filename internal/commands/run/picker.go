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

package run

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/tombee/stepwise/internal/commands/shared"
	"github.com/tombee/stepwise/pkg/executor"
)

// pickAlgorithm asks the user to choose an algorithm when none was given.
func pickAlgorithm() (string, error) {
	var name string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Algorithm").
				Description("Select the algorithm to debug").
				Options(algorithmOptions()...).
				Value(&name),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", shared.NewInterruptedError("algorithm selection cancelled", err)
		}
		return "", shared.NewInvalidSessionError("algorithm selection failed", err)
	}
	return name, nil
}

func algorithmOptions() []huh.Option[string] {
	algos := executor.Algorithms()
	options := make([]huh.Option[string], 0, len(algos))
	for _, a := range algos {
		options = append(options, huh.NewOption(fmt.Sprintf("%-10s %s", a.Name, a.Description), a.Name))
	}
	return options
}
