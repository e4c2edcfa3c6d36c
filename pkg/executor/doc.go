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

// Package executor drives an algorithm body forward one logical operation
// at a time.
//
// An algorithm body receives an *Ops handle over a working copy of the
// input. Every compare, swap, assign, or access performed through Ops
// produces exactly one ExecutionStep and suspends the body until the caller
// pulls the next step. The sequence is finite, deterministic for a given
// input, and restartable with Reset.
//
// # Pulling Steps
//
//	exec := executor.New(executor.WithConfig(executor.Config{MaxSteps: 10000, BreakOnError: true}))
//	algo, _ := executor.Lookup("bubble")
//	if err := exec.Load(algo, []int{5, 2, 1}); err != nil {
//		return err
//	}
//	for {
//		step, state, err := exec.Step()
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		render(step, state)
//	}
//
// # Running to Completion
//
//	state, err := exec.Execute(ctx, algo, []int{5, 2, 1})
//
// # Errors
//
// Bad input and out-of-range indexes fail with *errors.ValidationError.
// Producing more than Config.MaxSteps steps fails with
// *errors.LimitExceededError. Errors raised by the body are returned as
// *errors.ExecutionError, or captured into State.Err when
// Config.BreakOnError is false.
//
// An Executor is not safe for concurrent use.
package executor
