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

package debug

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tombee/stepwise/internal/jq"
	"github.com/tombee/stepwise/pkg/expression"
)

type shellCommand string

const (
	shellContinue    shellCommand = "continue"
	shellNext        shellCommand = "next"
	shellAbort       shellCommand = "abort"
	shellInspect     shellCommand = "inspect"
	shellContext     shellCommand = "context"
	shellStack       shellCommand = "stack"
	shellSnapshots   shellCommand = "snapshots"
	shellRestore     shellCommand = "restore"
	shellQuery       shellCommand = "query"
	shellBreakpoints shellCommand = "breakpoints"
	shellWatches     shellCommand = "watches"
	shellHelp        shellCommand = "help"
)

// Shell is an interactive Pauser reading commands from a line-oriented
// input. End of input aborts the run.
type Shell struct {
	ctrl    *Controller
	scanner *bufio.Scanner
	output  io.Writer
	jq      *jq.Executor
}

// NewShell creates a shell over ctrl reading from input and writing to output.
func NewShell(ctrl *Controller, input io.Reader, output io.Writer) *Shell {
	return &Shell{
		ctrl:    ctrl,
		scanner: bufio.NewScanner(input),
		output:  output,
		jq:      jq.NewExecutor(0, 0),
	}
}

// Pause implements Pauser. It shows the paused step and then reads
// commands until one of continue, next, or abort.
func (s *Shell) Pause(ctx context.Context, info PauseInfo) (Command, error) {
	s.displayStepInfo(info)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprint(s.output, "debug> ")

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", fmt.Errorf("input error: %w", err)
			}
			fmt.Fprintln(s.output)
			return CommandAbort, nil
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		cmd, args, err := parseCommand(line)
		if err != nil {
			fmt.Fprintf(s.output, "Error: %v\n", err)
			continue
		}

		switch cmd {
		case shellContinue:
			return CommandContinue, nil
		case shellNext:
			return CommandNext, nil
		case shellAbort:
			return CommandAbort, nil
		case shellInspect:
			s.handleInspect(args)
		case shellContext:
			s.handleContext()
		case shellStack:
			s.handleStack()
		case shellSnapshots:
			s.handleSnapshots()
		case shellRestore:
			s.handleRestore(args)
		case shellQuery:
			s.handleQuery(ctx, args)
		case shellBreakpoints:
			s.handleBreakpoints()
		case shellWatches:
			s.handleWatches()
		case shellHelp:
			s.showHelp()
		}
	}
}

// parseCommand splits a command line into a command and its argument text.
func parseCommand(line string) (shellCommand, string, error) {
	name, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(name) {
	case "c", "continue":
		return shellContinue, "", nil
	case "n", "next":
		return shellNext, "", nil
	case "a", "abort", "q!":
		return shellAbort, "", nil
	case "i", "inspect", "p", "print":
		if args == "" {
			return "", "", fmt.Errorf("inspect requires an expression argument")
		}
		return shellInspect, args, nil
	case "ctx", "context":
		return shellContext, "", nil
	case "bt", "stack":
		return shellStack, "", nil
	case "snapshots", "history":
		return shellSnapshots, "", nil
	case "r", "restore":
		if args == "" {
			return "", "", fmt.Errorf("restore requires a snapshot number")
		}
		return shellRestore, args, nil
	case "q", "query":
		if args == "" {
			return "", "", fmt.Errorf("query requires a jq expression")
		}
		return shellQuery, args, nil
	case "b", "breakpoints":
		return shellBreakpoints, "", nil
	case "w", "watches":
		return shellWatches, "", nil
	case "h", "help", "?":
		return shellHelp, "", nil
	default:
		return "", "", fmt.Errorf("unknown command: %s (type 'help' for commands)", name)
	}
}

// displayStepInfo shows information about the paused step.
func (s *Shell) displayStepInfo(info PauseInfo) {
	fmt.Fprintln(s.output, "\n═══════════════════════════════════════════════════════════")
	fmt.Fprintf(s.output, "Paused at step %d (position %d): %s\n", info.Step.Index, info.Position, info.Step.Description)
	if info.Breakpoint != nil {
		fmt.Fprintf(s.output, "Breakpoint %s\n", info.Breakpoint)
	}
	fmt.Fprintln(s.output, "───────────────────────────────────────────────────────────")

	if len(info.Step.Variables) > 0 {
		fmt.Fprintln(s.output, "Variables:")
		fmt.Fprint(s.output, NewInspector(info.Step.Variables).Summary())
	} else {
		fmt.Fprintln(s.output, "Variables: (none)")
	}

	fmt.Fprintln(s.output, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(s.output, "Commands: continue, next, abort, inspect <expr>, context, stack, snapshots, restore <n>, query <jq>, help")
	fmt.Fprintln(s.output)
}

// handleInspect evaluates an expression against the live context.
func (s *Shell) handleInspect(expr string) {
	value, err := s.ctrl.EvaluateExpression(expr)
	if err != nil {
		fmt.Fprintf(s.output, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.output, "%s = %s\n", expr, expression.Render(value))
}

// handleContext dumps the live variables.
func (s *Shell) handleContext() {
	vars := s.ctrl.Context().Variables
	if len(vars) == 0 {
		fmt.Fprintln(s.output, "Context is empty")
		return
	}
	out, err := NewInspector(vars).FormatContext()
	if err != nil {
		fmt.Fprintf(s.output, "Error formatting context: %v\n", err)
		return
	}
	fmt.Fprintln(s.output, "Full Context:")
	fmt.Fprintln(s.output, out)
}

func (s *Shell) handleStack() {
	stack := s.ctrl.CallStack()
	if len(stack) == 0 {
		fmt.Fprintln(s.output, "Call stack is empty")
		return
	}
	for i := len(stack) - 1; i >= 0; i-- {
		f := stack[i]
		fmt.Fprintf(s.output, "  #%d %s (line %d)", len(stack)-1-i, f.Name, f.Line)
		if len(f.Locals) > 0 {
			fmt.Fprintf(s.output, " %s", expression.Render(f.Locals))
		}
		fmt.Fprintln(s.output)
	}
}

func (s *Shell) handleSnapshots() {
	snapshots := s.ctrl.Snapshots()
	if len(snapshots) == 0 {
		fmt.Fprintln(s.output, "No snapshots captured")
		return
	}
	for i, snap := range snapshots {
		fmt.Fprintf(s.output, "  [%d] step %d at %s (%d variables)\n",
			i, snap.StepIndex, snap.Timestamp.Format("15:04:05.000"), len(snap.Variables))
	}
}

func (s *Shell) handleRestore(arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintf(s.output, "Error: invalid snapshot number %q\n", arg)
		return
	}
	snap, err := s.ctrl.RestoreSnapshot(n)
	if err != nil {
		fmt.Fprintf(s.output, "Error: %v\n", err)
		return
	}
	out, err := NewInspector(snap.Variables).FormatContext()
	if err != nil {
		fmt.Fprintf(s.output, "Error formatting snapshot: %v\n", err)
		return
	}
	fmt.Fprintf(s.output, "Snapshot %d (step %d):\n%s\n", n, snap.StepIndex, out)
}

// handleQuery runs a jq query over the debugger state. The input document
// has the keys context, snapshots, stack, breakpoints, and watches.
func (s *Shell) handleQuery(ctx context.Context, query string) {
	doc := map[string]any{
		"context":     s.ctrl.Context(),
		"snapshots":   s.ctrl.Snapshots(),
		"stack":       s.ctrl.CallStack(),
		"breakpoints": s.ctrl.Breakpoints(),
		"watches":     s.ctrl.Watches(),
	}
	result, err := s.jq.Execute(ctx, query, doc)
	if err != nil {
		fmt.Fprintf(s.output, "Error: %v\n", err)
		return
	}
	out, err := NewInspector(nil).Format(result)
	if err != nil {
		fmt.Fprintf(s.output, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.output, out)
}

func (s *Shell) handleBreakpoints() {
	bps := s.ctrl.Breakpoints()
	lps := s.ctrl.Logpoints()
	if len(bps) == 0 && len(lps) == 0 {
		fmt.Fprintln(s.output, "No breakpoints")
		return
	}
	for _, bp := range bps {
		fmt.Fprintf(s.output, "  %s\n", bp)
	}
	for _, lp := range lps {
		fmt.Fprintf(s.output, "  #%d log at %d: %s\n", lp.ID, lp.At, lp.Template)
	}
}

func (s *Shell) handleWatches() {
	watches := s.ctrl.Watches()
	if len(watches) == 0 {
		fmt.Fprintln(s.output, "No watches")
		return
	}
	for _, w := range watches {
		value := "<unset>"
		if w.HasValue {
			value = expression.Render(w.LastValue)
		}
		fmt.Fprintf(s.output, "  #%d %s = %s\n", w.ID, w.Expression, value)
	}
}

// showHelp displays available commands.
func (s *Shell) showHelp() {
	help := `
Debug Commands:
  continue, c         Resume execution until next breakpoint or completion
  next, n             Step to the next step
  abort, a            Cancel execution immediately
  inspect <expr>, i   Evaluate an expression against the current step
  context, ctx        Dump the current variables as JSON
  stack, bt           Show the call stack, innermost frame first
  snapshots           List captured snapshots
  restore <n>, r      Show the variables of snapshot n
  query <jq>, q       Run a jq query over context, snapshots, stack, breakpoints, watches
  breakpoints, b      List breakpoints and logpoints
  watches, w          List watches and their last values
  help, h, ?          Show this help message

End of input aborts the run.
`
	fmt.Fprintln(s.output, help)
}
