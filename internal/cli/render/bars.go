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

// Package render draws the working array of a step as horizontal bars.
package render

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/tombee/stepwise/pkg/executor"
)

const (
	// DefaultWidth is used when the terminal width cannot be detected
	DefaultWidth = 80
	// MinBarWidth is the narrowest bar area drawn
	MinBarWidth = 10
	// MaxBarWidth caps bars on wide terminals
	MaxBarWidth = 60

	barFull  = "█"
	barNeg   = "░"
	marker   = "◀"
	axisLine = "│"
)

// Renderer renders arrays as bar charts.
type Renderer struct {
	Width    int
	BarWidth int

	Bar       lipgloss.Style
	Highlight lipgloss.Style
	Label     lipgloss.Style
}

// NewRenderer creates a renderer sized to the terminal on stdout.
func NewRenderer() *Renderer {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = DefaultWidth
	}
	return NewRendererWidth(width)
}

// NewRendererWidth creates a renderer for a fixed width.
func NewRendererWidth(width int) *Renderer {
	// Reserve space for the index, axis, value and marker:
	// "  12 │████████ 345 ◀"
	barWidth := width - 20
	if barWidth > MaxBarWidth {
		barWidth = MaxBarWidth
	}
	if barWidth < MinBarWidth {
		barWidth = MinBarWidth
	}

	return &Renderer{
		Width:     width,
		BarWidth:  barWidth,
		Bar:       lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		Highlight: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		Label:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// RenderStep renders a header for step followed by its array, with the
// affected positions highlighted.
func (r *Renderer) RenderStep(step executor.ExecutionStep) string {
	var sb strings.Builder
	header := fmt.Sprintf("step %d  %s  %s", step.Index, step.Kind, step.Description)
	sb.WriteString(truncate(header, r.Width))
	sb.WriteString("\n")
	sb.WriteString(r.RenderArray(step.Array(), step.AffectedNodes))
	return sb.String()
}

// RenderArray renders one bar per element. Bars scale with the largest
// absolute value; negative values use a lighter fill.
func (r *Renderer) RenderArray(arr []int, highlight []int) string {
	if len(arr) == 0 {
		return r.Label.Render("(empty)") + "\n"
	}

	maxAbs := 0
	for _, v := range arr {
		maxAbs = max(maxAbs, abs(v))
	}
	idxWidth := len(fmt.Sprint(len(arr) - 1))

	var sb strings.Builder
	for i, v := range arr {
		hot := slices.Contains(highlight, i)

		bar := strings.Repeat(fill(v), r.barLength(v, maxAbs))
		style := r.Bar
		if hot {
			style = r.Highlight
		}

		sb.WriteString(r.Label.Render(fmt.Sprintf("%*d %s", idxWidth, i, axisLine)))
		sb.WriteString(style.Render(bar))
		fmt.Fprintf(&sb, " %d", v)
		if hot {
			sb.WriteString(" " + r.Highlight.Render(marker))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (r *Renderer) barLength(v, maxAbs int) int {
	if v == 0 || maxAbs == 0 {
		return 0
	}
	n := (abs(v)*r.BarWidth + maxAbs/2) / maxAbs
	return max(n, 1)
}

func fill(v int) string {
	if v < 0 {
		return barNeg
	}
	return barFull
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// truncate truncates a string to maxLen, adding "..." if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
