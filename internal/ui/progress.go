package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Currently executing
	StepComplete                   // Successfully completed
	StepFailed                     // Failed
)

// Step is one named stage of a long-running operation.
type Step struct {
	Name    string
	Status  StepStatus
	Message string
}

// Progress renders a bar plus a stage list. Stages are ordered; reaching a
// stage completes every stage before it.
type Progress struct {
	Label   string
	Steps   []Step
	Percent float64 // 0.0 - 1.0
	Width   int
	bar     progress.Model
}

// NewProgress creates a progress display over the named stages.
func NewProgress(label string, names []string) *Progress {
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Name: name}
	}
	p := &Progress{
		Label: label,
		Steps: steps,
	}
	return p.SetWidth(GetTerminalWidth())
}

// SetWidth sets the terminal width for responsive rendering
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	barWidth := width - 20 // room for percentage and step count
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// Advance marks the named stage running at the given percentage (0-100).
// Unknown stage names only move the bar.
func (p *Progress) Advance(name string, percent int) {
	p.Percent = clampPercent(percent)

	idx := p.indexOf(name)
	if idx < 0 {
		return
	}
	for i := range p.Steps {
		switch {
		case i < idx:
			p.Steps[i].Status = StepComplete
		case i == idx:
			p.Steps[i].Status = StepRunning
		}
	}
}

// Complete marks every stage done.
func (p *Progress) Complete() {
	p.Percent = 1
	for i := range p.Steps {
		p.Steps[i].Status = StepComplete
	}
}

// Fail marks the running stage (or the named one) failed with message.
func (p *Progress) Fail(name, message string) {
	idx := p.indexOf(name)
	if idx < 0 {
		idx = p.Current() - 1
	}
	if idx < 0 {
		return
	}
	p.Steps[idx].Status = StepFailed
	p.Steps[idx].Message = message
}

// Current returns the 1-based index of the running stage, or 0.
func (p *Progress) Current() int {
	for i, s := range p.Steps {
		if s.Status == StepRunning || s.Status == StepFailed {
			return i + 1
		}
	}
	return 0
}

func (p *Progress) indexOf(name string) int {
	for i, s := range p.Steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func clampPercent(percent int) float64 {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 1
	}
	return float64(percent) / 100
}

// Render returns the styled progress display as a string
func (p *Progress) Render() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}

	b.WriteString(lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %3.0f%%  [%d/%d]", p.bar.ViewAs(p.Percent), p.Percent*100, p.Current(), len(p.Steps))))
	b.WriteString("\n\n")

	lines := make([]string, 0, len(p.Steps))
	for i, step := range p.Steps {
		lines = append(lines, p.renderStepLine(i+1, step))
	}
	b.WriteString(strings.Join(lines, "\n"))

	return b.String()
}

func (p *Progress) renderStepLine(number int, step Step) string {
	var marker string
	var style lipgloss.Style

	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("  [%d/%d] ", number, len(p.Steps)))
	b.WriteString(style.Render(step.Name))

	// Align markers in one column.
	padding := 32 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}
