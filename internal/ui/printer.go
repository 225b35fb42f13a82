package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Detail is one labelled value in a header or result box. Details keep
// their order.
type Detail struct {
	Key   string
	Value string
}

// Printer writes styled, non-interactive output for the one-shot commands
// (slots, daemons, prefs, logs export).
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// WithWidth overrides the detected terminal width.
func (p *Printer) WithWidth(width int) *Printer {
	p.width = ClampWidth(width)
	return p
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintInfo prints a dimmed one-line notice
func (p *Printer) PrintInfo(message string) {
	p.Println(HintStyle.Render(message))
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params []Detail) {
	p.Println(RenderHeader(title, command, params, p.width))
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details []Detail) {
	p.Println(RenderSuccessBox(title, details, p.width))
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details []Detail) {
	p.Println(RenderWarningBox(title, details, p.width))
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(RenderErrorBox(title, err, troubleshooting, p.width))
}

// PrintTable prints rows under a bold header line, columns padded to the
// widest cell.
func (p *Printer) PrintTable(headers []string, rows [][]string) {
	p.Println(RenderTable(headers, rows))
}

// RenderHeader renders a command header box
func RenderHeader(title, command string, params []Detail, width int) string {
	titleLine := HeaderTitleStyle.Render(strings.ToUpper(title))
	commandLine := HeaderCommandStyle.Render(command)
	sections := []string{titleLine, commandLine}

	if len(params) > 0 {
		dividerWidth := width - 6
		if dividerWidth < 10 {
			dividerWidth = 10
		}
		sections = append(sections, RenderHorizontalDivider(dividerWidth, "─"))
		for _, d := range params {
			sections = append(sections, HeaderParamKeyStyle.Render(d.Key+":")+" "+HeaderParamValueStyle.Render(d.Value))
		}
	}

	return HeaderBorderStyle(width).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// RenderSuccessBox renders a success result box
func RenderSuccessBox(title string, details []Detail, width int) string {
	lines := []string{
		"",
		SuccessTitleStyle.Render(fmt.Sprintf("%s  SUCCESS  ─  %s", SuccessMarker, title)),
		"",
	}
	lines = append(lines, renderDetails(details)...)
	return SuccessBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderWarningBox renders a warning result box
func RenderWarningBox(title string, details []Detail, width int) string {
	lines := []string{
		"",
		WarningTitleStyle.Render(fmt.Sprintf("%s  WARNING  ─  %s", WarningMarker, title)),
		"",
	}
	lines = append(lines, renderDetails(details)...)
	return WarningBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderErrorBox renders an error result box with troubleshooting
func RenderErrorBox(title string, err error, troubleshooting []string, width int) string {
	lines := []string{
		"",
		ErrorTitleStyle.Render(fmt.Sprintf("%s  FAILED  ─  %s", FailureMarker, title)),
		"",
	}

	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render("Error: "+err.Error()), "")
	}

	if len(troubleshooting) > 0 {
		tips := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
		for _, tip := range troubleshooting {
			tips = append(tips, TroubleshootingItemStyle.Render("  • "+tip))
		}
		lines = append(lines, TroubleshootingBoxStyle(width).Render(strings.Join(tips, "\n")), "")
	}

	return ErrorBoxStyle(width).Render(strings.Join(lines, "\n"))
}

func renderDetails(details []Detail) []string {
	if len(details) == 0 {
		return nil
	}
	lines := make([]string, 0, len(details)+1)
	for _, d := range details {
		lines = append(lines, ResultKeyStyle.Render(d.Key+":")+" "+ResultValueStyle.Render(d.Value))
	}
	return append(lines, "")
}

// RenderTable renders a plain aligned table.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := range headers {
			if i < len(row) && lipgloss.Width(row[i]) > widths[i] {
				widths[i] = lipgloss.Width(row[i])
			}
		}
	}

	cell := func(s string, w int) string {
		return s + strings.Repeat(" ", w-lipgloss.Width(s))
	}

	var b strings.Builder
	head := make([]string, len(headers))
	for i, h := range headers {
		head[i] = cell(h, widths[i])
	}
	b.WriteString(HeaderTitleStyle.UnsetPaddingLeft().Render(strings.TrimRight(strings.Join(head, "  "), " ")))

	for _, row := range rows {
		b.WriteString("\n")
		cols := make([]string, len(headers))
		for i := range headers {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			cols[i] = cell(v, widths[i])
		}
		b.WriteString(strings.TrimRight(strings.Join(cols, "  "), " "))
	}
	return b.String()
}
