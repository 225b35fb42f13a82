package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/esimkit/esimctl/internal/version"
)

// AppName is shown in the header of every full-screen view.
const AppName = "ESIMCTL"

// BuildHeaderContent creates header content with the app name, version and
// the name of the current screen.
func BuildHeaderContent(screen string) string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " " + version.Version)

	if screen == "" {
		return left
	}

	right := lipgloss.NewStyle().
		Foreground(MutedColor).
		Render("─ " + screen)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

// BuildFooterContent creates footer content with help text
func BuildFooterContent(helpText string) string {
	return lipgloss.NewStyle().
		Foreground(MutedColor).
		Render(helpText)
}

// RenderApplicationContainer wraps every full-screen view: a bordered panel
// filling the terminal with a header naming the screen and a footer carrying
// the context-sensitive help.
//
//	func (m Model) View() string {
//	    return ui.RenderApplicationContainer("Settings", m.body(), m.help.View(m.keys), m.width, m.height)
//	}
func RenderApplicationContainer(screen, content, footerText string, terminalWidth, terminalHeight int) string {
	if terminalWidth < MinTerminalWidth {
		terminalWidth = MinTerminalWidth
	}
	if terminalHeight < 8 {
		terminalHeight = DefaultHeight
	}

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(PrimaryColor).
		Width(terminalWidth-4).
		Padding(0, 1)

	footerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(PrimaryColor).
		Width(terminalWidth-4).
		Padding(0, 1)

	// Callers control their own content margins.
	contentStyle := lipgloss.NewStyle().
		Width(terminalWidth - 4)

	inner := lipgloss.JoinVertical(
		lipgloss.Left,
		headerStyle.Render(BuildHeaderContent(screen)),
		contentStyle.Render(content),
		footerStyle.Render(BuildFooterContent(footerText)),
	)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(PrimaryColor).
		Width(terminalWidth - 2).
		Height(terminalHeight - 2).
		AlignVertical(lipgloss.Top).
		Render(inner)

	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Left, lipgloss.Top, bordered)
}

// ContentHeight is the number of rows left for content inside
// RenderApplicationContainer once border, header and footer are drawn.
func ContentHeight(terminalHeight int) int {
	h := terminalHeight - 8
	if h < 3 {
		return 3
	}
	return h
}
