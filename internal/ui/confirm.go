package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm shows a warning box and asks a yes/no question on in. Anything
// other than "y" or "yes" is a refusal, as is EOF.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string, question string) bool {
	p := NewPrinter(out)

	details := make([]Detail, 0, len(warnings))
	for i, w := range warnings {
		details = append(details, Detail{Key: fmt.Sprintf("%d", i+1), Value: w})
	}
	p.PrintWarning(title, details)

	p.Print(WarningTitleStyle.Render(question + " [y/N]: "))

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		p.Newline()
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	p.Println(StepPendingStyle.Render("  Cancelled."))
	return false
}
