package probe

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	warningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("62")).
		Bold(true).
		Underline(true)
)

// Render writes report to w as a human readable checklist. Verbose adds
// timings and the observed detail of passing checks.
func Render(w io.Writer, report Report, verbose bool) {
	fmt.Fprintln(w, sectionStyle.Render(report.Title))
	if report.Target != "" {
		fmt.Fprintln(w, infoStyle.Render("Target: "+report.Target))
	}
	fmt.Fprintln(w)

	for _, c := range report.Checks {
		switch {
		case c.OK:
			fmt.Fprintln(w, successStyle.Render("✅ "+c.Name))
		case c.Err != nil:
			fmt.Fprintln(w, errorStyle.Render("❌ "+c.Name+":"), c.Err)
		default:
			fmt.Fprintln(w, warningStyle.Render("⚠️  "+c.Name))
		}
		if c.Status != 0 && (verbose || !c.OK) {
			fmt.Fprintf(w, "   Status: %d\n", c.Status)
		}
		if c.Detail != "" && (verbose || !c.OK) {
			fmt.Fprintf(w, "   %s\n", c.Detail)
		}
		if verbose {
			fmt.Fprintf(w, "   Took: %s\n", c.Duration.Round(time.Millisecond))
		}
	}
	fmt.Fprintln(w)

	if report.OK() {
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("All %d checks passed", len(report.Checks))))
		return
	}
	fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("%d of %d checks failed", report.Failed(), len(report.Checks))))
}
