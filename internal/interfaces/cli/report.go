package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"foresight.thundra.io/cli/internal/application/services"
)

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	mutedStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	instrumentedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	unchangedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	failedStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// renderReport writes the per-descriptor outcome of a run
func renderReport(w io.Writer, report *services.Report) {
	fmt.Fprintln(w, titleStyle.Render("Foresight instrumentation"))

	details := []string{"Workspace: " + report.Workspace}
	if report.AgentPath != "" {
		agent := "Agent: " + report.AgentPath
		if report.AgentVersion != "" {
			agent += " (" + report.AgentVersion + ")"
		}
		details = append(details, agent)
	}
	details = append(details, "Run ID: "+report.RunID)
	for _, d := range details {
		fmt.Fprintln(w, mutedStyle.Render(d))
	}

	if len(report.Files) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No pom.xml found."))
		return
	}

	fmt.Fprintln(w)
	for _, f := range report.Files {
		fmt.Fprintln(w, renderFileResult(report.Workspace, f))
	}

	summary := fmt.Sprintf("%d instrumented, %d unchanged, %d failed",
		report.Instrumented(), report.Unchanged(), report.Failed())
	fmt.Fprintln(w)
	if report.Failed() > 0 {
		fmt.Fprintln(w, failedStyle.Render(summary))
	} else {
		fmt.Fprintln(w, titleStyle.Render(summary))
	}
}

func renderFileResult(workspace string, f services.FileResult) string {
	path := f.Path
	if rel, err := filepath.Rel(workspace, f.Path); err == nil {
		path = rel
	}

	switch f.Status {
	case services.FileInstrumented:
		return fmt.Sprintf("%s %s %s", instrumentedStyle.Render("✔"), path,
			mutedStyle.Render("["+strings.Join(f.Plugins, ", ")+"]"))
	case services.FileFailed:
		return fmt.Sprintf("%s %s: %v", failedStyle.Render("✘"), path, f.Err)
	default:
		return fmt.Sprintf("%s %s %s", unchangedStyle.Render("-"), path, mutedStyle.Render("no test plugin configuration"))
	}
}
