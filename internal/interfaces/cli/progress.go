package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"foresight.thundra.io/cli/internal/application/services"
	"foresight.thundra.io/cli/internal/logging"
)

const progressBarWidth = 30

// startedMsg is sent once the number of descriptors is known
type startedMsg struct {
	total int
}

// fileDoneMsg is sent after each descriptor
type fileDoneMsg struct {
	index  int
	result services.FileResult
}

// runFinishedMsg is sent when the service returns
type runFinishedMsg struct{}

// programObserver forwards service progress to a Bubble Tea program
type programObserver struct {
	program *tea.Program
}

func (o *programObserver) Started(total int) {
	o.program.Send(startedMsg{total: total})
}

func (o *programObserver) FileDone(index int, result services.FileResult) {
	o.program.Send(fileDoneMsg{index: index, result: result})
}

// programLogWriter prints log entries above the progress view
type programLogWriter struct {
	program *tea.Program
}

func (w *programLogWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		// Send returns immediately once the program has exited.
		w.program.Send(tea.Println(line)())
	}
	return len(p), nil
}

// runWithProgress runs the service while rendering a live progress bar to
// out. Log entries written to logs meanwhile are printed above the bar.
func runWithProgress(out io.Writer, logs *logging.Output, run func(services.Observer) (*services.Report, error)) (*services.Report, error) {
	program := tea.NewProgram(newProgressModel(), tea.WithOutput(out), tea.WithInput(nil), tea.WithoutSignalHandler())
	if logs != nil {
		restore := logs.Redirect(&programLogWriter{program: program})
		defer restore()
	}

	var (
		report *services.Report
		runErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		report, runErr = run(&programObserver{program: program})
		program.Send(runFinishedMsg{})
	}()

	_, uiErr := program.Run()
	<-finished
	if runErr == nil && uiErr != nil {
		runErr = fmt.Errorf("progress view failed: %w", uiErr)
	}
	return report, runErr
}

// progressModel holds the state of the progress view
type progressModel struct {
	total    int
	done     int
	failed   int
	current  string
	finished bool
}

func newProgressModel() progressModel {
	return progressModel{}
}

// Init implements the Bubble Tea init method
func (m progressModel) Init() tea.Cmd {
	return nil
}

// Update implements the Bubble Tea update method
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startedMsg:
		m.total = msg.total
		return m, nil

	case fileDoneMsg:
		m.done = msg.index + 1
		m.current = msg.result.Path
		if msg.result.Status == services.FileFailed {
			m.failed++
		}
		return m, nil

	case runFinishedMsg:
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}

// View implements the Bubble Tea view method
func (m progressModel) View() string {
	if m.finished {
		return ""
	}
	if m.total == 0 {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Render("Scanning workspace...") + "\n"
	}

	filled := progressBarWidth * m.done / m.total
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(strings.Repeat("░", progressBarWidth-filled))

	line := fmt.Sprintf("%s %d/%d", bar, m.done, m.total)
	if m.failed > 0 {
		line += lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(fmt.Sprintf("  %d failed", m.failed))
	}
	if m.current != "" {
		line += "  " + filepath.Base(filepath.Dir(m.current))
	}
	return line + "\n"
}
