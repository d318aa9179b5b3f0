package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"foresight.thundra.io/cli/internal/application/services"
	"foresight.thundra.io/cli/internal/config"
)

// InstrumentFlags holds command-line flags that are not part of the configuration
type InstrumentFlags struct {
	RunID      string
	Plugins    []string
	NoProgress bool
}

// NewInstrumentCommand creates the instrument command
func NewInstrumentCommand(container *CLIContainer) *cobra.Command {
	flags := &InstrumentFlags{}

	cmd := &cobra.Command{
		Use:   "instrument [workspace]",
		Short: "Inject the Foresight agent into every pom.xml of a workspace",
		Long: `Find every pom.xml under the workspace (default: current directory),
download the Thundra agent bootstrap jar into it and add the agent to the
argLine of the Surefire and Failsafe plugins.

Existing argLine options are kept. Agent, API key and project ID options
from an earlier run are replaced in place, so running twice is harmless.

Examples:
  foresight instrument --api-key $KEY --project-id $PROJECT
  foresight instrument ./service --agent-version 2.7.55
  foresight instrument --agent-path /opt/thundra/thundra-agent-bootstrap.jar
  foresight instrument --plugins surefire --add-if-missing=false`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				container.Config.Workspace = args[0]
			}
			return runInstrument(cmd.Context(), container, flags)
		},
	}

	defaults := config.Default()

	// Configuration overrides
	cmd.Flags().String("api-key", "", "Thundra API key (env THUNDRA_APIKEY)")
	cmd.Flags().String("project-id", "", "Foresight project ID (env THUNDRA_AGENT_TEST_PROJECT_ID)")
	cmd.Flags().String("agent-version", "", "Agent version to download (default: latest)")
	cmd.Flags().String("agent-path", "", "Use an existing agent jar instead of downloading one")
	cmd.Flags().String("rest-base-url", "", "Override the agent reporting endpoint (env THUNDRA_URL)")
	cmd.Flags().String("metadata-url", "", "Agent maven-metadata.xml location")
	cmd.Flags().String("repository-url", "", "Agent artifact repository base URL")
	cmd.Flags().Bool("add-if-missing", defaults.AddIfMissing, "Declare the plugins in descriptors that lack them")
	cmd.Flags().Bool("continue-on-error", false, "Keep going after a descriptor fails")
	cmd.Flags().Int("retry-attempts", defaults.RetryAttempts, "Attempts for each download")
	cmd.Flags().Duration("request-timeout", time.Duration(defaults.RequestTimeout), "Timeout of each download")

	// Run flags
	cmd.Flags().StringVar(&flags.RunID, "run-id", "", "Test run ID shared by all descriptors (default: random UUID)")
	cmd.Flags().StringSliceVar(&flags.Plugins, "plugins", []string{"surefire", "failsafe"}, "Plugins to instrument (surefire, failsafe or groupId:artifactId)")
	cmd.Flags().BoolVar(&flags.NoProgress, "no-progress", false, "Disable the live progress view")

	return cmd
}

// runInstrument validates configuration and runs the instrumentation service
func runInstrument(ctx context.Context, container *CLIContainer, flags *InstrumentFlags) error {
	if err := container.Config.Validate(); err != nil {
		return err
	}

	targets := make([]services.Target, 0, len(flags.Plugins))
	for _, p := range flags.Plugins {
		t, err := services.ResolveTarget(p)
		if err != nil {
			return fmt.Errorf("invalid --plugins value: %w", err)
		}
		targets = append(targets, t)
	}

	req := container.App.InstrumentRequest()
	req.RunID = flags.RunID
	req.Targets = targets

	run := func(observer services.Observer) (*services.Report, error) {
		return container.App.InstrumentationService.Instrument(ctx, req, observer)
	}

	var (
		report *services.Report
		err    error
	)
	if container.Interactive && !flags.NoProgress {
		report, err = runWithProgress(container.Err, container.App.LogOutput, run)
	} else {
		report, err = run(&lineObserver{out: container.Err})
	}

	if report != nil {
		renderReport(container.Out, report)
	}
	if err != nil {
		return fmt.Errorf("instrumentation failed: %w", err)
	}
	return nil
}

// lineObserver prints one line per descriptor for non-interactive output
type lineObserver struct {
	out   io.Writer
	total int
}

func (o *lineObserver) Started(total int) { o.total = total }

func (o *lineObserver) FileDone(index int, result services.FileResult) {
	fmt.Fprintf(o.out, "[%d/%d] %-12s %s\n", index+1, o.total, result.Status, result.Path)
}
