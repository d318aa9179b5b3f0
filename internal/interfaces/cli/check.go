package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"foresight.thundra.io/cli/internal/application/services"
)

// CheckFlags holds command-line flags for the check command
type CheckFlags struct {
	Plugin       string
	AgentArgs    string
	AddIfMissing bool
}

// NewCheckCommand creates the check command
func NewCheckCommand(container *CLIContainer) *cobra.Command {
	flags := &CheckFlags{}

	cmd := &cobra.Command{
		Use:   "check <pom.xml>",
		Short: "Merge agent arguments into one plugin of a single pom.xml",
		Long: `Merge the given agent arguments into the argLine of one plugin declared
in a single descriptor: main build, plugin management and every profile.

No agent is downloaded; --agent-args is used verbatim.

Examples:
  foresight check pom.xml --agent-args "-javaagent:/ws/thundra-agent-bootstrap.jar -Dthundra.apiKey=KEY -Dthundra.agent.test.project.id=PROJECT"
  foresight check it/pom.xml --plugin failsafe --agent-args "$AGENT_ARGS" --add-if-missing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, container, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.Plugin, "plugin", "surefire", "Plugin to edit (surefire, failsafe or groupId:artifactId)")
	cmd.Flags().StringVar(&flags.AgentArgs, "agent-args", "", "Agent arguments to merge into argLine")
	cmd.Flags().BoolVar(&flags.AddIfMissing, "add-if-missing", false, "Declare the plugin when the descriptor lacks it")
	_ = cmd.MarkFlagRequired("agent-args")

	return cmd
}

// runCheck runs a single plugin checker over one descriptor
func runCheck(cmd *cobra.Command, container *CLIContainer, path string, flags *CheckFlags) error {
	target, err := services.ResolveTarget(flags.Plugin)
	if err != nil {
		return fmt.Errorf("invalid --plugin value: %w", err)
	}

	edited, err := container.App.InstrumentationService.Check(path, target, flags.AgentArgs, flags.AddIfMissing)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if edited {
		fmt.Fprintf(container.Out, "%s %s %s\n", instrumentedStyle.Render("✔"), path, mutedStyle.Render("["+target.Name+"]"))
	} else {
		fmt.Fprintf(container.Out, "%s %s %s\n", unchangedStyle.Render("-"), path, mutedStyle.Render(target.Name+" not configured"))
	}
	return nil
}
