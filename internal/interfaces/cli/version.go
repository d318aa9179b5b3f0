package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command
func NewVersionCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(container.Out, "foresight version %s\n", Version)
			fmt.Fprintf(container.Out, "Build time: %s\n", BuildTime)
			fmt.Fprintf(container.Out, "Go version: %s\n", goVersion())
			fmt.Fprintf(container.Out, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
