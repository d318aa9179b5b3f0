package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"foresight.thundra.io/cli/internal/config"
	"foresight.thundra.io/cli/internal/interfaces/di"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// skipConfigAnnotation marks commands that run without loading configuration.
const skipConfigAnnotation = "foresight/skip-config"

// CLIContainer holds all the dependencies for CLI commands
type CLIContainer struct {
	// Config and App are populated before a command runs.
	Config *config.Config
	App    *di.Container

	// NewApp wires the application once configuration is final.
	NewApp func(cfg *config.Config, debug bool) (*di.Container, error)

	Out io.Writer
	Err io.Writer
	// Interactive enables the live progress view.
	Interactive bool
}

// NewCLIContainer returns a container writing to the process streams.
func NewCLIContainer() *CLIContainer {
	fd := os.Stderr.Fd()
	return &CLIContainer{
		NewApp:      di.NewContainer,
		Out:         os.Stdout,
		Err:         os.Stderr,
		Interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

// NewRootCommand RootCommand represents the base command when called without any subcommands
func NewRootCommand(container *CLIContainer) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "foresight",
		Short: "Foresight CLI - instrument Maven test runs with the Thundra agent",
		Long: `Foresight CLI injects the Thundra Foresight Java agent into every Maven
project descriptor of a CI workspace.

It configures the argLine of maven-surefire-plugin and maven-failsafe-plugin,
in the main build, plugin management and every profile, so that test runs
report to Thundra Foresight. Running it again leaves descriptors unchanged.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfigAnnotation] == "true" {
				return nil
			}
			return initializeContainer(cmd, container)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if container.App == nil {
				return nil
			}
			return container.App.Shutdown()
		},
	}

	rootCmd.SetOut(container.Out)
	rootCmd.SetErr(container.Err)

	// Set custom version template
	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	// Add persistent flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default is $FORESIGHT_CONFIG or ./.foresight.json)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(NewInstrumentCommand(container))
	rootCmd.AddCommand(NewCheckCommand(container))
	rootCmd.AddCommand(NewVersionCommand(container))

	return rootCmd
}

// initializeContainer loads configuration, applies flag overrides and
// wires the application.
func initializeContainer(cmd *cobra.Command, container *CLIContainer) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := applyConfigurationOverrides(cmd, cfg); err != nil {
		return fmt.Errorf("failed to apply configuration overrides: %w", err)
	}

	debugMode, _ := cmd.Flags().GetBool("debug")
	app, err := container.NewApp(cfg, debugMode)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	container.Config = cfg
	container.App = app
	if cfg.Source != "" {
		app.Logger.Debug("Loaded configuration file", zap.String("path", cfg.Source))
	}
	return nil
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// applyConfigurationOverrides applies configuration overrides from command line flags.
// Only flags explicitly set on the command line take effect.
func applyConfigurationOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	stringFlags := map[string]*string{
		"api-key":        &cfg.APIKey,
		"project-id":     &cfg.ProjectID,
		"agent-version":  &cfg.AgentVersion,
		"agent-path":     &cfg.AgentPath,
		"rest-base-url":  &cfg.RestBaseURL,
		"metadata-url":   &cfg.MetadataURL,
		"repository-url": &cfg.RepositoryURL,
		"log-level":      &cfg.LogLevel,
	}
	for name, dst := range stringFlags {
		if !changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return fmt.Errorf("failed to read --%s: %w", name, err)
		}
		*dst = v
	}

	boolFlags := map[string]*bool{
		"add-if-missing":    &cfg.AddIfMissing,
		"continue-on-error": &cfg.ContinueOnError,
	}
	for name, dst := range boolFlags {
		if !changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return fmt.Errorf("failed to read --%s: %w", name, err)
		}
		*dst = v
	}

	if changed("retry-attempts") {
		v, err := flags.GetInt("retry-attempts")
		if err != nil {
			return fmt.Errorf("failed to read --retry-attempts: %w", err)
		}
		cfg.RetryAttempts = v
	}
	if changed("request-timeout") {
		v, err := flags.GetDuration("request-timeout")
		if err != nil {
			return fmt.Errorf("failed to read --request-timeout: %w", err)
		}
		cfg.RequestTimeout = config.Duration(v)
	}

	return nil
}

// Execute adds all child commands to the root command and runs it.
func Execute(ctx context.Context, container *CLIContainer) error {
	rootCmd := NewRootCommand(container)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(container.Err, "Error: %v\n", err)
		return err
	}
	return nil
}
