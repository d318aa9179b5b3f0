package di

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"foresight.thundra.io/cli/internal/application/services"
	"foresight.thundra.io/cli/internal/config"
	"foresight.thundra.io/cli/internal/infrastructure/descriptor"
	httpinfra "foresight.thundra.io/cli/internal/infrastructure/http"
	"foresight.thundra.io/cli/internal/infrastructure/metadata"
	"foresight.thundra.io/cli/internal/infrastructure/provisioning"
	"foresight.thundra.io/cli/internal/infrastructure/workspace"
	"foresight.thundra.io/cli/internal/logging"
)

// retryBackoff is the pause between attempts of a failed download.
const retryBackoff = 2 * time.Second

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	// LogOutput is nil when the logger was supplied by the caller.
	LogOutput *logging.Output

	// Infrastructure
	DescriptorStore  *descriptor.FileStore
	DescriptorFinder *workspace.DescriptorFinder
	Requester        *httpinfra.StdRequester
	VersionResolver  *metadata.Resolver
	AgentInstaller   *provisioning.AgentInstaller

	// Application services
	InstrumentationService *services.InstrumentationService
}

// NewContainer wires every component from cfg. debug forces debug logging.
func NewContainer(cfg *config.Config, debug bool) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	out := logging.NewOutput(os.Stderr)
	logger, err := logging.NewWithOutput(cfg.LogLevel, debug, out)
	if err != nil {
		return nil, err
	}
	c, err := NewContainerWithLogger(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.LogOutput = out
	return c, nil
}

// NewContainerWithLogger wires every component around an existing logger.
func NewContainerWithLogger(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	c := &Container{Config: cfg, Logger: logger}
	c.initializeComponents()
	return c, nil
}

func (c *Container) initializeComponents() {
	cfg := c.Config

	// 1. Descriptor persistence and discovery
	c.DescriptorStore = descriptor.NewFileStore(c.Logger.Named("descriptor"))
	c.DescriptorFinder = workspace.NewDescriptorFinder(c.Logger.Named("workspace"))

	// 2. Remote repository access
	c.Requester = httpinfra.NewStdRequester(
		time.Duration(cfg.RequestTimeout),
		httpinfra.RetryPolicy{Attempts: cfg.RetryAttempts, Backoff: retryBackoff},
		c.Logger.Named("http"),
	)
	c.VersionResolver = metadata.NewResolver(c.Requester, cfg.MetadataURL, c.Logger.Named("metadata"))
	c.AgentInstaller = provisioning.NewAgentInstaller(c.Requester, cfg.RepositoryURL, c.Logger.Named("provisioning"))

	// 3. Application services
	c.InstrumentationService = services.NewInstrumentationService(
		c.DescriptorFinder,
		c.DescriptorStore,
		c.VersionResolver,
		c.AgentInstaller,
		c.Logger.Named("instrument"),
	)
}

// InstrumentRequest builds a run request from the loaded configuration.
func (c *Container) InstrumentRequest() services.InstrumentRequest {
	cfg := c.Config
	return services.InstrumentRequest{
		Workspace:       cfg.Workspace,
		AgentPath:       cfg.AgentPath,
		AgentVersion:    cfg.AgentVersion,
		APIKey:          cfg.APIKey,
		ProjectID:       cfg.ProjectID,
		RestBaseURL:     cfg.RestBaseURL,
		AddIfMissing:    cfg.AddIfMissing,
		ContinueOnError: cfg.ContinueOnError,
	}
}

// Shutdown flushes buffered log entries.
func (c *Container) Shutdown() error {
	if c.Logger == nil {
		return nil
	}
	err := c.Logger.Sync()
	// Syncing a terminal stderr fails with EINVAL or ENOTTY on Linux.
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
