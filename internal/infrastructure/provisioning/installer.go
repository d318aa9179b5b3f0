// Package provisioning downloads the agent bootstrap jar into a workspace.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"foresight.thundra.io/cli/internal/core/agent"
)

// DefaultRepositoryURL is the base of the agent's release artifacts.
const DefaultRepositoryURL = "https://repo.thundra.io/service/local/repositories/thundra-releases/content/io/thundra/agent/thundra-agent-bootstrap"

var ErrMissingVersion = errors.New("agent version is required")

// Getter fetches a URL and returns the response body.
type Getter interface {
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}

// AgentInstaller places thundra-agent-bootstrap.jar in a workspace.
type AgentInstaller struct {
	getter        Getter
	repositoryURL string
	logger        *zap.Logger
}

func NewAgentInstaller(getter Getter, repositoryURL string, logger *zap.Logger) *AgentInstaller {
	if repositoryURL == "" {
		repositoryURL = DefaultRepositoryURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentInstaller{
		getter:        getter,
		repositoryURL: strings.TrimRight(repositoryURL, "/"),
		logger:        logger,
	}
}

// ArtifactURL returns the download location of the given agent version.
func (i *AgentInstaller) ArtifactURL(version string) string {
	return fmt.Sprintf("%s/%s/thundra-agent-bootstrap-%s.jar", i.repositoryURL, version, version)
}

// Install downloads version into workspace and returns the absolute jar
// path. A previously installed jar is replaced only once the new one is
// fully written.
func (i *AgentInstaller) Install(ctx context.Context, workspace, version string) (string, error) {
	if strings.TrimSpace(version) == "" {
		return "", ErrMissingVersion
	}
	dir, err := filepath.Abs(workspace)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create workspace directory: %w", err)
	}

	url := i.ArtifactURL(version)
	i.logger.Info("Downloading agent", zap.String("version", version), zap.String("url", url))

	body, err := i.getter.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to download agent %s: %w", version, err)
	}
	defer body.Close()

	tmp, err := os.CreateTemp(dir, ".thundra-agent-*.jar")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary agent file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write agent jar: %w", err)
	}

	target := filepath.Join(dir, agent.BootstrapJar)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to install agent jar: %w", err)
	}

	i.logger.Info("Installed agent", zap.String("path", target), zap.Int64("bytes", n))
	return target, nil
}
