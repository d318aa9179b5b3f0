package ports

import "context"

// VersionResolver finds the newest published agent version.
type VersionResolver interface {
	LatestVersion(ctx context.Context) (string, error)
}

// AgentInstaller places the agent jar for version in workspace and returns
// its path.
type AgentInstaller interface {
	Install(ctx context.Context, workspace, version string) (string, error)
}

// DescriptorFinder lists the project descriptors under a workspace root.
type DescriptorFinder interface {
	Find(ctx context.Context, root string) ([]string, error)
}
