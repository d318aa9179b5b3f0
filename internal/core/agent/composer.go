// Package agent builds the JVM arguments that attach the Foresight agent to
// a test run.
package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"foresight.thundra.io/cli/internal/core/argline"
)

// BootstrapJar is the file name the agent is installed under.
const BootstrapJar = "thundra-agent-bootstrap.jar"

var (
	ErrMissingAgentPath = errors.New("agent path is required")
	ErrMissingAPIKey    = errors.New("API key is required")
	ErrMissingProjectID = errors.New("project ID is required")
)

// Options are the inputs of the composed agent arguments.
type Options struct {
	AgentPath string
	APIKey    string
	ProjectID string
	// RunID identifies the test run; a random UUID is used when empty.
	RunID string
	// RestBaseURL overrides the reporting endpoint when set.
	RestBaseURL string
}

// Compose returns the agent arguments as a single space-delimited string:
//
//	-javaagent:<path> -Dthundra.apiKey=<key> -Dthundra.agent.test.project.id=<id> -Dthundra.agent.test.run.id=<run>[ -Dthundra.agent.report.rest.baseurl=<url>]
func Compose(opts Options) (string, error) {
	agentPath := strings.TrimSpace(opts.AgentPath)
	apiKey := strings.TrimSpace(opts.APIKey)
	projectID := strings.TrimSpace(opts.ProjectID)
	restBaseURL := strings.TrimSpace(opts.RestBaseURL)

	switch {
	case agentPath == "":
		return "", ErrMissingAgentPath
	case apiKey == "":
		return "", ErrMissingAPIKey
	case projectID == "":
		return "", ErrMissingProjectID
	}
	for name, v := range map[string]string{"agent path": agentPath, "API key": apiKey, "project ID": projectID, "rest base URL": restBaseURL} {
		if strings.ContainsAny(v, " \t\r\n") {
			return "", fmt.Errorf("%s must not contain whitespace", name)
		}
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	if !strings.HasPrefix(agentPath, argline.JavaAgentPrefix) {
		agentPath = argline.JavaAgentPrefix + agentPath
	}

	args := []string{
		agentPath,
		argline.APIKeyProperty + "=" + apiKey,
		argline.ProjectIDProperty + "=" + projectID,
		argline.RunIDProperty + "=" + runID,
	}
	if restBaseURL != "" {
		args = append(args, argline.RestBaseURLProperty+"="+restBaseURL)
	}
	return strings.Join(args, " "), nil
}
