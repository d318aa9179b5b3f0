package provisioning

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foresight.thundra.io/cli/internal/core/agent"
	httpinfra "foresight.thundra.io/cli/internal/infrastructure/http"
)

func newServer(t *testing.T, jar string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repo/2.7.55/thundra-agent-bootstrap-2.7.55.jar" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, jar)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newInstaller(srv *httptest.Server) *AgentInstaller {
	getter := httpinfra.NewStdRequester(time.Second, httpinfra.RetryPolicy{Attempts: 1}, nil)
	return NewAgentInstaller(getter, srv.URL+"/repo/", nil)
}

func TestAgentInstaller_ArtifactURL(t *testing.T) {
	i := NewAgentInstaller(nil, "", nil)
	assert.Equal(t,
		DefaultRepositoryURL+"/2.7.55/thundra-agent-bootstrap-2.7.55.jar",
		i.ArtifactURL("2.7.55"))
}

func TestAgentInstaller_Install_ReplacesPreviousJar(t *testing.T) {
	ws := t.TempDir()
	previous := filepath.Join(ws, agent.BootstrapJar)
	require.NoError(t, os.WriteFile(previous, []byte("old"), 0o644))

	path, err := newInstaller(newServer(t, "new-jar-bytes")).Install(context.Background(), ws, "2.7.55")
	require.NoError(t, err)
	assert.Equal(t, previous, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new-jar-bytes", string(data))

	entries, err := os.ReadDir(ws)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestAgentInstaller_Install_UnknownVersionKeepsPreviousJar(t *testing.T) {
	ws := t.TempDir()
	previous := filepath.Join(ws, agent.BootstrapJar)
	require.NoError(t, os.WriteFile(previous, []byte("old"), 0o644))

	_, err := newInstaller(newServer(t, "x")).Install(context.Background(), ws, "9.9.9")

	var se *httpinfra.StatusError
	require.True(t, errors.As(err, &se))
	data, err := os.ReadFile(previous)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestAgentInstaller_Install_CreatesWorkspace(t *testing.T) {
	ws := filepath.Join(t.TempDir(), "nested", "ws")

	path, err := newInstaller(newServer(t, "jar")).Install(context.Background(), ws, "2.7.55")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestAgentInstaller_Install_RequiresVersion(t *testing.T) {
	_, err := NewAgentInstaller(nil, "", nil).Install(context.Background(), t.TempDir(), " ")
	assert.True(t, errors.Is(err, ErrMissingVersion))
}
