package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"
)

const (
	// MetadataPath is where the mock serves maven-metadata.xml.
	MetadataPath = "/thundra-agent-bootstrap/maven-metadata.xml"
	// ArtifactRoot is the repository base URL path for agent jars.
	ArtifactRoot = "/thundra-agent-bootstrap"
)

// MockRepository is an httptest server that behaves like the Maven
// repository hosting the agent bootstrap jar.
type MockRepository struct {
	*httptest.Server
	Config     MockRepositoryConfig
	RequestLog []RequestInfo
	mu         sync.Mutex
	failures   map[string]int
}

// MockRepositoryConfig contains the artifacts and behavior of the mock
type MockRepositoryConfig struct {
	Latest   string
	Release  string
	Versions []string
	// Jars maps a version to the bytes served for its bootstrap jar.
	Jars map[string][]byte

	// FailFirst makes the first n requests to a path answer with 503.
	FailFirst     map[string]int
	ResponseDelay time.Duration
}

// RequestInfo captures one request for assertions
type RequestInfo struct {
	Method    string
	Path      string
	UserAgent string
	Timestamp time.Time
}

// MockRepositoryBuilder provides a fluent interface for configuring the mock
type MockRepositoryBuilder struct {
	t      *testing.T
	config MockRepositoryConfig
}

// NewMockRepository creates a builder for a repository with no artifacts
func NewMockRepository(t *testing.T) *MockRepositoryBuilder {
	return &MockRepositoryBuilder{
		t: t,
		config: MockRepositoryConfig{
			Jars:      make(map[string][]byte),
			FailFirst: make(map[string]int),
		},
	}
}

// WithVersion publishes a jar and makes it the latest version
func (b *MockRepositoryBuilder) WithVersion(version string, jar []byte) *MockRepositoryBuilder {
	b.config.Versions = append(b.config.Versions, version)
	b.config.Jars[version] = jar
	b.config.Latest = version
	return b
}

// WithoutLatest drops <latest> so only <release> is advertised
func (b *MockRepositoryBuilder) WithoutLatest() *MockRepositoryBuilder {
	b.config.Release = b.config.Latest
	b.config.Latest = ""
	return b
}

// WithFailures answers the first n requests to path with 503
func (b *MockRepositoryBuilder) WithFailures(path string, n int) *MockRepositoryBuilder {
	b.config.FailFirst[path] = n
	return b
}

// WithResponseDelay adds artificial delay to responses
func (b *MockRepositoryBuilder) WithResponseDelay(delay time.Duration) *MockRepositoryBuilder {
	b.config.ResponseDelay = delay
	return b
}

// Build starts the server. It is closed when the test ends.
func (b *MockRepositoryBuilder) Build() *MockRepository {
	mock := &MockRepository{
		Config:   b.config,
		failures: make(map[string]int),
	}
	for path, n := range b.config.FailFirst {
		mock.failures[path] = n
	}

	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.logRequest(r)

		if b.config.ResponseDelay > 0 {
			time.Sleep(b.config.ResponseDelay)
		}

		if mock.shouldFail(r.URL.Path) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		switch {
		case r.URL.Path == MetadataPath:
			mock.handleMetadata(w)
		case strings.HasPrefix(r.URL.Path, ArtifactRoot+"/"):
			mock.handleArtifact(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	if b.t != nil {
		b.t.Cleanup(mock.Close)
	}
	return mock
}

// MetadataURL returns the full maven-metadata.xml URL
func (m *MockRepository) MetadataURL() string {
	return m.URL + MetadataPath
}

// RepositoryURL returns the artifact base URL
func (m *MockRepository) RepositoryURL() string {
	return m.URL + ArtifactRoot
}

// ArtifactPath returns the request path of a version's jar
func ArtifactPath(version string) string {
	return fmt.Sprintf("%s/%s/thundra-agent-bootstrap-%s.jar", ArtifactRoot, version, version)
}

func (m *MockRepository) logRequest(r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RequestLog = append(m.RequestLog, RequestInfo{
		Method:    r.Method,
		Path:      r.URL.Path,
		UserAgent: r.UserAgent(),
		Timestamp: time.Now(),
	})
}

func (m *MockRepository) shouldFail(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures[path] > 0 {
		m.failures[path]--
		return true
	}
	return false
}

func (m *MockRepository) handleMetadata(w http.ResponseWriter) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	metadata := doc.CreateElement("metadata")
	metadata.CreateElement("groupId").SetText("io.thundra.agent")
	metadata.CreateElement("artifactId").SetText("thundra-agent-bootstrap")

	versioning := metadata.CreateElement("versioning")
	if m.Config.Latest != "" {
		versioning.CreateElement("latest").SetText(m.Config.Latest)
	}
	if m.Config.Release != "" {
		versioning.CreateElement("release").SetText(m.Config.Release)
	}
	versions := versioning.CreateElement("versions")
	for _, v := range m.Config.Versions {
		versions.CreateElement("version").SetText(v)
	}
	doc.Indent(2)

	w.Header().Set("Content-Type", "application/xml")
	doc.WriteTo(w)
}

func (m *MockRepository) handleArtifact(w http.ResponseWriter, r *http.Request) {
	for version, data := range m.Config.Jars {
		if r.URL.Path == ArtifactPath(version) {
			w.Header().Set("Content-Type", "application/java-archive")
			w.Write(data)
			return
		}
	}
	http.NotFound(w, r)
}

// Utility methods for test assertions

// GetRequestCount returns the number of requests made to a specific path
func (m *MockRepository) GetRequestCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, req := range m.RequestLog {
		if req.Path == path {
			count++
		}
	}
	return count
}

// GetLastRequest returns the most recent request to a specific path
func (m *MockRepository) GetLastRequest(path string) *RequestInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.RequestLog) - 1; i >= 0; i-- {
		if m.RequestLog[i].Path == path {
			req := m.RequestLog[i]
			return &req
		}
	}
	return nil
}

// ClearRequestLog clears the request log
func (m *MockRepository) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestLog = nil
}
