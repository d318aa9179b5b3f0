package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"foresight.thundra.io/cli/internal/application/ports"
	"foresight.thundra.io/cli/internal/core/agent"
	"foresight.thundra.io/cli/internal/core/argline"
	"foresight.thundra.io/cli/internal/core/instrument"
)

// LatestVersion asks the resolver for the newest agent.
const LatestVersion = "latest"

// Target is a plugin the agent is injected into.
type Target struct {
	Name      string
	PluginKey string
}

var (
	SurefireTarget = Target{Name: "surefire", PluginKey: instrument.SurefirePluginKey}
	FailsafeTarget = Target{Name: "failsafe", PluginKey: instrument.FailsafePluginKey}
)

// DefaultTargets are instrumented when a request names none.
var DefaultTargets = []Target{SurefireTarget, FailsafeTarget}

// ResolveTarget accepts "surefire", "failsafe" or a groupId:artifactId key.
func ResolveTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case SurefireTarget.Name:
		return SurefireTarget, nil
	case FailsafeTarget.Name:
		return FailsafeTarget, nil
	}
	_, artifactID, err := instrument.ParsePluginKey(s)
	if err != nil {
		return Target{}, err
	}
	return Target{Name: artifactID, PluginKey: strings.TrimSpace(s)}, nil
}

// InstrumentRequest describes one run over a workspace.
type InstrumentRequest struct {
	Workspace string
	// AgentPath skips the download when set.
	AgentPath string
	// AgentVersion is downloaded when AgentPath is empty; empty or "latest"
	// resolves the newest release.
	AgentVersion    string
	APIKey          string
	ProjectID       string
	RunID           string
	RestBaseURL     string
	AddIfMissing    bool
	ContinueOnError bool
	Targets         []Target
}

// FileStatus is the outcome of instrumenting one descriptor.
type FileStatus int

const (
	FileUnchanged FileStatus = iota
	FileInstrumented
	FileFailed
)

func (s FileStatus) String() string {
	switch s {
	case FileInstrumented:
		return "instrumented"
	case FileFailed:
		return "failed"
	default:
		return "unchanged"
	}
}

// FileResult records what happened to one descriptor.
type FileResult struct {
	Path   string
	Status FileStatus
	// Plugins lists the targets whose configuration was written.
	Plugins []string
	Err     error
}

// Report summarizes an instrumentation run.
type Report struct {
	Workspace    string
	AgentPath    string
	AgentVersion string
	RunID        string
	Files        []FileResult
}

func (r *Report) count(s FileStatus) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == s {
			n++
		}
	}
	return n
}

func (r *Report) Instrumented() int { return r.count(FileInstrumented) }
func (r *Report) Unchanged() int    { return r.count(FileUnchanged) }
func (r *Report) Failed() int       { return r.count(FileFailed) }

// Observer is told about progress while a run walks the workspace.
type Observer interface {
	Started(total int)
	FileDone(index int, result FileResult)
}

type nopObserver struct{}

func (nopObserver) Started(int)             {}
func (nopObserver) FileDone(int, FileResult) {}

// InstrumentationService injects the agent into every descriptor of a workspace.
type InstrumentationService struct {
	finder    ports.DescriptorFinder
	store     instrument.DescriptorStore
	resolver  ports.VersionResolver
	installer ports.AgentInstaller
	logger    *zap.Logger
}

func NewInstrumentationService(
	finder ports.DescriptorFinder,
	store instrument.DescriptorStore,
	resolver ports.VersionResolver,
	installer ports.AgentInstaller,
	logger *zap.Logger,
) *InstrumentationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentationService{
		finder:    finder,
		store:     store,
		resolver:  resolver,
		installer: installer,
		logger:    logger,
	}
}

// Instrument finds every descriptor, provisions the agent and edits each
// descriptor in path order. Without ContinueOnError the first failing file
// stops the run; with it, remaining files are still processed and the joined
// failures are returned. The report is returned in both cases.
func (s *InstrumentationService) Instrument(ctx context.Context, req InstrumentRequest, observer Observer) (*Report, error) {
	if observer == nil {
		observer = nopObserver{}
	}
	targets := req.Targets
	if len(targets) == 0 {
		targets = DefaultTargets
	}
	workspace := req.Workspace
	if workspace == "" {
		workspace = "."
	}
	report := &Report{Workspace: workspace, RunID: req.RunID}
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}

	checkers := make([]*instrument.Checker, 0, len(targets))
	for _, t := range targets {
		c, err := instrument.NewChecker(t.PluginKey, t.Name, s.store, s.logger)
		if err != nil {
			return report, err
		}
		checkers = append(checkers, c)
	}

	files, err := s.finder.Find(ctx, workspace)
	if err != nil {
		return report, fmt.Errorf("failed to find descriptors: %w", err)
	}
	if len(files) == 0 {
		s.logger.Warn("No pom.xml found in workspace", zap.String("workspace", workspace))
		observer.Started(0)
		return report, nil
	}
	s.logger.Info("Found descriptors", zap.String("workspace", workspace), zap.Int("count", len(files)))

	agentPath, version, err := s.provisionAgent(ctx, workspace, req)
	if err != nil {
		return report, err
	}
	report.AgentPath = agentPath
	report.AgentVersion = version

	composed, err := agent.Compose(agent.Options{
		AgentPath:   agentPath,
		APIKey:      req.APIKey,
		ProjectID:   req.ProjectID,
		RunID:       report.RunID,
		RestBaseURL: req.RestBaseURL,
	})
	if err != nil {
		return report, fmt.Errorf("failed to compose agent arguments: %w", err)
	}

	observer.Started(len(files))
	var failures []error
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result := s.instrumentFile(path, composed, req.AddIfMissing, checkers)
		report.Files = append(report.Files, result)
		observer.FileDone(i, result)

		if result.Err != nil {
			if !req.ContinueOnError {
				return report, result.Err
			}
			failures = append(failures, result.Err)
		}
	}

	s.logger.Info("Instrumentation finished",
		zap.Int("instrumented", report.Instrumented()),
		zap.Int("unchanged", report.Unchanged()),
		zap.Int("failed", report.Failed()))
	return report, errors.Join(failures...)
}

func (s *InstrumentationService) instrumentFile(path, composed string, addIfMissing bool, checkers []*instrument.Checker) FileResult {
	result := FileResult{Path: path}
	for _, c := range checkers {
		edited, err := s.runChecker(c, path, composed, addIfMissing)
		if edited {
			result.Plugins = append(result.Plugins, c.Name())
		}
		if err != nil {
			result.Status = FileFailed
			result.Err = fmt.Errorf("%s: %w", c.Name(), err)
			return result
		}
	}
	if len(result.Plugins) > 0 {
		result.Status = FileInstrumented
	}
	return result
}

// runChecker edits profile-scoped declarations first, then the project build.
func (s *InstrumentationService) runChecker(c *instrument.Checker, path, composed string, addIfMissing bool) (bool, error) {
	inProfiles, err := c.CheckProfiles(path, composed, addIfMissing)
	if err != nil {
		return inProfiles, err
	}
	inBuild, err := c.CheckPom(path, composed, addIfMissing)
	return inProfiles || inBuild, err
}

// Check runs a single target over one descriptor.
func (s *InstrumentationService) Check(path string, target Target, agentArgs string, addIfMissing bool) (bool, error) {
	c, err := instrument.NewChecker(target.PluginKey, target.Name, s.store, s.logger)
	if err != nil {
		return false, err
	}
	return s.runChecker(c, path, agentArgs, addIfMissing)
}

func (s *InstrumentationService) provisionAgent(ctx context.Context, workspace string, req InstrumentRequest) (string, string, error) {
	if req.AgentPath != "" {
		path := req.AgentPath
		if !strings.HasPrefix(path, argline.JavaAgentPrefix) {
			abs, err := filepath.Abs(path)
			if err != nil {
				return "", "", fmt.Errorf("failed to resolve agent path: %w", err)
			}
			path = abs
		}
		s.logger.Info("Using provided agent", zap.String("path", path))
		return path, req.AgentVersion, nil
	}

	version := req.AgentVersion
	if version == "" || strings.EqualFold(version, LatestVersion) {
		v, err := s.resolver.LatestVersion(ctx)
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve latest agent version: %w", err)
		}
		version = v
	}

	path, err := s.installer.Install(ctx, workspace, version)
	if err != nil {
		return "", "", fmt.Errorf("failed to install agent: %w", err)
	}
	return path, version, nil
}
