package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultLogLevel       = "info"
	DefaultRequestTimeout = 30 * time.Second
	DefaultRetryAttempts  = 3
)

// Environment variables read by Load.
const (
	EnvConfigPath      = "FORESIGHT_CONFIG"
	EnvAPIKey          = "THUNDRA_APIKEY"
	EnvProjectID       = "THUNDRA_AGENT_TEST_PROJECT_ID"
	EnvRestBaseURL     = "THUNDRA_URL"
	EnvAgentVersion    = "FORESIGHT_AGENT_VERSION"
	EnvAgentPath       = "FORESIGHT_AGENT_PATH"
	EnvWorkspace       = "FORESIGHT_WORKSPACE"
	EnvLogLevel        = "FORESIGHT_LOG_LEVEL"
	EnvAddIfMissing    = "FORESIGHT_ADD_IF_MISSING"
	EnvContinueOnError = "FORESIGHT_CONTINUE_ON_ERROR"
)

// defaultFiles are probed in the working directory when no path is given.
var defaultFiles = []string{".foresight.json", ".foresight.yaml", ".foresight.yml"}

var (
	ErrMissingAPIKey    = errors.New("API key is required (set THUNDRA_APIKEY or --api-key)")
	ErrMissingProjectID = errors.New("project ID is required (set THUNDRA_AGENT_TEST_PROJECT_ID or --project-id)")
)

type Config struct {
	APIKey          string   `json:"api_key" yaml:"api_key"`
	ProjectID       string   `json:"project_id" yaml:"project_id"`
	AgentVersion    string   `json:"agent_version" yaml:"agent_version"`
	AgentPath       string   `json:"agent_path" yaml:"agent_path"`
	Workspace       string   `json:"workspace" yaml:"workspace"`
	RestBaseURL     string   `json:"rest_base_url" yaml:"rest_base_url"`
	MetadataURL     string   `json:"metadata_url" yaml:"metadata_url"`
	RepositoryURL   string   `json:"repository_url" yaml:"repository_url"`
	AddIfMissing    bool     `json:"add_if_missing" yaml:"add_if_missing"`
	ContinueOnError bool     `json:"continue_on_error" yaml:"continue_on_error"`
	LogLevel        string   `json:"log_level" yaml:"log_level"`
	RequestTimeout  Duration `json:"request_timeout" yaml:"request_timeout"`
	RetryAttempts   int      `json:"retry_attempts" yaml:"retry_attempts"`

	// Source is the config file that was read, empty when none was.
	Source string `json:"-" yaml:"-"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Workspace:      ".",
		AddIfMissing:   true,
		LogLevel:       DefaultLogLevel,
		RequestTimeout: Duration(DefaultRequestTimeout),
		RetryAttempts:  DefaultRetryAttempts,
	}
}

// Load layers defaults, the config file and the environment, in that order.
// configPath falls back to FORESIGHT_CONFIG and then to a .foresight file in
// the working directory. An explicitly named file must exist.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	explicit := true
	if configPath == "" {
		configPath = os.Getenv(EnvConfigPath)
	}
	if configPath == "" {
		explicit = false
		for _, name := range defaultFiles {
			if _, err := os.Stat(name); err == nil {
				configPath = name
				break
			}
		}
	}

	if configPath != "" {
		if err := cfg.loadFile(configPath); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.Source = path
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str(EnvAPIKey, &c.APIKey)
	str(EnvProjectID, &c.ProjectID)
	str(EnvRestBaseURL, &c.RestBaseURL)
	str(EnvAgentVersion, &c.AgentVersion)
	str(EnvAgentPath, &c.AgentPath)
	str(EnvWorkspace, &c.Workspace)
	str(EnvLogLevel, &c.LogLevel)
	if err := boolean(EnvAddIfMissing, &c.AddIfMissing); err != nil {
		return err
	}
	return boolean(EnvContinueOnError, &c.ContinueOnError)
}

// Validate checks the settings an instrumentation run cannot do without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.ProjectID) == "" {
		return ErrMissingProjectID
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.RetryAttempts)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// MaskedAPIKey returns the API key with all but its last four characters hidden.
func (c *Config) MaskedAPIKey() string {
	if len(c.APIKey) <= 4 {
		return strings.Repeat("*", len(c.APIKey))
	}
	return strings.Repeat("*", len(c.APIKey)-4) + c.APIKey[len(c.APIKey)-4:]
}

// Duration decodes Go duration strings ("45s") or integer seconds.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) set(s string) error {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.set(s)
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.set(node.Value)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
