package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir" env:"DOCFLOW_DATA_DIR"`
	LogDir    string `toml:"log_dir" env:"DOCFLOW_LOG_DIR"`
	ExportDir string `toml:"export_dir" env:"DOCFLOW_EXPORT_DIR"`
	APIBind   string `toml:"api_bind" env:"DOCFLOW_API_BIND"`
	APIToken  string `toml:"api_token" env:"DOCFLOW_API_TOKEN"`
}

// Workflow contains episode workflow behaviour.
type Workflow struct {
	// DeferredStart creates new episodes with every phase pending instead of
	// starting research immediately.
	DeferredStart bool `toml:"deferred_start"`
	// AdvanceRetryAttempts bounds reload-and-retry when another writer
	// changed the workflow between read and write.
	AdvanceRetryAttempts int `toml:"advance_retry_attempts"`
}

// Review contains the review gate SLAs. They drive reporting and alerts
// only; the workflow engine never waits on them.
type Review struct {
	ReviewSLAHours       int `toml:"review_sla_hours"`
	RevisionSLAHours     int `toml:"revision_sla_hours"`
	CheckIntervalSeconds int `toml:"check_interval_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic       string `toml:"ntfy_topic" env:"DOCFLOW_NTFY_TOPIC"`
	RequestTimeout  int    `toml:"request_timeout"`
	PhaseStarted    bool   `toml:"phase_started"`
	ReviewRequested bool   `toml:"review_requested"`
	Approved        bool   `toml:"approved"`
	Rejected        bool   `toml:"rejected"`
	Completed       bool   `toml:"completed"`
	Overdue         bool   `toml:"overdue"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"DOCFLOW_LOG_FORMAT"`
	Level  string `toml:"level" env:"DOCFLOW_LOG_LEVEL"`
}

// Telemetry contains OpenTelemetry tracing configuration. Tracing is off
// unless an OTLP endpoint is set.
type Telemetry struct {
	OTLPEndpoint string `toml:"otlp_endpoint" env:"DOCFLOW_OTEL_ENDPOINT"`
	ServiceName  string `toml:"service_name"`
}

// Config encapsulates all configuration values for docflow.
//
// Configuration sections by subsystem:
//   - Paths: database, log, and export directories plus the API bind address
//   - Workflow: episode creation and advance retry behaviour
//   - Review: review gate SLAs used by reports and overdue alerts
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
//   - Telemetry: optional OTLP trace export
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workflow      Workflow      `toml:"workflow"`
	Review        Review        `toml:"review"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Telemetry     Telemetry     `toml:"telemetry"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/docflow/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Environment variables override file values.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return "", false, fmt.Errorf("config file %s does not exist", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %s is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("docflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon and CLI operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ExportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "docflow.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "docflowd.lock")
}

// ReviewSLA returns how long a phase may sit in review before it is overdue.
func (c *Config) ReviewSLA() time.Duration {
	return time.Duration(c.Review.ReviewSLAHours) * time.Hour
}

// RevisionSLA returns how long a rejected phase may wait for revision work
// to resume before it is overdue.
func (c *Config) RevisionSLA() time.Duration {
	return time.Duration(c.Review.RevisionSLAHours) * time.Hour
}

// ReviewCheckInterval returns the overdue monitor polling interval.
func (c *Config) ReviewCheckInterval() time.Duration {
	return time.Duration(c.Review.CheckIntervalSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
