// Package config loads statusgen configuration from defaults, an optional
// YAML file, a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values applied when a setting is absent everywhere.
const (
	DefaultBackupPrefix      = "backups/"
	DefaultBackupMaxAgeHours = 25.0
	DefaultSpacesRegion      = "us-east-1"
	DefaultHTTPTimeout       = 10 * time.Second
	DefaultRunTimeout        = 2 * time.Minute
	DefaultOTLPEndpoint      = "localhost:4317"
	DefaultEnvironment       = "development"
	DefaultLogLevel          = "info"
	DefaultEnvFile           = ".env"
)

// Config is the complete configuration of one status run.
type Config struct {
	Uptime    UptimeConfig    `yaml:"uptime"`
	Backup    BackupConfig    `yaml:"backup"`
	Output    OutputConfig    `yaml:"output"`
	HTTP      HTTPConfig      `yaml:"http"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// RunTimeout bounds the whole run.
	RunTimeout time.Duration `yaml:"run_timeout"`

	// LogLevel is a zerolog level name.
	LogLevel string `yaml:"log_level"`

	// Warnings lists settings that were ignored while loading.
	Warnings []string `yaml:"-"`
}

// UptimeConfig configures the monitoring API branch.
type UptimeConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`

	// MonitorIDs restricts the run to these monitors; empty means all.
	MonitorIDs []int `yaml:"monitor_ids"`
}

// BackupConfig configures the object-storage branch.
type BackupConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Insecure  bool   `yaml:"insecure"`
	Prefix    string `yaml:"prefix"`

	MaxAgeHours  float64 `yaml:"max_age_hours"`
	VerifyLatest bool    `yaml:"verify_latest"`
}

// OutputConfig configures where the document goes.
type OutputConfig struct {
	File string `yaml:"file"`

	// PubSubProject and PubSubTopic enable publication when both are set.
	PubSubProject string `yaml:"pubsub_project"`
	PubSubTopic   string `yaml:"pubsub_topic"`
}

// HTTPConfig configures outbound calls.
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries uint64        `yaml:"max_retries"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Environment  string `yaml:"environment"`
}

// LoadOptions selects the files Load reads.
type LoadOptions struct {
	// File is an optional YAML config file. It must exist if set.
	File string

	// EnvFile is a dotenv file; a missing file is ignored.
	EnvFile string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backup: BackupConfig{
			Region:      DefaultSpacesRegion,
			Prefix:      DefaultBackupPrefix,
			MaxAgeHours: DefaultBackupMaxAgeHours,
		},
		Output: OutputConfig{
			File: filepath.Join(os.TempDir(), "status.json"),
		},
		HTTP: HTTPConfig{
			Timeout: DefaultHTTPTimeout,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: DefaultOTLPEndpoint,
			Environment:  DefaultEnvironment,
		},
		RunTimeout: DefaultRunTimeout,
		LogLevel:   DefaultLogLevel,
	}
}

// Load builds a Config from defaults, the YAML file, the dotenv file and
// the environment, in increasing order of precedence. Variables already
// set in the environment are not overwritten by the dotenv file.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := cfg.loadFile(opts.File); err != nil {
			return nil, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Uptime.URL, "UPTIME_KUMA_URL")
	setString(&c.Uptime.APIKey, "UPTIME_KUMA_API_KEY")
	if v, ok := lookup("MONITOR_IDS"); ok && v != "" {
		c.SetMonitorIDs(v)
	}

	setString(&c.Backup.Endpoint, "SPACES_ENDPOINT")
	setString(&c.Backup.AccessKey, "SPACES_ACCESS_KEY")
	setString(&c.Backup.SecretKey, "SPACES_SECRET_KEY")
	setString(&c.Backup.Bucket, "BACKUP_BUCKET")
	setString(&c.Backup.Region, "SPACES_REGION")
	setString(&c.Backup.Prefix, "BACKUP_PREFIX")
	setString(&c.Output.File, "OUTPUT_FILE")
	setString(&c.Output.PubSubProject, "STATUS_PUBSUB_PROJECT")
	setString(&c.Output.PubSubTopic, "STATUS_PUBSUB_TOPIC")
	setString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&c.Telemetry.Environment, "APP_ENV")
	setString(&c.LogLevel, "LOG_LEVEL")

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(setBool(&c.Backup.Insecure, "SPACES_INSECURE"))
	collect(setBool(&c.Backup.VerifyLatest, "BACKUP_VERIFY_LATEST"))
	collect(setBool(&c.Telemetry.Enabled, "OTEL_ENABLED"))
	collect(setFloat(&c.Backup.MaxAgeHours, "BACKUP_MAX_AGE_HOURS"))
	collect(setDuration(&c.HTTP.Timeout, "HTTP_TIMEOUT"))
	collect(setDuration(&c.RunTimeout, "RUN_TIMEOUT"))
	collect(setUint(&c.HTTP.MaxRetries, "HTTP_MAX_RETRIES"))

	if c.Backup.MaxAgeHours <= 0 {
		collect(fmt.Errorf("BACKUP_MAX_AGE_HOURS must be positive, got %v", c.Backup.MaxAgeHours))
	}

	return errors.Join(errs...)
}

// ParseMonitorIDs parses a comma-separated list of monitor IDs. Empty
// entries are skipped. If any entry is not an integer the whole list is
// discarded and every monitor is selected.
func ParseMonitorIDs(s string) []int {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil
		}
		ids = append(ids, id)
	}
	return ids
}

// SetMonitorIDs replaces the monitor selection with the parsed list. An
// unparseable list selects every monitor and records a warning.
func (c *Config) SetMonitorIDs(s string) {
	c.Uptime.MonitorIDs = ParseMonitorIDs(s)
	if c.Uptime.MonitorIDs == nil && strings.Trim(s, " ,") != "" {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid MONITOR_IDS %q, checking all monitors", s))
	}
}

// ValidateUptime reports a ConfigError if the uptime branch lacks credentials.
func (c *Config) ValidateUptime() error {
	return missing("uptime", map[string]string{
		"UPTIME_KUMA_URL":     c.Uptime.URL,
		"UPTIME_KUMA_API_KEY": c.Uptime.APIKey,
	})
}

// ValidateBackup reports a ConfigError if the backup branch lacks credentials.
func (c *Config) ValidateBackup() error {
	return missing("backup", map[string]string{
		"SPACES_ENDPOINT":   c.Backup.Endpoint,
		"SPACES_ACCESS_KEY": c.Backup.AccessKey,
		"SPACES_SECRET_KEY": c.Backup.SecretKey,
		"BACKUP_BUCKET":     c.Backup.Bucket,
	})
}

// PublishEnabled reports whether the document should be published.
func (c *Config) PublishEnabled() bool {
	return c.Output.PubSubProject != "" && c.Output.PubSubTopic != ""
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
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

func setFloat(dst *float64, key string) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setUint(dst *uint64, key string) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

// setDuration accepts Go durations ("30s") or a plain number of seconds.
func setDuration(dst *time.Duration, key string) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
