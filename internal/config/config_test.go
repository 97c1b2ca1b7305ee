package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statusgen/statusgen/internal/config"
)

var allKeys = []string{
	"UPTIME_KUMA_URL", "UPTIME_KUMA_API_KEY", "MONITOR_IDS",
	"SPACES_ENDPOINT", "SPACES_ACCESS_KEY", "SPACES_SECRET_KEY", "BACKUP_BUCKET",
	"SPACES_REGION", "SPACES_INSECURE", "BACKUP_PREFIX", "BACKUP_MAX_AGE_HOURS",
	"BACKUP_VERIFY_LATEST", "OUTPUT_FILE", "HTTP_TIMEOUT", "HTTP_MAX_RETRIES",
	"RUN_TIMEOUT", "STATUS_PUBSUB_PROJECT", "STATUS_PUBSUB_TOPIC",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "APP_ENV", "LOG_LEVEL",
}

// clearEnv unsets every setting for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func noEnvFile(t *testing.T) config.LoadOptions {
	return config.LoadOptions{EnvFile: filepath.Join(t.TempDir(), "missing.env")}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "backups/", cfg.Backup.Prefix)
	assert.Equal(t, 25.0, cfg.Backup.MaxAgeHours)
	assert.Equal(t, "us-east-1", cfg.Backup.Region)
	assert.Equal(t, filepath.Join(os.TempDir(), "status.json"), cfg.Output.File)
	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, uint64(0), cfg.HTTP.MaxRetries)
	assert.Equal(t, 2*time.Minute, cfg.RunTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Empty(t, cfg.Uptime.MonitorIDs)
	assert.False(t, cfg.PublishEnabled())
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPTIME_KUMA_URL", "https://uptime.example.com")
	t.Setenv("UPTIME_KUMA_API_KEY", "key")
	t.Setenv("MONITOR_IDS", "1, 2,,3")
	t.Setenv("BACKUP_MAX_AGE_HOURS", "48")
	t.Setenv("BACKUP_VERIFY_LATEST", "true")
	t.Setenv("HTTP_TIMEOUT", "5")
	t.Setenv("RUN_TIMEOUT", "90s")
	t.Setenv("OUTPUT_FILE", "/srv/www/status.json")

	cfg, err := config.Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "https://uptime.example.com", cfg.Uptime.URL)
	assert.Equal(t, []int{1, 2, 3}, cfg.Uptime.MonitorIDs)
	assert.Equal(t, 48.0, cfg.Backup.MaxAgeHours)
	assert.True(t, cfg.Backup.VerifyLatest)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 90*time.Second, cfg.RunTimeout)
	assert.Equal(t, "/srv/www/status.json", cfg.Output.File)
	assert.NoError(t, cfg.ValidateUptime())
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKUP_MAX_AGE_HOURS", "a day")
	t.Setenv("HTTP_MAX_RETRIES", "-1")

	_, err := config.Load(noEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKUP_MAX_AGE_HOURS")
	assert.Contains(t, err.Error(), "HTTP_MAX_RETRIES")
}

func TestLoad_NonPositiveMaxAge(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKUP_MAX_AGE_HOURS", "0")

	_, err := config.Load(noEnvFile(t))
	assert.Error(t, err)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	yamlFile := filepath.Join(dir, "statusgen.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte(`
uptime:
  url: https://from-yaml.example.com
  api_key: yaml-key
  monitor_ids: [4, 5]
backup:
  bucket: yaml-bucket
  prefix: nightly/
http:
  timeout: 3s
`), 0o600))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"UPTIME_KUMA_API_KEY=dotenv-key\nBACKUP_BUCKET=dotenv-bucket\n",
	), 0o600))

	t.Setenv("BACKUP_BUCKET", "env-bucket")

	cfg, err := config.Load(config.LoadOptions{File: yamlFile, EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, "https://from-yaml.example.com", cfg.Uptime.URL, "yaml over defaults")
	assert.Equal(t, []int{4, 5}, cfg.Uptime.MonitorIDs)
	assert.Equal(t, "dotenv-key", cfg.Uptime.APIKey, "dotenv over yaml")
	assert.Equal(t, "env-bucket", cfg.Backup.Bucket, "process env over dotenv")
	assert.Equal(t, "nightly/", cfg.Backup.Prefix)
	assert.Equal(t, 3*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 25.0, cfg.Backup.MaxAgeHours, "defaults kept when absent from yaml")
}

func TestLoad_MissingYAMLFile(t *testing.T) {
	clearEnv(t)

	opts := noEnvFile(t)
	opts.File = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := config.Load(opts)
	assert.Error(t, err)
}

func TestParseMonitorIDs(t *testing.T) {
	assert.Nil(t, config.ParseMonitorIDs(""))
	assert.Equal(t, []int{1, 2, 3}, config.ParseMonitorIDs("1,2,3"))
	assert.Equal(t, []int{7}, config.ParseMonitorIDs(" 7 , "))
	assert.Nil(t, config.ParseMonitorIDs("1,two,3"), "bad entry selects all monitors")
}

func TestSetMonitorIDs_Warnings(t *testing.T) {
	cfg := config.Default()

	cfg.SetMonitorIDs("1,2")
	assert.Equal(t, []int{1, 2}, cfg.Uptime.MonitorIDs)
	assert.Empty(t, cfg.Warnings)

	cfg.SetMonitorIDs(" , ")
	assert.Nil(t, cfg.Uptime.MonitorIDs)
	assert.Empty(t, cfg.Warnings, "blank list is not a mistake")

	cfg.SetMonitorIDs("web,api")
	assert.Nil(t, cfg.Uptime.MonitorIDs)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "web,api")
}

func TestValidate_ConfigError(t *testing.T) {
	cfg := config.Default()
	cfg.Backup.Endpoint = "nyc3.digitaloceanspaces.com"
	cfg.Backup.Bucket = "backups"

	err := cfg.ValidateBackup()
	require.Error(t, err)

	var ce *config.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "backup", ce.Branch)
	assert.Equal(t, []string{"SPACES_ACCESS_KEY", "SPACES_SECRET_KEY"}, ce.Missing)
	assert.Equal(t, "backup credentials not configured: missing SPACES_ACCESS_KEY, SPACES_SECRET_KEY", err.Error())

	err = cfg.ValidateUptime()
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"UPTIME_KUMA_API_KEY", "UPTIME_KUMA_URL"}, ce.Missing)
}

func TestPublishEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.Output.PubSubTopic = "status"
	assert.False(t, cfg.PublishEnabled())

	cfg.Output.PubSubProject = "my-project"
	assert.True(t, cfg.PublishEnabled())
}

func TestLoad_EmptyMonitorIDsKeepsYAMLList(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	yamlFile := filepath.Join(dir, "statusgen.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("uptime:\n  monitor_ids: [4, 5]\n"), 0o600))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MONITOR_IDS=\nUPTIME_KUMA_URL=\n"), 0o600))

	cfg, err := config.Load(config.LoadOptions{File: yamlFile, EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, []int{4, 5}, cfg.Uptime.MonitorIDs)
	assert.Empty(t, cfg.Warnings)
}
