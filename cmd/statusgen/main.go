// Package main provides the entrypoint for the statusgen batch job.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/statusgen/statusgen/internal/backup"
	"github.com/statusgen/statusgen/internal/backup/spaces"
	"github.com/statusgen/statusgen/internal/config"
	"github.com/statusgen/statusgen/internal/provider/resilience"
	"github.com/statusgen/statusgen/internal/status"
	"github.com/statusgen/statusgen/internal/telemetry"
	"github.com/statusgen/statusgen/internal/uptime"
	"github.com/statusgen/statusgen/internal/uptime/kuma"
	"github.com/statusgen/statusgen/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "statusgen"

// Command is one invocation of statusgen.
type Command struct {
	OutStream io.Writer
	ErrStream io.Writer

	ConfigFile  string
	EnvFile     string
	OutputFile  string
	MonitorIDs  string
	Pretty      bool
	ShowVersion bool
	ShowHelp    bool

	monitorIDsSet bool
}

func main() {
	cmd := &Command{OutStream: os.Stdout, ErrStream: os.Stderr}

	if code := cmd.ParseArgs(os.Args); code >= 0 {
		os.Exit(code)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cmd.Run(ctx)
	stop()
	os.Exit(code)
}

// ParseArgs parses command line flags. It returns an exit code if the
// process should exit now, or -1 to continue with Run.
func (cmd *Command) ParseArgs(args []string) (exitCode int) {
	flags := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	flags.SetOutput(cmd.ErrStream)

	flags.StringVarP(&cmd.ConfigFile, "config", "c", "", "Path to a YAML config file")
	flags.StringVar(&cmd.EnvFile, "env-file", config.DefaultEnvFile, "Path to a dotenv file (ignored if missing)")
	flags.StringVarP(&cmd.OutputFile, "output", "o", "", "Path of the status document (overrides OUTPUT_FILE)")
	flags.StringVar(&cmd.MonitorIDs, "monitor-ids", "", "Comma separated monitor IDs (overrides MONITOR_IDS)")
	flags.BoolVar(&cmd.Pretty, "pretty", false, "Human readable log output (default when stdout is a terminal)")
	flags.BoolVarP(&cmd.ShowVersion, "version", "v", false, "Show version")
	flags.BoolVarP(&cmd.ShowHelp, "help", "h", false, "Show help message")

	if err := flags.Parse(args[1:]); err != nil {
		fmt.Fprintf(cmd.ErrStream, "\nPlease see `%s -h` for more information.\n", args[0])
		return 2
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(cmd.ErrStream, "unexpected arguments: %s\n", strings.Join(flags.Args(), " "))
		return 2
	}
	cmd.monitorIDsSet = flags.Changed("monitor-ids")

	switch {
	case cmd.ShowHelp:
		fmt.Fprintf(cmd.ErrStream, "Usage: %s [flags]\n\nGenerate the status page document.\n\n", args[0])
		flags.PrintDefaults()
		return 0
	case cmd.ShowVersion:
		fmt.Fprintf(cmd.OutStream, "%s %s (built %s)\n", serviceName, Version, BuildTime)
		return 0
	}

	return -1
}

func (cmd *Command) newLogger(runID string) zerolog.Logger {
	var out io.Writer = cmd.OutStream
	if cmd.Pretty || isTerminal(cmd.OutStream) {
		out = zerolog.ConsoleWriter{Out: cmd.OutStream, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Str("run_id", runID).
		Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Run executes one status generation and returns the process exit code.
func (cmd *Command) Run(ctx context.Context) int {
	runID := uuid.NewString()
	log := cmd.newLogger(runID)

	cfg, err := config.Load(config.LoadOptions{File: cmd.ConfigFile, EnvFile: cmd.EnvFile})
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return 1
	}
	if cmd.OutputFile != "" {
		cfg.Output.File = cmd.OutputFile
	}
	if cmd.monitorIDsSet {
		cfg.SetMonitorIDs(cmd.MonitorIDs)
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		log = log.Level(level)
	} else {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("invalid log level, using info")
		log = log.Level(zerolog.InfoLevel)
	}
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting status generation")

	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.FromConfig(cfg.Telemetry, Version, runID))
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize telemetry, continuing without it")
		tp = &telemetry.Provider{}
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := status.NewMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize metrics")
	}

	registry := resilience.NewRegistry()
	composerCfg := status.ComposerConfig{
		Metrics: metrics,
		Logger:  log,
	}
	composerCfg.Uptime, composerCfg.UptimeErr = buildUptime(cfg, registry, log)
	composerCfg.Backup, composerCfg.BackupErr = buildBackup(cfg, log)

	var publisher worker.Publisher
	if cfg.PublishEnabled() {
		pub, err := worker.NewPubSubPublisher(ctx, worker.PubSubConfig{
			ProjectID: cfg.Output.PubSubProject,
			Topic:     cfg.Output.PubSubTopic,
			Logger:    log,
		})
		if err != nil {
			log.Warn().Err(err).Msg("publishing disabled")
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	job := worker.NewStatusJob(worker.StatusJobConfig{
		Composer:   status.NewComposer(composerCfg),
		OutputFile: cfg.Output.File,
		Publisher:  publisher,
		Logger:     log,
	})

	result, err := job.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("status generation failed")
		return 1
	}

	logProviderHealth(log, registry)

	printSummary(cmd.OutStream, result)
	return 0
}

// logProviderHealth reports each outbound client's calls. An open circuit
// means the rest of the run skipped that service.
func logProviderHealth(log zerolog.Logger, registry *resilience.Registry) {
	for _, h := range registry.GetAllHealth() {
		var event *zerolog.Event
		switch {
		case h.IsUnhealthy():
			event = log.Error()
		case !h.IsHealthy() || h.Failures > 0:
			event = log.Warn()
		default:
			event = log.Info()
		}
		event.
			Str("provider", h.Name).
			Str("circuit_state", h.CircuitState.String()).
			Int("calls", h.Calls).
			Int("failures", h.Failures).
			Float64("failure_rate", h.FailureRate()).
			Str("last_error", h.LastError).
			Msg("provider health")
	}
}

func buildUptime(cfg *config.Config, registry *resilience.Registry, log zerolog.Logger) (status.UptimeChecker, error) {
	if err := cfg.ValidateUptime(); err != nil {
		return nil, err
	}

	httpClient := resilience.NewClient(resilience.ClientConfig{
		Name:       kuma.ProviderName,
		Timeout:    cfg.HTTP.Timeout,
		MaxRetries: cfg.HTTP.MaxRetries,
		Registry:   registry,
	})

	client := kuma.NewClient(kuma.ClientConfig{
		BaseURL:    cfg.Uptime.URL,
		APIKey:     cfg.Uptime.APIKey,
		HTTPClient: httpClient,
		Logger:     log,
	})

	return uptime.NewService(uptime.ServiceConfig{
		Source:     client,
		MonitorIDs: cfg.Uptime.MonitorIDs,
		Logger:     log,
	}), nil
}

func buildBackup(cfg *config.Config, log zerolog.Logger) (status.BackupChecker, error) {
	if err := cfg.ValidateBackup(); err != nil {
		return nil, err
	}

	client, err := spaces.NewClient(spaces.ClientConfig{
		Endpoint:  cfg.Backup.Endpoint,
		AccessKey: cfg.Backup.AccessKey,
		SecretKey: cfg.Backup.SecretKey,
		Bucket:    cfg.Backup.Bucket,
		Region:    cfg.Backup.Region,
		Insecure:  cfg.Backup.Insecure,
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return backup.NewService(backup.ServiceConfig{
		Source:       client,
		Prefix:       cfg.Backup.Prefix,
		MaxAgeHours:  cfg.Backup.MaxAgeHours,
		VerifyLatest: cfg.Backup.VerifyLatest,
		Logger:       log,
	}), nil
}

func printSummary(w io.Writer, result *worker.RunResult) {
	doc := result.Document
	fmt.Fprintf(w, "Status written to %s\n", result.OutputFile)
	fmt.Fprintf(w, "  platform: %s\n", doc.PlatformStatus)
	fmt.Fprintf(w, "  uptime:   %.2f%% (24h)  %.2f%% (7d)  %.2f%% (30d)\n",
		doc.Uptime.Last24h, doc.Uptime.Last7d, doc.Uptime.Last30d)
	fmt.Fprintf(w, "  backups:  %s", doc.Backups.LastBackupStatus)
	if doc.Backups.Message != "" {
		fmt.Fprintf(w, " (%s)", doc.Backups.Message)
	}
	fmt.Fprintln(w)
}
