// Package cli provides the procrag command line interface built on cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/procrag/internal/core/ports/driven"
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
	"github.com/custodia-labs/procrag/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Services injected by main before Execute.
var (
	askService       driving.AskService
	batchService     driving.BatchService
	retrievalService driving.RetrievalService
	intentService    driving.IntentClassifier
	gatingService    driving.GatingService
	whitelistService driving.WhitelistService
	processService   driving.ProcessService
	settingsService  driving.SettingsService
	configStore      driven.ConfigStore
	metricsHandler   MetricsHandler
)

var (
	verbose  bool
	logLevel string
)

// Services aggregates everything the commands need.
type Services struct {
	Ask       driving.AskService
	Batch     driving.BatchService
	Retrieval driving.RetrievalService
	Intent    driving.IntentClassifier
	Gating    driving.GatingService
	Whitelist driving.WhitelistService
	Process   driving.ProcessService
	Settings  driving.SettingsService
	Config    driven.ConfigStore

	// Metrics is optional; serve mounts /metrics when set.
	Metrics MetricsHandler
}

// SetServices wires the command set to its services.
func SetServices(s Services) {
	askService = s.Ask
	batchService = s.Batch
	retrievalService = s.Retrieval
	intentService = s.Intent
	gatingService = s.Gating
	whitelistService = s.Whitelist
	processService = s.Process
	settingsService = s.Settings
	configStore = s.Config
	metricsHandler = s.Metrics
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "procrag",
	Short: "Process-aware question routing and hybrid retrieval",
	Long: `procrag decides whether a question is about institutional processes,
works out where the user is in a process and which steps their roles permit,
and retrieves grounding passages with lexical and semantic search fused by
reciprocal rank fusion.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return configureLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func configureLogging() error {
	if logLevel == "" {
		logger.SetVerbose(verbose)
		return nil
	}
	switch strings.ToLower(logLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", logLevel)
	}
	logger.Setup(logger.Config{Level: strings.ToLower(logLevel), Pretty: true})
	if verbose {
		logger.SetVerbose(true)
	}
	return nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// errNotConfigured builds the error for a missing service.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}

// commandContext returns the command context, falling back to Background
// for commands executed without ExecuteContext (as in tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
