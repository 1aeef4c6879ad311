// Command procrag answers questions about institutional processes with
// intent gating, role-filtered process context and hybrid retrieval.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/procrag/internal/adapters/driven/ai"
	rediscache "github.com/custodia-labs/procrag/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/procrag/internal/adapters/driven/config/file"
	promrec "github.com/custodia-labs/procrag/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/procrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/procrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/procrag/internal/core/services"
	"github.com/custodia-labs/procrag/internal/logger"
	"github.com/custodia-labs/procrag/internal/postprocessors"
)

// version is set at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	logger.Setup(logger.Config{Level: "warn", Pretty: true})

	cleanup, err := wire(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	cli.SetVersion(version)
	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

// wire builds the adapters and services and hands them to the CLI.
func wire(ctx context.Context) (func(), error) {
	dir, err := file.DefaultDir()
	if err != nil {
		return nil, err
	}

	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	dataDir := settings.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(dir, "data")
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	closers := []func(){func() { _ = store.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	aiServices := ai.Init(ctx, settings)
	closers = append(closers, aiServices.Close)
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}

	metrics := promrec.NewRecorder()

	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("prompt store: %w", err)
	}
	if err := prompts.Watch(ctx); err != nil {
		logger.Warn("Prompt changes will not be picked up: %v", err)
	}

	intent := services.NewIntentService(aiServices.LLM, settings.Intent)
	intent.SetPromptStore(prompts)
	intent.SetMetrics(metrics)
	if settings.Cache.RedisURL != "" {
		cache, err := rediscache.New(ctx, settings.Cache.RedisURL)
		if err != nil {
			logger.Warn("Classification cache disabled: %v", err)
		} else {
			closers = append(closers, func() { _ = cache.Close() })
			intent.SetCache(cache, settings.Cache.TTL)
		}
	}

	whitelists := services.NewWhitelistService(store.WhitelistStore(), store.GraphStore())

	gating := services.NewGatingService(store.GraphStore(), whitelists, settings.Gating)
	gating.SetMetrics(metrics)

	retrieval := services.NewRetrievalService(
		store.LexicalSearch(), store.VectorSearch(), aiServices.Embedding, store.ChunkStore(), settings.Retrieval)
	retrieval.SetMetrics(metrics)
	if aiServices.Reranker != nil {
		retrieval.SetReranker(aiServices.Reranker)
	}

	var reformulator *services.Reformulator
	if aiServices.LLM != nil {
		reformulator = services.NewReformulator(aiServices.LLM, settings.Intent.Timeout)
		reformulator.SetPromptStore(prompts)
	}

	ask := services.NewAskService(intent, reformulator, gating, retrieval, settings.Retrieval)

	batch := services.NewBatchService(ask, settings.Batch)
	batch.SetMetrics(metrics)

	process := services.NewProcessService(
		store.GraphStore(), store.GraphWriter(), store.ChunkWriter(), aiServices.Embedding, whitelists)
	process.SetPipeline(postprocessors.NewDefaultPipeline())

	cli.SetServices(cli.Services{
		Ask:       ask,
		Batch:     batch,
		Retrieval: retrieval,
		Intent:    intent,
		Gating:    gating,
		Whitelist: whitelists,
		Process:   process,
		Settings:  settingsService,
		Config:    configStore,
		Metrics:   metrics,
	})
	return cleanup, nil
}
