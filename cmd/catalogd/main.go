// Package main wires together the catalog service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/api"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/cache"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/clock/system"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/config"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/harvest"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/id/uuid"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/logging"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/metrics"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/plan"
	pubsubpublisher "github.com/Moufidzakaria/jumia-api-scraping/internal/publisher/pubsub"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/quota"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/storage/gcs"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/storage/local"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/storage/memory"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	runHarvest := flag.Bool("harvest", false, "Run one ingestion pass and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.New()

	store, err := newRecordStore(ctx, cfg, idGen, clock)
	if err != nil {
		logger.Fatal("record store init failed", zap.Error(err))
	}

	if *runHarvest {
		if err := harvestOnce(ctx, cfg, store, clock, logger); err != nil {
			logger.Fatal("harvest run failed", zap.Error(err))
		}
		return
	}

	cacheProvider, counterStore := newRedisBackends(ctx, cfg, clock, logger)
	layer := cache.NewLayer(cacheProvider, logger.Named("cache"))
	resolver := plan.NewResolver(cfg.Auth.Credentials)
	gate := quota.NewGate(resolver, counterStore, cfg.QuotaWindow(), logger.Named("quota"))

	apiServer := api.NewServer(store, layer, gate, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newRecordStore(
	ctx context.Context,
	cfg config.Config,
	idGen catalog.IDGenerator,
	clock catalog.Clock,
) (catalog.RecordStore, error) {
	if cfg.DB.DSN == "" {
		zap.L().Info("no database configured, using in-memory record store")
		return memory.NewRecordStore(idGen, clock), nil
	}
	st, err := postgres.NewRecordStore(ctx, postgres.RecordStoreConfig{DSN: cfg.DB.DSN}, idGen, clock)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// newRedisBackends dials Redis for the cache and quota counters. A missing
// or unreachable Redis degrades to in-process backends rather than blocking
// startup.
func newRedisBackends(
	ctx context.Context,
	cfg config.Config,
	clock catalog.Clock,
	logger *zap.Logger,
) (cache.Provider, quota.CounterStore) {
	if cfg.Redis.Addr == "" {
		return cache.NewMemoryProvider(clock), quota.NewMemoryCounterStore(clock)
	}
	client, err := cache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("redis unavailable, falling back to in-memory backends", zap.Error(err))
		return cache.NewMemoryProvider(clock), quota.NewMemoryCounterStore(clock)
	}
	return cache.NewRedisProvider(client), quota.NewRedisCounterStore(client)
}

func harvestOnce(
	ctx context.Context,
	cfg config.Config,
	store catalog.RecordStore,
	clock catalog.Clock,
	logger *zap.Logger,
) error {
	if len(cfg.Harvest.Targets) == 0 {
		return errors.New("no harvest targets configured")
	}

	fetcher := harvest.NewCollyFetcher(harvest.CollyConfig{
		UserAgent: cfg.Harvest.UserAgent,
		Timeout:   cfg.TargetTimeout(),
	})

	var renderer harvest.Fetcher
	if cfg.Harvest.Render.Enabled {
		chromedpRenderer, err := harvest.NewChromedpRenderer(harvest.RendererConfig{
			MaxParallel:  cfg.Harvest.Render.MaxParallel,
			UserAgent:    cfg.Harvest.UserAgent,
			NavTimeout:   time.Duration(cfg.Harvest.Render.NavTimeoutSec) * time.Second,
			WaitSelector: cfg.Harvest.Render.WaitSelector,
		}, logger.Named("renderer"))
		if err != nil {
			logger.Warn("renderer init failed, rendered targets use the static fetcher", zap.Error(err))
		} else {
			renderer = chromedpRenderer
			defer chromedpRenderer.Close()
		}
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("blob store init: %w", err)
	}

	var publisher catalog.Publisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		pub, err := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("pubsub init: %w", err)
		}
		defer func() {
			if cerr := pub.Close(); cerr != nil {
				logger.Warn("pubsub close failed", zap.Error(cerr))
			}
		}()
		publisher = pub
	}

	pipeline := harvest.NewPipeline(
		store,
		fetcher,
		renderer,
		harvest.NewExtractor(cfg.Harvest.Selectors),
		harvest.NewRetryPolicy(cfg.Harvest.MaxRetries),
		clock,
		blobs,
		publisher,
		harvest.PipelineConfig{
			Parallelism:    cfg.Harvest.Parallelism,
			TargetTimeout:  cfg.TargetTimeout(),
			RunBudget:      cfg.RunBudget(),
			SnapshotPrefix: cfg.Storage.Prefix,
			Topic:          cfg.PubSub.TopicName,
		},
		logger.Named("harvest"),
	)

	summary, err := pipeline.Run(ctx, cfg.Harvest.Targets)
	if err != nil {
		return err
	}
	logger.Info("harvest run complete",
		zap.Int("targets_visited", summary.TargetsVisited),
		zap.Int("targets_failed", summary.TargetsFailed),
		zap.Int("drafts_extracted", summary.DraftsExtracted),
		zap.Int("drafts_discarded", summary.DraftsDiscarded),
		zap.Int("upsert_failures", summary.UpsertFailures),
		zap.Int("records_written", len(summary.Records)),
	)
	return nil
}

func newBlobStore(ctx context.Context, cfg config.Config) (catalog.BlobStore, error) {
	switch {
	case cfg.Storage.GCSBucket != "":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		bs, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, err
		}
		return bs, nil
	case cfg.Storage.LocalDir != "":
		bs, err := local.New(local.Config{BaseDir: cfg.Storage.LocalDir})
		if err != nil {
			return nil, err
		}
		return bs, nil
	default:
		return nil, nil
	}
}
