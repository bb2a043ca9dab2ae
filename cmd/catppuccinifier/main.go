package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	imagehandler "github.com/aliskhannn/catppuccinifier/internal/api/handlers/image"
	"github.com/aliskhannn/catppuccinifier/internal/api/router"
	"github.com/aliskhannn/catppuccinifier/internal/api/server"
	"github.com/aliskhannn/catppuccinifier/internal/config"
	"github.com/aliskhannn/catppuccinifier/internal/infra/kafka/consumer"
	"github.com/aliskhannn/catppuccinifier/internal/infra/kafka/producer"
	imagemsg "github.com/aliskhannn/catppuccinifier/internal/kafka/handlers/image"
	"github.com/aliskhannn/catppuccinifier/internal/metrics"
	"github.com/aliskhannn/catppuccinifier/internal/model"
	"github.com/aliskhannn/catppuccinifier/internal/notifier"
	"github.com/aliskhannn/catppuccinifier/internal/processor"
	"github.com/aliskhannn/catppuccinifier/internal/remap"
	"github.com/aliskhannn/catppuccinifier/internal/repository/result"
	"github.com/aliskhannn/catppuccinifier/internal/scheduler"
	imagesvc "github.com/aliskhannn/catppuccinifier/internal/service/image"
	"github.com/aliskhannn/catppuccinifier/internal/storage/file"
)

func main() {
	configPath := flag.String("config", "./config/config.yml", "path to the config file")
	flag.Parse()

	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad(*configPath)

	// Retry strategy for Kafka calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Object storage is optional; without it uploads and outputs stay in memory.
	var storage *file.Storage
	if cfg.Storage.Enabled {
		var err error
		storage, err = file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
		}
	}

	engine, err := remap.New(cfg.Processing.LUTCacheSize, cfg.Processing.FrameWorkers)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to create remap engine")
	}

	limits := processor.Limits{
		MaxBytes:     cfg.Processing.MaxImageBytes,
		MaxDimension: cfg.Processing.MaxImageDimension,
		MaxFrames:    cfg.Processing.MaxFrames,
		MaxPixels:    cfg.Processing.MaxDecodedPixels,
	}

	results := result.NewRepository(cfg.Results.TTL, cfg.Results.CleanupInterval)

	// Optional dependencies are passed as interfaces that stay nil when the
	// backend is disabled.
	var (
		p         *producer.Producer
		publisher interface {
			Produce(ctx context.Context, ev model.Event) error
		}
		objects interface {
			Save(ctx context.Context, subdir, filename string, src io.Reader, contentType string) (string, error)
			Load(ctx context.Context, key string) (io.ReadCloser, error)
			Delete(ctx context.Context, key string) error
		}
	)
	if storage != nil {
		objects = storage
	}
	if cfg.Kafka.Enabled {
		p = producer.New(&cfg.Kafka, strategy)
		publisher = p
	}

	pipeline := processor.New(engine, objects, limits)
	service := imagesvc.NewService(pipeline, objects)

	// Finished jobs go to the result store and Kafka; their objects are
	// removed from storage once unreachable.
	jobNotify := notifier.New(results, publisher, objects, cfg.Kafka.PublishTimeout)
	results.OnExpired(jobNotify.ResultExpired)

	sched := scheduler.New(scheduler.Config{
		MaxConcurrent: cfg.Processing.MaxConcurrentJobs,
		MaxQueue:      cfg.Processing.MaxQueueLength,
		JobTimeout:    cfg.Processing.JobTimeout,
	}, service, jobNotify)

	// HTTP handler for job routes.
	jobHandler := imagehandler.NewHandler(sched, results, objects, cfg.Processing.MaxImageBytes)

	var wg sync.WaitGroup

	// Kafka consumer for processing requests.
	var c *consumer.Consumer
	if cfg.Kafka.Enabled {
		c = consumer.New(&cfg.Kafka, strategy, imagemsg.NewRequestHandler(sched))
		wg.Add(1)
		go c.Consume(ctx, &wg)
	}

	// Start HTTP server in a separate goroutine.
	s := server.New(cfg.Server.HTTPPort, router.Setup(jobHandler))
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	var ms *http.Server
	if cfg.Metrics.Enabled {
		ms = metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zlog.Logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	zlog.Logger.Info().
		Str("addr", cfg.Server.HTTPPort).
		Int("max_concurrent_jobs", cfg.Processing.MaxConcurrentJobs).
		Bool("storage", storage != nil).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("catppuccinifier started")

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for Kafka consumer goroutine to finish.
	wg.Wait()

	// Graceful shutdown with timeout for HTTP server and running jobs.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if ms != nil {
		if err := ms.Shutdown(shutdownCtx); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to shutdown metrics server")
		}
	}

	if err := sched.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to stop running jobs")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close Kafka producer and consumer clients.
	if p != nil {
		if err := p.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
		}
	}
	if c != nil {
		if err := c.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
		}
	}
}
