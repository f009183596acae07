package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dj-oyu/video-analytics/internal/config"
	"github.com/dj-oyu/video-analytics/internal/ingest"
	"github.com/dj-oyu/video-analytics/internal/logger"
	"github.com/dj-oyu/video-analytics/internal/metrics"
	"github.com/dj-oyu/video-analytics/internal/queue"
	"github.com/dj-oyu/video-analytics/internal/source"
	"github.com/dj-oyu/video-analytics/internal/store"
)

var (
	// Command-line flags
	videoSource = flag.String("source", "0", "Video source (device index, file path, or URL)")
	streamID    = flag.String("stream-id", "", "Stream identity (empty = generated)")
	logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error, silent)")
	logColor    = flag.Bool("log-color", true, "Enable colored log output")
)

func main() {
	flag.Parse()

	cfg := config.Load()
	if *logLevel == "" {
		*logLevel = cfg.LogLevel
	}
	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, *logColor)

	logger.Info("Ingest", "Frame producer starting...")
	logger.Info("Ingest", "Source: %s, target FPS: %.1f", *videoSource, cfg.ProcessingFPS)

	q, err := queue.NewRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to queue broker: %v", err)
	}
	defer q.Close()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	src, err := source.OpenVideo(*videoSource)
	if err != nil {
		log.Fatalf("Failed to open video source: %v", err)
	}
	defer src.Close()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		m.RegisterQueueDepth(cfg.FrameQueue, queue.DepthFunc(q, cfg.FrameQueue))
		go func() {
			logger.Info("Ingest", "Metrics server on %s", cfg.MetricsAddr)
			if err := m.StartServer(cfg.MetricsAddr); err != nil {
				logger.Error("Ingest", "Metrics server error: %v", err)
			}
		}()
	}

	producer := ingest.NewProducer(*streamID, src.Descriptor(), src, q, st, m, cfg)
	logger.Info("Ingest", "Stream: %s", producer.StreamID())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- producer.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Ingest", "Shutting down...")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			log.Fatalf("Producer stopped: %v", err)
		}
	}

	logger.Info("Ingest", "Stopped after %d published frames", producer.Kept())
}
