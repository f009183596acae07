package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dj-oyu/video-analytics/internal/config"
	"github.com/dj-oyu/video-analytics/internal/dbwriter"
	"github.com/dj-oyu/video-analytics/internal/logger"
	"github.com/dj-oyu/video-analytics/internal/metrics"
	"github.com/dj-oyu/video-analytics/internal/queue"
	"github.com/dj-oyu/video-analytics/internal/store"
)

var (
	// Command-line flags
	logLevel = flag.String("log-level", "", "Log level (debug, info, warn, error, silent)")
	logColor = flag.Bool("log-color", true, "Enable colored log output")
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

	logger.Info("DBWriter", "Persistence writer starting...")
	logger.Info("DBWriter", "Database: %s", cfg.DatabasePath)

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

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		m.RegisterQueueDepth(cfg.ResultsQueue, queue.DepthFunc(q, cfg.ResultsQueue))
		go func() {
			logger.Info("DBWriter", "Metrics server on %s", cfg.MetricsAddr)
			if err := m.StartServer(cfg.MetricsAddr); err != nil {
				logger.Error("DBWriter", "Metrics server error: %v", err)
			}
		}()
	}

	w := dbwriter.NewWriter(q, st, m, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("DBWriter", "Shutting down...")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			log.Fatalf("Writer stopped: %v", err)
		}
	}

	logger.Info("DBWriter", "Stopped")
}
