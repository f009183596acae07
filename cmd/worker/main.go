package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dj-oyu/video-analytics/internal/config"
	"github.com/dj-oyu/video-analytics/internal/detect"
	"github.com/dj-oyu/video-analytics/internal/logger"
	"github.com/dj-oyu/video-analytics/internal/metrics"
	"github.com/dj-oyu/video-analytics/internal/queue"
	"github.com/dj-oyu/video-analytics/internal/worker"
)

var (
	// Command-line flags
	workerID = flag.String("id", "", "Worker identity (empty = generated)")
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

	logger.Info("Worker", "Detection worker starting...")
	logger.Info("Worker", "Model: %s (threshold %.2f)", cfg.ModelPath, cfg.ConfidenceThreshold)

	q, err := queue.NewRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to queue broker: %v", err)
	}
	defer q.Close()

	detector, err := detect.NewDNN(cfg.ModelPath, cfg.ModelConfigPath, cfg.ConfidenceThreshold)
	if err != nil {
		log.Fatalf("Failed to load detection model: %v", err)
	}
	defer detector.Close()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		m.RegisterQueueDepth(cfg.FrameQueue, queue.DepthFunc(q, cfg.FrameQueue))
		m.RegisterQueueDepth(cfg.ResultsQueue, queue.DepthFunc(q, cfg.ResultsQueue))
		go func() {
			logger.Info("Worker", "Metrics server on %s", cfg.MetricsAddr)
			if err := m.StartServer(cfg.MetricsAddr); err != nil {
				logger.Error("Worker", "Metrics server error: %v", err)
			}
		}()
	}

	w := worker.NewWorker(*workerID, q, detector, m, cfg)
	logger.Info("Worker", "Identity: %s", w.ID())

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
		logger.Info("Worker", "Shutting down...")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			log.Fatalf("Worker stopped: %v", err)
		}
	}

	logger.Info("Worker", "Stopped")
}
