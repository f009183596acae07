package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dj-oyu/video-analytics/internal/api"
	"github.com/dj-oyu/video-analytics/internal/config"
	"github.com/dj-oyu/video-analytics/internal/logger"
	"github.com/dj-oyu/video-analytics/internal/queue"
	"github.com/dj-oyu/video-analytics/internal/store"
)

var (
	// Command-line flags
	addr     = flag.String("addr", "", "Listen address (overrides API_ADDR)")
	logLevel = flag.String("log-level", "", "Log level (debug, info, warn, error, silent)")
	logColor = flag.Bool("log-color", true, "Enable colored log output")
)

func main() {
	flag.Parse()

	cfg := config.Load()
	if *addr != "" {
		cfg.APIAddr = *addr
	}
	if *logLevel == "" {
		*logLevel = cfg.LogLevel
	}
	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, *logColor)

	logger.Info("API", "Reporting server starting...")
	logger.Info("API", "Database: %s", cfg.DatabasePath)

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

	srv := api.NewServer(st, q, cfg)

	go func() {
		logger.Info("API", "Listening on %s", cfg.APIAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("API server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("API", "Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("API", "Shutdown error: %v", err)
	}

	logger.Info("API", "Stopped")
}
