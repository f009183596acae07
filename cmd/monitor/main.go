// Command monitor tails the results queue and prints detections to the
// console. It consumes messages like any other popper, so running it next
// to the persistence writer splits the stream between them; it is a
// debugging tool, not part of the pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dj-oyu/video-analytics/internal/config"
	"github.com/dj-oyu/video-analytics/internal/logger"
	"github.com/dj-oyu/video-analytics/internal/protocol"
	"github.com/dj-oyu/video-analytics/internal/queue"
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

	logger.Info("Monitor", "Results monitor starting (channel %s)", cfg.ResultsQueue)

	q, err := queue.NewRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to queue broker: %v", err)
	}
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Monitor", "Shutting down...")
		cancel()
	}()

	var seen, withDetections int64
	start := time.Now()

	for {
		if ctx.Err() != nil {
			break
		}

		payload, err := q.Pop(ctx, cfg.ResultsQueue, cfg.PopTimeout)
		if err == queue.ErrEmpty {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("Monitor", "Pop error: %v", err)
			continue
		}

		env, err := protocol.DecodeResultEnvelope(payload)
		if err != nil {
			logger.Warn("Monitor", "Dropping malformed result: %v", err)
			continue
		}

		seen++
		if env.NumDetections > 0 {
			withDetections++
			printResult(env)
		}

		if cfg.StatsInterval > 0 && seen%int64(cfg.StatsInterval) == 0 {
			elapsed := time.Since(start).Seconds()
			logger.Info("Monitor", "Seen %d results (%d with detections, %.1f/sec)",
				seen, withDetections, float64(seen)/elapsed)
		}
	}

	logger.Info("Monitor", "Stopped after %d results", seen)
}

func printResult(env protocol.ResultEnvelope) {
	ts := time.Unix(0, int64(env.Timestamp*1e9)).Format("15:04:05.000")
	fmt.Printf("[%s] %s frame %d: %d detection(s)\n",
		ts, env.StreamID, env.FrameNumber, env.NumDetections)
	for _, d := range env.Detections {
		fmt.Printf("    %-12s %.2f  bbox=[%.1f %.1f %.1f %.1f]\n",
			d.ClassName, d.Confidence, d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3])
	}
}
