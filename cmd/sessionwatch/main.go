package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohamedkhairy/session-intel/internal/advisory"
	"github.com/mohamedkhairy/session-intel/internal/config"
	"github.com/mohamedkhairy/session-intel/internal/models"
	"github.com/mohamedkhairy/session-intel/internal/pubsub"
	"github.com/mohamedkhairy/session-intel/pkg/logger"
)

// sessionwatch follows the snapshots a running sessiond publishes to Redis and
// logs every verdict change
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	redisClient, err := pubsub.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize Redis client",
			logger.ErrorField(err),
		)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := pubsub.NewSnapshotWatcher(redisClient, pubsub.SnapshotPublisherConfigFrom(cfg.Redis))

	var lastVerdict models.Verdict
	report := func(snapshot *models.GlobalSnapshot) {
		if snapshot.Intelligence.Verdict == lastVerdict {
			return
		}
		lastVerdict = snapshot.Intelligence.Verdict
		logger.Info("Session verdict",
			logger.String("utc_time", snapshot.UTCTime),
			logger.String("verdict", string(snapshot.Intelligence.Verdict)),
			logger.String("message", snapshot.Intelligence.SessionMessage),
			logger.Strings("active_sessions", snapshot.Intelligence.ActiveSessions),
			logger.String("journal_tag", advisory.JournalTag(snapshot.Intelligence)),
		)
	}

	latest, err := watcher.Latest(ctx)
	if err != nil {
		logger.Warn("Failed to read latest snapshot",
			logger.ErrorField(err),
		)
	} else if latest != nil {
		report(latest)
	} else {
		logger.Info("No snapshot stored yet, waiting for publisher",
			logger.String("key", cfg.Redis.SnapshotKey),
		)
	}

	if err := watcher.Watch(ctx, report); err != nil && ctx.Err() == nil {
		logger.Fatal("Snapshot subscription failed",
			logger.ErrorField(err),
		)
	}

	logger.Info("sessionwatch stopped")
}
