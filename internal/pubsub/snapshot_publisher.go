package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/session-intel/internal/config"
	"github.com/mohamedkhairy/session-intel/internal/models"
	"github.com/mohamedkhairy/session-intel/internal/storage"
	"github.com/mohamedkhairy/session-intel/pkg/logger"
)

// SnapshotPublisherConfig holds configuration for the snapshot publisher
type SnapshotPublisherConfig struct {
	SnapshotKey     string        // Key holding the latest snapshot (default: "sessions:latest")
	SnapshotTTL     time.Duration // TTL so a dead publisher's value expires (default: 10 seconds)
	SnapshotChannel string        // Pub/sub channel notified on every tick (default: "sessions.snapshots")
	VerdictStream   string        // Stream of verdict changes (default: "sessions.verdicts")
}

// DefaultSnapshotPublisherConfig returns default configuration
func DefaultSnapshotPublisherConfig() SnapshotPublisherConfig {
	return SnapshotPublisherConfig{
		SnapshotKey:     "sessions:latest",
		SnapshotTTL:     10 * time.Second,
		SnapshotChannel: "sessions.snapshots",
		VerdictStream:   "sessions.verdicts",
	}
}

// SnapshotPublisherConfigFrom maps the service configuration onto the publisher
func SnapshotPublisherConfigFrom(cfg config.RedisConfig) SnapshotPublisherConfig {
	return SnapshotPublisherConfig{
		SnapshotKey:     cfg.SnapshotKey,
		SnapshotTTL:     cfg.SnapshotTTL,
		SnapshotChannel: cfg.SnapshotChannel,
		VerdictStream:   cfg.VerdictStream,
	}
}

// SnapshotPublisher writes every snapshot to Redis as latest-value plus notification,
// and appends to the verdict stream whenever the verdict changes
type SnapshotPublisher struct {
	config      SnapshotPublisherConfig
	redis       storage.RedisClient
	mu          sync.Mutex
	lastVerdict models.Verdict
}

// NewSnapshotPublisher creates a new snapshot publisher
func NewSnapshotPublisher(redis storage.RedisClient, config SnapshotPublisherConfig) *SnapshotPublisher {
	defaults := DefaultSnapshotPublisherConfig()
	if config.SnapshotKey == "" {
		config.SnapshotKey = defaults.SnapshotKey
	}
	if config.SnapshotTTL <= 0 {
		config.SnapshotTTL = defaults.SnapshotTTL
	}

	return &SnapshotPublisher{
		config: config,
		redis:  redis,
	}
}

// Name identifies the sink in logs and metrics
func (p *SnapshotPublisher) Name() string {
	return "redis"
}

// PublishSnapshot publishes one snapshot. The latest-value write is attempted first;
// the channel and stream are skipped if it fails.
func (p *SnapshotPublisher) PublishSnapshot(ctx context.Context, snapshot *models.GlobalSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	if err := p.redis.Set(ctx, p.config.SnapshotKey, snapshot, p.config.SnapshotTTL); err != nil {
		return fmt.Errorf("failed to set %s: %w", p.config.SnapshotKey, err)
	}

	if p.config.SnapshotChannel != "" {
		if err := p.redis.Publish(ctx, p.config.SnapshotChannel, snapshot); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", p.config.SnapshotChannel, err)
		}
	}

	if p.config.VerdictStream == "" {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastVerdict == snapshot.Intelligence.Verdict {
		return nil
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	err = p.redis.PublishToStream(ctx, p.config.VerdictStream, map[string]interface{}{
		"verdict":  string(snapshot.Intelligence.Verdict),
		"snapshot": string(payload),
	})
	if err != nil {
		// lastVerdict is left unchanged so the next tick retries the append
		return err
	}

	logger.Debug("Recorded verdict change",
		logger.String("stream", p.config.VerdictStream),
		logger.String("from", string(p.lastVerdict)),
		logger.String("to", string(snapshot.Intelligence.Verdict)),
	)
	p.lastVerdict = snapshot.Intelligence.Verdict

	return nil
}
