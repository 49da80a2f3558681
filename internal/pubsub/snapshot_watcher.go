package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mohamedkhairy/session-intel/internal/models"
	"github.com/mohamedkhairy/session-intel/internal/storage"
	"github.com/mohamedkhairy/session-intel/pkg/logger"
)

// SnapshotWatcher reads what a SnapshotPublisher writes, for processes that do not
// run an engine of their own
type SnapshotWatcher struct {
	config SnapshotPublisherConfig
	redis  storage.RedisClient
}

// NewSnapshotWatcher creates a new snapshot watcher
func NewSnapshotWatcher(redis storage.RedisClient, config SnapshotPublisherConfig) *SnapshotWatcher {
	if config.SnapshotKey == "" {
		config.SnapshotKey = DefaultSnapshotPublisherConfig().SnapshotKey
	}
	if config.SnapshotChannel == "" {
		config.SnapshotChannel = DefaultSnapshotPublisherConfig().SnapshotChannel
	}
	return &SnapshotWatcher{
		config: config,
		redis:  redis,
	}
}

// Latest returns the stored snapshot, or nil if none is stored or it has expired
func (w *SnapshotWatcher) Latest(ctx context.Context) (*models.GlobalSnapshot, error) {
	raw, err := w.redis.Get(ctx, w.config.SnapshotKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", w.config.SnapshotKey, err)
	}
	if raw == "" {
		return nil, nil
	}

	var snapshot models.GlobalSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", w.config.SnapshotKey, err)
	}
	return &snapshot, nil
}

// Watch calls handle for every snapshot published on the channel until ctx is done
// or the subscription ends. Undecodable messages are logged and skipped.
func (w *SnapshotWatcher) Watch(ctx context.Context, handle func(*models.GlobalSnapshot)) error {
	messages, err := w.redis.Subscribe(ctx, w.config.SnapshotChannel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			var snapshot models.GlobalSnapshot
			if err := json.Unmarshal([]byte(msg.Message), &snapshot); err != nil {
				logger.Warn("Skipping undecodable snapshot message",
					logger.ErrorField(err),
					logger.String("channel", msg.Channel),
				)
				continue
			}
			handle(&snapshot)
		}
	}
}
