package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mohamedkhairy/session-intel/internal/models"
	"github.com/mohamedkhairy/session-intel/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotWatcher_Latest(t *testing.T) {
	redis := storage.NewMockRedisClient()
	watcher := NewSnapshotWatcher(redis, DefaultSnapshotPublisherConfig())
	ctx := context.Background()

	snap, err := watcher.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	pub := NewSnapshotPublisher(redis, DefaultSnapshotPublisherConfig())
	require.NoError(t, pub.PublishSnapshot(ctx, snapshotWith(models.VerdictTradeSmall, "02:00:00 UTC")))

	snap, err = watcher.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, models.VerdictTradeSmall, snap.Intelligence.Verdict)

	redis.Data["sessions:latest"] = "{broken"
	_, err = watcher.Latest(ctx)
	assert.Error(t, err)
}

func TestSnapshotWatcher_Watch(t *testing.T) {
	redis := storage.NewMockRedisClient()

	good, err := json.Marshal(snapshotWith(models.VerdictOptimal, "13:00:00 UTC"))
	require.NoError(t, err)
	redis.PubSubData = []storage.PubSubMessage{
		{Channel: "sessions.snapshots", Message: string(good)},
		{Channel: "sessions.snapshots", Message: "not json"},
		{Channel: "sessions.snapshots", Message: string(good)},
	}

	watcher := NewSnapshotWatcher(redis, SnapshotPublisherConfig{})

	var seen []string
	err = watcher.Watch(context.Background(), func(s *models.GlobalSnapshot) {
		seen = append(seen, s.UTCTime)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"13:00:00 UTC", "13:00:00 UTC"}, seen)
}

func TestSnapshotWatcher_SubscribeError(t *testing.T) {
	redis := storage.NewMockRedisClient()
	redis.SubscribeErr = errors.New("no connection")

	err := NewSnapshotWatcher(redis, DefaultSnapshotPublisherConfig()).Watch(context.Background(), func(*models.GlobalSnapshot) {})
	assert.Error(t, err)
}
