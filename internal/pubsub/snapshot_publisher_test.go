package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mohamedkhairy/session-intel/internal/config"
	"github.com/mohamedkhairy/session-intel/internal/models"
	"github.com/mohamedkhairy/session-intel/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotWith(verdict models.Verdict, utc string) *models.GlobalSnapshot {
	return &models.GlobalSnapshot{
		UTCTime:   utc,
		Timestamp: time.Date(2024, 1, 17, 13, 0, 0, 0, time.UTC),
		Sessions:  []models.SessionState{},
		Intelligence: models.Intelligence{
			LiquidityScore: models.LevelHigh,
			Volatility:     models.LevelHigh,
			ActiveSessions: []string{},
			Verdict:        verdict,
		},
	}
}

func TestSnapshotPublisher_PublishesLatestAndNotification(t *testing.T) {
	redis := storage.NewMockRedisClient()
	pub := NewSnapshotPublisher(redis, DefaultSnapshotPublisherConfig())
	assert.Equal(t, "redis", pub.Name())

	snap := snapshotWith(models.VerdictOptimal, "13:00:00 UTC")
	require.NoError(t, pub.PublishSnapshot(context.Background(), snap))

	var stored models.GlobalSnapshot
	require.NoError(t, redis.GetJSON(context.Background(), "sessions:latest", &stored))
	assert.Equal(t, "13:00:00 UTC", stored.UTCTime)
	assert.Equal(t, models.VerdictOptimal, stored.Intelligence.Verdict)
	assert.Equal(t, 10*time.Second, redis.TTLs["sessions:latest"])

	messages := redis.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "sessions.snapshots", messages[0].Channel)

	var notified models.GlobalSnapshot
	require.NoError(t, json.Unmarshal([]byte(messages[0].Message), &notified))
	assert.Equal(t, stored, notified)
}

func TestSnapshotPublisher_VerdictStreamOnlyOnChange(t *testing.T) {
	redis := storage.NewMockRedisClient()
	pub := NewSnapshotPublisher(redis, DefaultSnapshotPublisherConfig())
	ctx := context.Background()

	require.NoError(t, pub.PublishSnapshot(ctx, snapshotWith(models.VerdictOptimal, "13:00:00 UTC")))
	require.NoError(t, pub.PublishSnapshot(ctx, snapshotWith(models.VerdictOptimal, "13:00:01 UTC")))
	require.NoError(t, pub.PublishSnapshot(ctx, snapshotWith(models.VerdictTradeNormal, "17:00:00 UTC")))
	require.NoError(t, pub.PublishSnapshot(ctx, snapshotWith(models.VerdictTradeNormal, "17:00:01 UTC")))

	entries := redis.Streams()
	require.Len(t, entries, 2)
	assert.Equal(t, "sessions.verdicts", entries[0].Stream)
	assert.Equal(t, "OPTIMAL", entries[0].Values["verdict"])
	assert.Equal(t, "TRADE_NORMAL", entries[1].Values["verdict"])

	var logged models.GlobalSnapshot
	require.NoError(t, json.Unmarshal([]byte(entries[1].Values["snapshot"].(string)), &logged))
	assert.Equal(t, "17:00:00 UTC", logged.UTCTime)

	assert.Len(t, redis.Messages(), 4)
}

func TestSnapshotPublisher_StreamFailureRetriedNextTick(t *testing.T) {
	redis := storage.NewMockRedisClient()
	pub := NewSnapshotPublisher(redis, DefaultSnapshotPublisherConfig())
	ctx := context.Background()

	redis.StreamErr = errors.New("stream unavailable")
	assert.Error(t, pub.PublishSnapshot(ctx, snapshotWith(models.VerdictAvoid, "21:00:00 UTC")))

	redis.StreamErr = nil
	require.NoError(t, pub.PublishSnapshot(ctx, snapshotWith(models.VerdictAvoid, "21:00:01 UTC")))

	entries := redis.Streams()
	require.Len(t, entries, 1)
	assert.Equal(t, "AVOID", entries[0].Values["verdict"])
}

func TestSnapshotPublisher_SetFailure(t *testing.T) {
	redis := storage.NewMockRedisClient()
	redis.SetErr = errors.New("connection refused")
	pub := NewSnapshotPublisher(redis, DefaultSnapshotPublisherConfig())

	err := pub.PublishSnapshot(context.Background(), snapshotWith(models.VerdictOptimal, "13:00:00 UTC"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sessions:latest")
	assert.Empty(t, redis.Messages())
	assert.Empty(t, redis.Streams())
}

func TestSnapshotPublisher_Nil(t *testing.T) {
	pub := NewSnapshotPublisher(storage.NewMockRedisClient(), DefaultSnapshotPublisherConfig())
	assert.Error(t, pub.PublishSnapshot(context.Background(), nil))
}

func TestSnapshotPublisherConfigFrom(t *testing.T) {
	cfg := SnapshotPublisherConfigFrom(config.RedisConfig{
		SnapshotKey:     "k",
		SnapshotTTL:     time.Minute,
		SnapshotChannel: "c",
		VerdictStream:   "",
	})
	assert.Equal(t, "k", cfg.SnapshotKey)
	assert.Equal(t, time.Minute, cfg.SnapshotTTL)

	// An empty stream name disables the verdict log
	redis := storage.NewMockRedisClient()
	pub := NewSnapshotPublisher(redis, cfg)
	require.NoError(t, pub.PublishSnapshot(context.Background(), snapshotWith(models.VerdictOptimal, "13:00:00 UTC")))
	assert.Empty(t, redis.Streams())
	assert.Equal(t, "c", redis.Messages()[0].Channel)
}
