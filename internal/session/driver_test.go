package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mohamedkhairy/session-intel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type mockSink struct {
	mu        sync.Mutex
	err       error
	snapshots []*models.GlobalSnapshot
}

func (s *mockSink) Name() string { return "mock" }

func (s *mockSink) PublishSnapshot(ctx context.Context, snapshot *models.GlobalSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snapshot)
	return s.err
}

func (s *mockSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

func newTestDriver(t *testing.T, clock Clock, sinks ...SnapshotSink) *Driver {
	t.Helper()
	return NewDriver(DriverConfig{TickInterval: 10 * time.Millisecond}, newDefaultEngine(t), clock, sinks...)
}

func TestNewDriver_Defaults(t *testing.T) {
	d := NewDriver(DriverConfig{}, newDefaultEngine(t), nil)
	assert.Equal(t, DefaultDriverConfig(), d.config)
	assert.IsType(t, SystemClock{}, d.clock)
	assert.Nil(t, d.Latest())
	assert.False(t, d.IsRunning())

	assert.Panics(t, func() { NewDriver(DefaultDriverConfig(), nil, nil) })
}

func TestDriver_TickPublishes(t *testing.T) {
	clock := &fakeClock{now: utcAt(17, 13, 0)}
	sink := &mockSink{}
	d := newTestDriver(t, clock, sink)

	updates, unsubscribe := d.Subscribe()
	defer unsubscribe()

	snap := d.Tick()
	require.NotNil(t, snap)
	assert.Same(t, snap, d.Latest())
	assert.Equal(t, models.VerdictOptimal, snap.Intelligence.Verdict)

	select {
	case got := <-updates:
		assert.Same(t, snap, got)
	default:
		t.Fatal("subscriber did not receive snapshot")
	}

	assert.Equal(t, 1, sink.count())

	stats := d.GetStats()
	assert.Equal(t, int64(1), stats.Ticks)
	assert.Equal(t, int64(0), stats.SinkErrors)
	assert.Equal(t, 1, stats.Subscribers)
	assert.Equal(t, utcAt(17, 13, 0), stats.LastTickTime)
}

func TestDriver_SlowSubscriberSeesNewest(t *testing.T) {
	clock := &fakeClock{now: utcAt(17, 9, 0)}
	d := newTestDriver(t, clock)

	updates, unsubscribe := d.Subscribe()
	defer unsubscribe()

	d.Tick()
	clock.Set(utcAt(17, 13, 0))
	d.Tick()
	clock.Set(utcAt(17, 18, 0))
	last := d.Tick()

	got := <-updates
	assert.Same(t, last, got)
	assert.Equal(t, "18:00:00 UTC", got.UTCTime)

	select {
	case extra := <-updates:
		t.Fatalf("unexpected queued snapshot %s", extra.UTCTime)
	default:
	}
}

func TestDriver_Unsubscribe(t *testing.T) {
	d := newTestDriver(t, &fakeClock{now: utcAt(17, 9, 0)})

	updates, unsubscribe := d.Subscribe()
	unsubscribe()
	unsubscribe()

	_, ok := <-updates
	assert.False(t, ok, "channel should be closed")
	assert.Equal(t, 0, d.GetStats().Subscribers)

	// Ticking with no subscribers must not panic
	d.Tick()
}

func TestDriver_SinkErrorDoesNotStopPublishing(t *testing.T) {
	failing := &mockSink{err: errors.New("connection refused")}
	healthy := &mockSink{}
	d := newTestDriver(t, &fakeClock{now: utcAt(17, 9, 0)}, failing, healthy)

	snap := d.Tick()
	d.Tick()

	assert.Equal(t, snap.Intelligence.Verdict, d.Latest().Intelligence.Verdict)
	assert.Equal(t, 2, failing.count())
	assert.Equal(t, 2, healthy.count())
	assert.Equal(t, int64(2), d.GetStats().SinkErrors)
}

func TestDriver_VerdictChanges(t *testing.T) {
	clock := &fakeClock{now: utcAt(17, 9, 0)}
	d := newTestDriver(t, clock)

	d.Tick() // OPTIMAL, first tick is not a change
	d.Tick()
	clock.Set(utcAt(17, 11, 0)) // TRADE_NORMAL
	d.Tick()
	clock.Set(utcAt(20, 12, 0)) // AVOID
	d.Tick()

	assert.Equal(t, int64(2), d.GetStats().VerdictChanges)
	assert.Equal(t, int64(4), d.GetStats().Ticks)
}

func TestDriver_ClockJumpBackwards(t *testing.T) {
	clock := &fakeClock{now: utcAt(20, 12, 0)}
	d := newTestDriver(t, clock)

	assert.Equal(t, models.VerdictAvoid, d.Tick().Intelligence.Verdict)

	// Each snapshot reflects only the current instant
	clock.Set(utcAt(17, 13, 0))
	snap := d.Tick()
	assert.False(t, snap.IsGlobalWeekend)
	assert.Equal(t, models.VerdictOptimal, snap.Intelligence.Verdict)
}

func TestDriver_StartStop(t *testing.T) {
	sink := &mockSink{}
	d := newTestDriver(t, &fakeClock{now: utcAt(17, 13, 0)}, sink)

	updates, _ := d.Subscribe()

	require.NoError(t, d.Start())
	assert.True(t, d.IsRunning())
	assert.Error(t, d.Start())

	require.Eventually(t, func() bool {
		return d.Latest() != nil && sink.count() >= 3
	}, time.Second, 5*time.Millisecond)

	d.Stop()
	assert.False(t, d.IsRunning())

	// Drain whatever is buffered; the channel must be closed after Stop
	for range updates {
	}

	ticks := d.GetStats().Ticks
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, ticks, d.GetStats().Ticks)

	assert.Error(t, d.Start(), "stopped driver cannot be restarted")
	d.Stop()
}

func TestDriver_SubscribeAfterStop(t *testing.T) {
	d := newTestDriver(t, &fakeClock{now: utcAt(17, 13, 0)})

	require.NoError(t, d.Start())
	d.Stop()

	updates, unsubscribe := d.Subscribe()

	select {
	case _, ok := <-updates:
		assert.False(t, ok, "channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("subscription after Stop blocked")
	}

	unsubscribe()
	assert.Equal(t, 0, d.GetStats().Subscribers)
}
