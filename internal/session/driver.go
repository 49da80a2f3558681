package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohamedkhairy/session-intel/internal/models"
	"github.com/mohamedkhairy/session-intel/pkg/logger"
)

// SnapshotSink receives every published snapshot (e.g. Redis)
type SnapshotSink interface {
	Name() string
	PublishSnapshot(ctx context.Context, snapshot *models.GlobalSnapshot) error
}

// DriverConfig holds configuration for the recomputation driver
type DriverConfig struct {
	TickInterval time.Duration // How often to recompute (default: 1 second)
	SinkTimeout  time.Duration // Per-sink publish timeout (default: 500ms)
}

// DefaultDriverConfig returns default configuration
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		TickInterval: 1 * time.Second,
		SinkTimeout:  500 * time.Millisecond,
	}
}

// Driver periodically recomputes the snapshot and hands it to subscribers and sinks
type Driver struct {
	config  DriverConfig
	engine  *Engine
	clock   Clock
	sinks   []SnapshotSink
	latest  atomic.Pointer[models.GlobalSnapshot]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
	stats   DriverStats

	subsMu    sync.Mutex
	subs      map[int]chan *models.GlobalSnapshot
	nextSubID int
}

// DriverStats holds statistics about the driver
type DriverStats struct {
	Ticks          int64         `json:"ticks"`
	SinkErrors     int64         `json:"sink_errors"`
	Subscribers    int           `json:"subscribers"`
	LastTickTime   time.Time     `json:"last_tick_time"`
	LastTickCost   time.Duration `json:"last_tick_cost_ns"`
	VerdictChanges int64         `json:"verdict_changes"`
	mu             sync.RWMutex
}

// NewDriver creates a new driver. A nil clock means the system clock.
func NewDriver(config DriverConfig, engine *Engine, clock Clock, sinks ...SnapshotSink) *Driver {
	if engine == nil {
		panic("engine cannot be nil")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultDriverConfig().TickInterval
	}
	if config.SinkTimeout <= 0 {
		config.SinkTimeout = DefaultDriverConfig().SinkTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Driver{
		config: config,
		engine: engine,
		clock:  clock,
		sinks:  sinks,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[int]chan *models.GlobalSnapshot),
	}
}

// Start starts the driver loop. The first snapshot is produced immediately.
func (d *Driver) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("driver is already running")
	}
	if d.ctx.Err() != nil {
		d.mu.Unlock()
		return fmt.Errorf("driver has been stopped")
	}
	d.running = true
	d.mu.Unlock()

	logger.Info("Starting session driver",
		logger.Duration("tick_interval", d.config.TickInterval),
		logger.Int("sessions", len(d.engine.definitions)),
		logger.Int("sinks", len(d.sinks)),
	)

	d.wg.Add(1)
	go d.run()

	return nil
}

// Stop stops the driver and closes all subscriber channels
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	logger.Info("Stopping session driver")
	d.cancel()
	d.wg.Wait()

	d.subsMu.Lock()
	for id, ch := range d.subs {
		close(ch)
		delete(d.subs, id)
	}
	d.subsMu.Unlock()

	logger.Info("Session driver stopped")
}

// IsRunning returns whether the driver loop is running
func (d *Driver) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// Latest returns the most recently published snapshot, or nil before the first tick
func (d *Driver) Latest() *models.GlobalSnapshot {
	return d.latest.Load()
}

// Engine returns the engine the driver evaluates
func (d *Driver) Engine() *Engine {
	return d.engine
}

// Subscribe registers a subscriber. The channel holds at most one snapshot; a slow
// reader only ever sees the newest one. Call the returned func to unsubscribe.
// Once the driver is stopped the returned channel is already closed.
func (d *Driver) Subscribe() (<-chan *models.GlobalSnapshot, func()) {
	ch := make(chan *models.GlobalSnapshot, 1)

	d.subsMu.Lock()
	if d.ctx.Err() != nil {
		d.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := d.nextSubID
	d.nextSubID++
	d.subs[id] = ch
	d.subsMu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			d.subsMu.Lock()
			defer d.subsMu.Unlock()
			if c, ok := d.subs[id]; ok {
				close(c)
				delete(d.subs, id)
			}
		})
	}

	return ch, unsubscribe
}

// GetStats returns current driver statistics
func (d *Driver) GetStats() DriverStats {
	d.stats.mu.RLock()
	defer d.stats.mu.RUnlock()

	d.subsMu.Lock()
	subscribers := len(d.subs)
	d.subsMu.Unlock()

	return DriverStats{
		Ticks:          d.stats.Ticks,
		SinkErrors:     d.stats.SinkErrors,
		Subscribers:    subscribers,
		LastTickTime:   d.stats.LastTickTime,
		LastTickCost:   d.stats.LastTickCost,
		VerdictChanges: d.stats.VerdictChanges,
	}
}

// run is the main driver loop
func (d *Driver) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.TickInterval)
	defer ticker.Stop()

	d.Tick()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.Tick()
		}
	}
}

// Tick performs one recompute-and-publish cycle (exported for testing)
func (d *Driver) Tick() *models.GlobalSnapshot {
	start := time.Now()

	snapshot := d.engine.Snapshot(d.clock.Now())
	previous := d.latest.Swap(snapshot)

	d.broadcast(snapshot)
	sinkErrors := d.publishToSinks(snapshot)

	verdictChanged := previous == nil || previous.Intelligence.Verdict != snapshot.Intelligence.Verdict
	if previous == nil || !equalNames(previous.Intelligence.ActiveSessions, snapshot.Intelligence.ActiveSessions) || verdictChanged {
		logger.Info("Session intelligence changed",
			logger.String("verdict", string(snapshot.Intelligence.Verdict)),
			logger.String("message", snapshot.Intelligence.SessionMessage),
			logger.String("active_sessions", strings.Join(snapshot.Intelligence.ActiveSessions, ",")),
			logger.Bool("global_weekend", snapshot.IsGlobalWeekend),
			logger.String("utc_time", snapshot.UTCTime),
		)
	}

	cost := time.Since(start)
	recordSnapshotMetrics(snapshot, cost)
	d.updateStats(snapshot, cost, sinkErrors, verdictChanged && previous != nil)

	return snapshot
}

// broadcast hands the snapshot to every subscriber, replacing any unread one
func (d *Driver) broadcast(snapshot *models.GlobalSnapshot) {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()

	for _, ch := range d.subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

func (d *Driver) publishToSinks(snapshot *models.GlobalSnapshot) int64 {
	var failed int64
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(d.ctx, d.config.SinkTimeout)
		err := sink.PublishSnapshot(ctx, snapshot)
		cancel()
		if err != nil {
			failed++
			logger.SinkErrorsTotal.WithLabelValues(sink.Name()).Inc()
			logger.Warn("Failed to publish snapshot to sink",
				logger.ErrorField(err),
				logger.String("sink", sink.Name()),
			)
		}
	}
	return failed
}

func (d *Driver) updateStats(snapshot *models.GlobalSnapshot, cost time.Duration, sinkErrors int64, verdictChanged bool) {
	d.stats.mu.Lock()
	defer d.stats.mu.Unlock()

	d.stats.Ticks++
	d.stats.SinkErrors += sinkErrors
	d.stats.LastTickTime = snapshot.Timestamp
	d.stats.LastTickCost = cost
	if verdictChanged {
		d.stats.VerdictChanges++
	}
}

var allVerdicts = []models.Verdict{
	models.VerdictAvoid,
	models.VerdictTradeSmall,
	models.VerdictTradeNormal,
	models.VerdictOptimal,
}

var levelValues = map[models.Level]float64{
	models.LevelNone:   0,
	models.LevelLow:    1,
	models.LevelMedium: 2,
	models.LevelHigh:   3,
}

func recordSnapshotMetrics(snapshot *models.GlobalSnapshot, cost time.Duration) {
	logger.SnapshotTicksTotal.Inc()
	logger.SnapshotComputeDuration.Observe(cost.Seconds())

	for _, s := range snapshot.Sessions {
		open := 0.0
		if s.IsOpen {
			open = 1
		}
		logger.SessionOpen.WithLabelValues(s.Name).Set(open)
	}

	for _, v := range allVerdicts {
		current := 0.0
		if v == snapshot.Intelligence.Verdict {
			current = 1
		}
		logger.SessionVerdict.WithLabelValues(string(v)).Set(current)
	}

	logger.SessionLevel.WithLabelValues("liquidity").Set(levelValues[snapshot.Intelligence.LiquidityScore])
	logger.SessionLevel.WithLabelValues("volatility").Set(levelValues[snapshot.Intelligence.Volatility])
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
