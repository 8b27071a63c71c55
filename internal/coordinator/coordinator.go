// Package coordinator maintains the canonical in-memory device state for
// one Protect console and keeps it convergent across two update sources:
// periodic full polling and WebSocket push. Consumers subscribe for
// full-state snapshots and issue commands through it; they never mutate
// the device maps directly.
package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"protectsync/internal/clock"
	"protectsync/internal/model"
	"protectsync/internal/protect"
)

// State is the coordinator lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateShuttingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting-down"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

const (
	defaultPollInterval = 30 * time.Second
	defaultAuxDelay     = 200 * time.Millisecond
)

// Snapshot is the full device state broadcast to subscribers after every
// reconciliation. The maps are copies; the device pointers are shared and
// must be treated as read-only.
type Snapshot struct {
	Cameras   map[string]*model.Camera
	Sensors   map[string]*model.Sensor
	Lights    map[string]*model.Light
	Chimes    map[string]*model.Chime
	Viewers   map[string]*model.Viewer
	Liveviews map[string]*model.Liveview
	NVR       *model.NVR

	UpdatedAt time.Time

	// Stale is set when the last scheduled refresh failed. The device
	// maps then still hold the last known good state.
	Stale bool
}

// Config carries optional coordinator settings; zero values select
// defaults.
type Config struct {
	// PollInterval is the scheduled refresh cadence. Defaults to 30s.
	PollInterval time.Duration

	// AuxDelay is the pause between sequential auxiliary category
	// fetches, keeping the refresh under the console's rate limits.
	// Defaults to 200ms; a negative value disables the pause.
	AuxDelay time.Duration

	Logger *zap.Logger
	Clock  clock.Clock
}

// Coordinator reconciles poll and push updates into one device-state
// view.
type Coordinator struct {
	api    protect.API
	logger *zap.Logger
	clock  clock.Clock

	pollInterval time.Duration
	auxDelay     time.Duration

	// seq issues revision stamps. Writers stamp every mutation; the
	// refresh path skips entities stamped after the poll began, so a
	// push arriving mid-refresh is never overwritten by stale poll data.
	seq atomic.Int64

	mu        sync.RWMutex
	state     State
	cameras   map[string]*model.Camera
	sensors   map[string]*model.Sensor
	lights    map[string]*model.Light
	chimes    map[string]*model.Chime
	viewers   map[string]*model.Viewer
	liveviews map[string]*model.Liveview
	nvr       *model.NVR
	lastSync  time.Time
	stale     bool

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int

	runCtx    context.Context
	runCancel context.CancelFunc
	refreshCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates a coordinator over the given API. Call Start to perform
// the initial refresh and begin polling.
func New(api protect.API, cfg Config) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.AuxDelay == 0 {
		cfg.AuxDelay = defaultAuxDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewRealClock()
	}

	return &Coordinator{
		api:          api,
		logger:       cfg.Logger,
		clock:        cfg.Clock,
		pollInterval: cfg.PollInterval,
		auxDelay:     cfg.AuxDelay,
		cameras:      make(map[string]*model.Camera),
		sensors:      make(map[string]*model.Sensor),
		lights:       make(map[string]*model.Light),
		chimes:       make(map[string]*model.Chime),
		viewers:      make(map[string]*model.Viewer),
		liveviews:    make(map[string]*model.Liveview),
		subs:         make(map[int]func(Snapshot)),
		refreshCh:    make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start performs the initial full refresh, opens both push channels, and
// launches the polling loop. A failed initial refresh is fatal: the
// coordinator stays Uninitialized and no partial state is exposed.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUninitialized {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot start coordinator in state %s", state)
	}
	c.mu.Unlock()

	c.api.RegisterDeviceCallback(c.handleDeviceUpdate)
	c.api.RegisterEventCallback(c.handleEvent)

	if err := c.refresh(ctx); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}

	c.mu.Lock()
	c.state = StateReady
	c.mu.Unlock()

	c.api.OpenDeviceChannel()
	c.api.OpenEventChannel()

	c.runCtx, c.runCancel = context.WithCancel(context.Background())
	go c.run()

	c.logger.Info("coordinator ready",
		zap.String("host", c.api.Host()),
		zap.Duration("poll_interval", c.pollInterval))
	return nil
}

// run is the polling loop: one scheduled refresh per interval, plus any
// out-of-band refreshes requested through RequestRefresh.
func (c *Coordinator) run() {
	defer close(c.doneCh)
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.refreshCh:
		case <-c.clock.After(c.pollInterval):
		}

		if err := c.refresh(c.runCtx); err != nil {
			if c.runCtx.Err() != nil {
				return
			}
			c.logger.Warn("scheduled refresh failed", zap.Error(err))
			c.markStale()
		}
	}
}

// RequestRefresh schedules an out-of-band reconciliation. It never
// blocks; a request while one is already pending is coalesced.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

// Subscribe registers a snapshot listener and returns its unsubscribe
// function. Listeners are invoked after every reconciliation, in
// registration order, on the mutating goroutine.
func (c *Coordinator) Subscribe(fn func(Snapshot)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// Shutdown stops polling, waits for the loop to exit, and closes the
// underlying transport. Safe to call once from any state.
func (c *Coordinator) Shutdown() error {
	c.mu.Lock()
	switch c.state {
	case StateClosed, StateShuttingDown:
		c.mu.Unlock()
		return nil
	case StateUninitialized:
		c.state = StateClosed
		c.mu.Unlock()
		return c.api.Close()
	}
	c.state = StateShuttingDown
	c.mu.Unlock()

	c.runCancel()
	close(c.stopCh)
	<-c.doneCh

	err := c.api.Close()

	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()

	c.logger.Info("coordinator stopped")
	return err
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Stale reports whether the last scheduled refresh failed.
func (c *Coordinator) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stale
}

// LastSync returns when the last successful refresh completed.
func (c *Coordinator) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSync
}

// Cameras returns a copy of the camera map. The device pointers are
// shared read-only references.
func (c *Coordinator) Cameras() map[string]*model.Camera {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMap(c.cameras)
}

// Camera returns one camera by id.
func (c *Coordinator) Camera(id string) (*model.Camera, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cam, ok := c.cameras[id]
	return cam, ok
}

// Sensors returns a copy of the sensor map.
func (c *Coordinator) Sensors() map[string]*model.Sensor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMap(c.sensors)
}

// Lights returns a copy of the light map.
func (c *Coordinator) Lights() map[string]*model.Light {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMap(c.lights)
}

// Chimes returns a copy of the chime map.
func (c *Coordinator) Chimes() map[string]*model.Chime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMap(c.chimes)
}

// Viewers returns a copy of the viewer map.
func (c *Coordinator) Viewers() map[string]*model.Viewer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMap(c.viewers)
}

// Liveviews returns a copy of the liveview map.
func (c *Coordinator) Liveviews() map[string]*model.Liveview {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMap(c.liveviews)
}

// NVR returns the console singleton, nil before the first refresh.
func (c *Coordinator) NVR() *model.NVR {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nvr
}

func (c *Coordinator) nextRev() int64 { return c.seq.Add(1) }

func (c *Coordinator) markStale() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
	c.broadcast()
}

// broadcast delivers the current snapshot to every subscriber. A
// panicking subscriber is logged and skipped so it cannot take down the
// delivery loop or its siblings.
func (c *Coordinator) broadcast() {
	snap := c.snapshot()

	c.subMu.Lock()
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subs[id])
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		c.deliver(fn, snap)
	}
}

func (c *Coordinator) deliver(fn func(Snapshot), snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("snapshot subscriber panicked", zap.Any("panic", r))
		}
	}()
	fn(snap)
}

// snapshot assembles the broadcast view under the read lock.
func (c *Coordinator) snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Cameras:   copyMap(c.cameras),
		Sensors:   copyMap(c.sensors),
		Lights:    copyMap(c.lights),
		Chimes:    copyMap(c.chimes),
		Viewers:   copyMap(c.viewers),
		Liveviews: copyMap(c.liveviews),
		NVR:       c.nvr,
		UpdatedAt: c.lastSync,
		Stale:     c.stale,
	}
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
