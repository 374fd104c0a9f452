package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ernetas/junghome/internal/hub"
)

// DefaultRefreshInterval is the periodic REST snapshot refresh interval
// applied when no interval is configured.
const DefaultRefreshInterval = time.Minute

// connState is the stream connection lifecycle state.
type connState int32

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Fetcher retrieves the full device tree from the hub.
// Satisfied by *hub.Client.
type Fetcher interface {
	FetchDevices(ctx context.Context) ([]hub.Device, error)
}

// StreamConn is a live event stream connection.
// Satisfied by *hub.Stream.
type StreamConn interface {
	// Read blocks until the next frame arrives.
	Read() ([]byte, error)

	// Send marshals and writes an outbound message.
	Send(v any) error

	// IsConnected reports whether the connection is believed live.
	IsConnected() bool

	// Close tears down the connection.
	Close() error
}

// DialFunc opens a new stream connection to the hub.
type DialFunc func(ctx context.Context) (StreamConn, error)

// Logger is the interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Snapshot is an immutable view of the synchronized hub state.
//
// Consumers must not mutate a published snapshot; every publication is
// a fresh deep copy of the coordinator's owned state.
type Snapshot struct {
	Devices []hub.Device
	Groups  hub.Collection
	Scenes  hub.Collection
}

// SnapshotFunc receives state snapshots. Called synchronously from the
// stream loop, so handlers must return quickly.
type SnapshotFunc func(Snapshot)

// EventFunc receives every datapoint-typed frame regardless of whether
// it matched a known datapoint. Used for stateless button projections.
type EventFunc func(update hub.DatapointUpdate)

// Options holds configuration for creating a Coordinator.
type Options struct {
	// Fetcher is the REST client for snapshot fetches. Required.
	Fetcher Fetcher

	// Dial opens stream connections. Required.
	Dial DialFunc

	// Logger is optional structured logger.
	Logger Logger

	// RefreshInterval is the periodic REST refresh interval.
	// <= 0 uses DefaultRefreshInterval.
	RefreshInterval time.Duration

	// DebounceWindow is the echo suppression window.
	// <= 0 uses DefaultDebounceWindow.
	DebounceWindow time.Duration

	// Clock overrides the debouncer's clock. Nil uses time.Now.
	Clock func() time.Time
}

// Coordinator owns the synchronized device snapshot.
//
// It seeds state from a REST fetch, keeps it current by merging stream
// frames in place, refreshes it wholesale on a timer, and republishes an
// immutable snapshot to subscribers after every accepted mutation.
//
// Thread Safety: All methods are safe for concurrent use.
type Coordinator struct {
	fetcher  Fetcher
	dial     DialFunc
	refresh  time.Duration
	debounce *Debouncer

	// Owned state. Mutated in place by stream merges, replaced wholesale
	// by REST refreshes.
	devices []hub.Device
	groups  hub.Collection
	scenes  hub.Collection
	stateMu sync.RWMutex

	// Live stream connection, nil while disconnected.
	stream   StreamConn
	streamMu sync.Mutex

	state atomic.Int32 // connState

	// reconnecting guards the single-reconnect policy: at most one
	// asynchronous reconnect attempt in flight at a time.
	reconnecting atomic.Bool

	// reconnectMu orders the shutdown check against wg.Add so that a
	// reconnect racing Stop can never Add after Wait has started.
	reconnectMu sync.Mutex

	subscribers []SnapshotFunc
	eventSubs   []EventFunc
	subMu       sync.RWMutex

	// Stats counters.
	framesMerged    atomic.Uint64
	framesDiscarded atomic.Uint64
	framesInvalid   atomic.Uint64
	commandsSent    atomic.Uint64
	commandsDropped atomic.Uint64
	refreshes       atomic.Uint64

	// Shutdown coordination.
	ctx       context.Context
	ctxCancel context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a Coordinator. Call Start() to begin operation.
func New(opts Options) (*Coordinator, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if opts.Dial == nil {
		return nil, fmt.Errorf("dial function is required")
	}

	refresh := opts.RefreshInterval
	if refresh <= 0 {
		refresh = DefaultRefreshInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Coordinator{
		fetcher:   opts.Fetcher,
		dial:      opts.Dial,
		refresh:   refresh,
		debounce:  NewDebouncer(opts.DebounceWindow, opts.Clock),
		done:      make(chan struct{}),
		ctx:       ctx,
		ctxCancel: cancel,
		logger:    opts.Logger,
	}, nil
}

// Start seeds the snapshot from a REST fetch, then starts the stream
// loop and the periodic refresh loop.
//
// Parameters:
//   - ctx: Context bounding the initial fetch
//
// Returns:
//   - error: If the initial fetch fails (start aborts)
func (c *Coordinator) Start(ctx context.Context) error {
	devices, err := c.fetcher.FetchDevices(ctx)
	if err != nil {
		return fmt.Errorf("initial fetch: %w", err)
	}

	c.stateMu.Lock()
	c.devices = devices
	c.stateMu.Unlock()

	c.logInfo("coordinator started", "devices", len(devices))
	c.publish()

	c.wg.Add(2)
	go c.streamLoop()
	go c.refreshLoop()

	return nil
}

// Stop tears down the stream and background loops. Safe to call more
// than once.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		c.reconnectMu.Lock()
		close(c.done)
		c.reconnectMu.Unlock()
		c.ctxCancel()

		c.streamMu.Lock()
		if c.stream != nil {
			c.stream.Close()
			c.stream = nil
		}
		c.streamMu.Unlock()

		c.wg.Wait()
		c.logInfo("coordinator stopped")
	})
}

// OnSnapshot registers a subscriber for state snapshots.
//
// Subscribers are invoked synchronously, in registration order, once per
// accepted mutation. Register before Start to avoid missing the initial
// snapshot.
func (c *Coordinator) OnSnapshot(fn SnapshotFunc) {
	c.subMu.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.subMu.Unlock()
}

// OnDatapointEvent registers a subscriber for the secondary event signal.
//
// Every datapoint-typed frame is delivered here unconditionally, before
// and regardless of the merge outcome. This is how stateless button
// presses (which never change stored state) reach consumers.
func (c *Coordinator) OnDatapointEvent(fn EventFunc) {
	c.subMu.Lock()
	c.eventSubs = append(c.eventSubs, fn)
	c.subMu.Unlock()
}

// CurrentSnapshot returns a deep copy of the current state.
func (c *Coordinator) CurrentSnapshot() Snapshot {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return Snapshot{
		Devices: hub.CopyDevices(c.devices),
		Groups:  c.groups.DeepCopy(),
		Scenes:  c.scenes.DeepCopy(),
	}
}

// IsConnected reports whether the stream is currently connected.
func (c *Coordinator) IsConnected() bool {
	return connState(c.state.Load()) == stateConnected
}

// ConnectionState returns the stream state name for health reporting.
func (c *Coordinator) ConnectionState() string {
	return connState(c.state.Load()).String()
}

// Stats is a point-in-time view of coordinator counters.
type Stats struct {
	State           string
	Devices         int
	FramesMerged    uint64
	FramesDiscarded uint64
	FramesInvalid   uint64
	CommandsSent    uint64
	CommandsDropped uint64
	Refreshes       uint64
}

// GetStats returns current counters for health and metrics reporting.
func (c *Coordinator) GetStats() Stats {
	c.stateMu.RLock()
	deviceCount := len(c.devices)
	c.stateMu.RUnlock()

	return Stats{
		State:           c.ConnectionState(),
		Devices:         deviceCount,
		FramesMerged:    c.framesMerged.Load(),
		FramesDiscarded: c.framesDiscarded.Load(),
		FramesInvalid:   c.framesInvalid.Load(),
		CommandsSent:    c.commandsSent.Load(),
		CommandsDropped: c.commandsDropped.Load(),
		Refreshes:       c.refreshes.Load(),
	}
}

// =============================================================================
// Stream loop
// =============================================================================

// streamLoop opens the initial stream connection and consumes frames
// until shutdown. After a transport failure the loop exits the read
// phase and does NOT retry on its own: reconnection is lazy, triggered
// by the next command dispatch.
func (c *Coordinator) streamLoop() {
	defer c.wg.Done()
	c.connectAndConsume()
}

// connectAndConsume dials the hub and consumes frames until the
// connection dies or shutdown begins.
func (c *Coordinator) connectAndConsume() {
	select {
	case <-c.done:
		return
	default:
	}

	c.state.Store(int32(stateConnecting))

	stream, err := c.dial(c.ctx)
	if err != nil {
		c.state.Store(int32(stateDisconnected))
		c.logError("stream connect failed", err)
		return
	}

	c.streamMu.Lock()
	c.stream = stream
	c.streamMu.Unlock()
	c.state.Store(int32(stateConnected))
	c.logInfo("stream connected")

	for {
		raw, err := stream.Read()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logError("stream read failed", err)
			}
			break
		}
		c.handleFrame(raw)
	}

	c.streamMu.Lock()
	if c.stream == stream {
		c.stream = nil
	}
	c.streamMu.Unlock()
	c.state.Store(int32(stateDisconnected))
	stream.Close()
}

// handleFrame classifies one stream frame and applies it to the snapshot.
func (c *Coordinator) handleFrame(raw []byte) {
	msg, err := hub.DecodeMessage(raw)
	if err != nil {
		c.framesInvalid.Add(1)
		c.logWarn("discarding invalid frame", "error", err)
		return
	}

	switch msg.Kind {
	case hub.KindHandshake:
		c.framesDiscarded.Add(1)
		c.logDebug("handshake frame", "type", msg.Type)

	case hub.KindDatapoint:
		// Broadcast datapoint-typed frames on the secondary signal before
		// merging; button presses must reach consumers even when no
		// stored datapoint matches. Merging itself is shape-keyed, so
		// object frames with other declared types still merge but do not
		// fire the button signal.
		if msg.Type == "datapoint" {
			c.broadcastEvent(*msg.Datapoint)
		}
		c.mergeDatapoint(msg.Datapoint)

	case hub.KindCollection:
		c.replaceCollection(msg.Type, msg.Collection)

	default:
		c.framesInvalid.Add(1)
	}
}

// mergeDatapoint applies a partial datapoint update to the owned
// snapshot and republishes on success.
//
// The update is keyed by the globally unique datapoint id; the device
// list is scanned in order and the first match wins. Fields absent from
// the wire keep their current values. Incoming values are filtered
// through the echo debouncer per key.
func (c *Coordinator) mergeDatapoint(update *hub.DatapointUpdate) {
	if update.ID == "" {
		c.framesDiscarded.Add(1)
		c.logWarn("datapoint frame without id, dropping")
		return
	}

	c.stateMu.Lock()
	dp := c.findDatapoint(update.ID)
	if dp == nil {
		c.stateMu.Unlock()
		c.framesDiscarded.Add(1)
		c.logWarn("no matching datapoint for stream update", "datapoint_id", update.ID)
		return
	}

	if update.Type != "" {
		dp.Type = update.Type
	}
	if update.Values != nil {
		dp.Values = c.filteredValues(dp, update.Values)
	}
	c.stateMu.Unlock()

	c.framesMerged.Add(1)
	c.logDebug("datapoint merged", "datapoint_id", update.ID)
	c.publish()
}

// filteredValues builds the replacement value list for a datapoint,
// restoring the stored value for any key whose echo the debouncer
// suppresses. Caller holds stateMu.
func (c *Coordinator) filteredValues(dp *hub.Datapoint, incoming []hub.KeyValue) []hub.KeyValue {
	out := make([]hub.KeyValue, 0, len(incoming))
	for _, kv := range incoming {
		if c.debounce.ShouldSuppress(dp.ID, kv.Key, kv.Value) {
			if current, ok := dp.Value(kv.Key); ok {
				out = append(out, hub.KeyValue{Key: kv.Key, Value: current})
			}
			c.logDebug("suppressed stale echo",
				"datapoint_id", dp.ID,
				"key", kv.Key)
			continue
		}
		out = append(out, kv)
	}
	return out
}

// findDatapoint scans all devices for a datapoint id. Caller holds stateMu.
func (c *Coordinator) findDatapoint(id string) *hub.Datapoint {
	for i := range c.devices {
		if dp := c.devices[i].DatapointByID(id); dp != nil {
			return dp
		}
	}
	return nil
}

// replaceCollection swaps a side collection wholesale and republishes.
func (c *Coordinator) replaceCollection(collType string, coll hub.Collection) {
	c.stateMu.Lock()
	switch collType {
	case "groups":
		c.groups = coll
	case "scenes":
		c.scenes = coll
	}
	c.stateMu.Unlock()

	c.framesMerged.Add(1)
	c.logDebug("collection replaced", "type", collType, "entries", len(coll))
	c.publish()
}

// =============================================================================
// Refresh loop
// =============================================================================

// refreshLoop periodically replaces the device snapshot from REST.
func (c *Coordinator) refreshLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.refreshNow()
		}
	}
}

// refreshNow fetches the device tree and replaces the snapshot
// atomically. Fetch failures leave the current snapshot untouched.
func (c *Coordinator) refreshNow() {
	ctx, cancel := context.WithTimeout(c.ctx, c.refresh)
	defer cancel()

	devices, err := c.fetcher.FetchDevices(ctx)
	if err != nil {
		c.logWarn("periodic refresh failed", "error", err)
		return
	}

	c.stateMu.Lock()
	c.debounceRefreshed(devices)
	c.devices = devices
	c.stateMu.Unlock()

	c.refreshes.Add(1)
	c.logDebug("snapshot refreshed", "devices", len(devices))
	c.publish()
}

// debounceRefreshed runs a freshly fetched device tree through the echo
// debouncer. A refresh landing inside the window can carry the same
// stale ramp values the stream suppresses, so suppressed keys are
// restored from the current snapshot before it is replaced. Caller
// holds stateMu.
func (c *Coordinator) debounceRefreshed(devices []hub.Device) {
	for i := range devices {
		for j := range devices[i].Datapoints {
			dp := &devices[i].Datapoints[j]
			for k := range dp.Values {
				kv := dp.Values[k]
				if !c.debounce.ShouldSuppress(dp.ID, kv.Key, kv.Value) {
					continue
				}
				if current := c.findDatapoint(dp.ID); current != nil {
					if v, ok := current.Value(kv.Key); ok {
						dp.Values[k].Value = v
					}
				}
				c.logDebug("suppressed stale refresh value",
					"datapoint_id", dp.ID,
					"key", kv.Key)
			}
		}
	}
}

// =============================================================================
// Publication
// =============================================================================

// publish delivers a fresh immutable snapshot to all subscribers,
// synchronously and in registration order.
func (c *Coordinator) publish() {
	snapshot := c.CurrentSnapshot()

	c.subMu.RLock()
	subs := c.subscribers
	c.subMu.RUnlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// broadcastEvent delivers a datapoint frame on the secondary signal.
func (c *Coordinator) broadcastEvent(update hub.DatapointUpdate) {
	c.subMu.RLock()
	subs := c.eventSubs
	c.subMu.RUnlock()

	for _, fn := range subs {
		fn(update)
	}
}

// =============================================================================
// Logging helpers
// =============================================================================

func (c *Coordinator) logInfo(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (c *Coordinator) logWarn(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (c *Coordinator) logError(msg string, err error) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

func (c *Coordinator) logDebug(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
