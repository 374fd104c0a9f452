package bridge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ernetas/junghome/internal/coordinator"
	"github.com/ernetas/junghome/internal/hub"
	"github.com/ernetas/junghome/internal/infrastructure/mqtt"
)

// commandTopicParts is the number of parts in a valid command topic
// (junghome/command/{datapoint_id}).
const commandTopicParts = 3

// Bridge projects coordinator state onto MQTT and routes MQTT commands
// back to the hub. It handles:
//   - Diffing snapshot publications and publishing changed datapoint
//     values retained per (device, datapoint)
//   - Forwarding stateless button presses as event messages
//   - Translating JSON commands into coordinator dispatches
//   - Health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	ctrl    Controller
	mqtt    MQTTClient
	topics  mqtt.Topics
	health  *HealthReporter
	history History // May be nil (optional)

	// State cache for change detection: datapoint id -> key -> value.
	stateCache   map[string]map[string]string
	stateCacheMu sync.Mutex

	// Shutdown coordination
	done     chan struct{}
	stopOnce sync.Once

	// Logger
	logger   Logger
	loggerMu sync.RWMutex
}

// Controller is the coordinator surface the bridge consumes.
// Satisfied by *coordinator.Coordinator.
type Controller interface {
	// OnSnapshot registers a subscriber for state snapshots.
	OnSnapshot(fn coordinator.SnapshotFunc)

	// OnDatapointEvent registers a subscriber for datapoint frames.
	OnDatapointEvent(fn coordinator.EventFunc)

	// CurrentSnapshot returns a deep copy of the synchronized state.
	CurrentSnapshot() coordinator.Snapshot

	// ConnectionState returns the hub stream state name.
	ConnectionState() string

	// GetStats returns current coordinator counters.
	GetStats() coordinator.Stats

	// Command dispatchers.
	TurnOnSwitch(datapointID string)
	TurnOffSwitch(datapointID string)
	SetBrightness(datapointID string, brightness int)
	SetColorTemp(datapointID string, kelvin int)
	SetStatusLED(datapointID string, on bool)
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// History records datapoint values for long-term storage.
// Satisfied by *influxdb.Client. Optional - if nil, the bridge operates
// without history recording.
type History interface {
	// WriteDatapointValue records a numeric datapoint value.
	WriteDatapointValue(deviceID, datapointID, key string, value float64)

	// WriteQuantityMetric records a measured quantity with its unit.
	WriteQuantityMetric(deviceID, quantity, unit string, value float64)
}

// Logger is the interface for optional logging support.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Controller is the coordinator the bridge projects. Required.
	Controller Controller

	// MQTTClient is the MQTT client implementation. Required.
	MQTTClient MQTTClient

	// Logger is optional structured logger.
	Logger Logger

	// History is optional datapoint history storage.
	History History

	// HealthReporter is optional; created with defaults when nil.
	HealthReporter *HealthReporter
}

// New creates a new bridge instance.
// Call Start() to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	b := &Bridge{
		ctrl:       opts.Controller,
		mqtt:       opts.MQTTClient,
		health:     opts.HealthReporter,
		history:    opts.History,
		stateCache: make(map[string]map[string]string),
		done:       make(chan struct{}),
		logger:     opts.Logger,
	}

	if b.health == nil {
		b.health = NewHealthReporter(HealthReporterConfig{
			Publisher:  opts.MQTTClient,
			Controller: opts.Controller,
		})
	}
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start begins bridge operation.
// This subscribes to the command topic, registers the snapshot and event
// handlers with the coordinator, and starts health reporting.
func (b *Bridge) Start() error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	commandTopic := b.topics.AllDatapointCommands()
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleCommandMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	b.ctrl.OnSnapshot(b.handleSnapshot)
	b.ctrl.OnDatapointEvent(b.handleDatapointEvent)

	// Seed retained state from the current snapshot; the registration
	// above only sees future publications.
	b.handleSnapshot(b.ctrl.CurrentSnapshot())

	b.health.Start()

	b.logInfo("bridge started")
	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)

		// Stop health reporting (publishes "stopping" status)
		b.health.Stop()

		b.logInfo("bridge stopped")
	})
}

// =============================================================================
// Snapshot projection
// =============================================================================

// handleSnapshot diffs a snapshot publication against the state cache and
// publishes a retained state message per changed (datapoint, key).
func (b *Bridge) handleSnapshot(snap coordinator.Snapshot) {
	select {
	case <-b.done:
		return
	default:
	}

	for i := range snap.Devices {
		dev := &snap.Devices[i]
		for j := range dev.Datapoints {
			dp := &dev.Datapoints[j]
			for _, kv := range dp.Values {
				if b.stateUnchanged(dp.ID, kv.Key, kv.Value) {
					continue
				}
				b.publishState(dev.ID, dp, kv)
				b.recordHistory(dev.ID, dp, kv)
			}
		}
	}
}

// publishState publishes one changed datapoint value, retained.
func (b *Bridge) publishState(deviceID string, dp *hub.Datapoint, kv hub.KeyValue) {
	msg := NewStateMessage(deviceID, dp.ID, dp.Type, kv.Key, kv.Value)

	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal state", err)
		return
	}

	topic := b.topics.DatapointState(deviceID, dp.ID)
	if err := b.mqtt.Publish(topic, payload, 1, true); err != nil {
		b.logError("failed to publish state", err)
		return
	}

	b.logDebug("state published",
		"datapoint_id", dp.ID,
		"key", kv.Key,
		"value", kv.Value)
}

// recordHistory writes a changed numeric value to history storage.
// Quantity readings carry their label and unit alongside the value;
// everything non-numeric (press requests, labels) is skipped.
func (b *Bridge) recordHistory(deviceID string, dp *hub.Datapoint, kv hub.KeyValue) {
	if b.history == nil {
		return
	}

	value, err := strconv.ParseFloat(kv.Value, 64)
	if err != nil {
		return
	}

	if dp.Type == hub.DatapointTypeQuantity && kv.Key == hub.KeyQuantityValue {
		label, ok := dp.Value(hub.KeyQuantityLabel)
		if !ok || label == "" {
			label = "quantity"
		}
		unit, _ := dp.Value(hub.KeyQuantityUnit)
		b.history.WriteQuantityMetric(deviceID, label, unit, value)
		return
	}

	b.history.WriteDatapointValue(deviceID, dp.ID, kv.Key, value)
}

// stateUnchanged checks if the new value matches the cached state.
// Returns true if unchanged (should skip publish).
func (b *Bridge) stateUnchanged(datapointID, key, value string) bool {
	b.stateCacheMu.Lock()
	defer b.stateCacheMu.Unlock()

	if b.stateCache[datapointID] == nil {
		b.stateCache[datapointID] = make(map[string]string)
	}

	cached, ok := b.stateCache[datapointID][key]
	if ok && cached == value {
		return true
	}

	b.stateCache[datapointID][key] = value
	return false
}

// ClearStateCache removes all entries from the state cache, forcing the
// next snapshot to republish every value. Call after an MQTT reconnect so
// retained state is rebuilt on the broker.
func (b *Bridge) ClearStateCache() {
	b.stateCacheMu.Lock()
	defer b.stateCacheMu.Unlock()

	b.stateCache = make(map[string]map[string]string)
}

// =============================================================================
// Button events
// =============================================================================

// pressRequestKeys are the value keys that signal a stateless press.
var pressRequestKeys = map[string]bool{
	hub.KeyUpRequest:      true,
	hub.KeyDownRequest:    true,
	hub.KeyTriggerRequest: true,
}

// handleDatapointEvent forwards stateless rocker presses to the button
// event topic. A press is any request key with value "1"; everything else
// on the event signal is ignored here (stateful changes arrive via the
// snapshot path).
func (b *Bridge) handleDatapointEvent(update hub.DatapointUpdate) {
	select {
	case <-b.done:
		return
	default:
	}

	for _, kv := range update.Values {
		if !pressRequestKeys[kv.Key] || kv.Value != "1" {
			continue
		}

		msg := NewButtonEvent(update.ID, update.Type, kv.Key)
		payload, err := json.Marshal(msg)
		if err != nil {
			b.logError("failed to marshal button event", err)
			continue
		}

		if err := b.mqtt.Publish(b.topics.ButtonEvent(), payload, 1, false); err != nil {
			b.logError("failed to publish button event", err)
			continue
		}

		b.logInfo("button press",
			"datapoint_id", update.ID,
			"key", kv.Key)
	}
}

// =============================================================================
// Command routing
// =============================================================================

// handleCommandMessage parses a command topic and payload and routes the
// command to the coordinator.
func (b *Bridge) handleCommandMessage(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) != commandTopicParts || parts[2] == "" {
		b.logError("invalid command topic", fmt.Errorf("%w: %s", ErrInvalidTopic, topic))
		return
	}
	datapointID := parts[2]

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", fmt.Errorf("%w: %v", ErrInvalidPayload, err))
		return
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"datapoint_id", datapointID,
		"command", cmd.Command)

	if err := b.routeCommand(datapointID, cmd); err != nil {
		b.logError("command rejected", err)
	}
}

// routeCommand translates one command into a coordinator dispatch,
// converting consumer units to the device's native scales.
func (b *Bridge) routeCommand(datapointID string, cmd CommandMessage) error {
	switch cmd.Command {
	case "on":
		b.ctrl.TurnOnSwitch(datapointID)
		return nil

	case "off":
		b.ctrl.TurnOffSwitch(datapointID)
		return nil

	case "brightness":
		level, err := numberParam(cmd, "level")
		if err != nil {
			return err
		}
		if level < 0 || level > maxHostBrightness {
			return fmt.Errorf("%w: 'level' must be 0-%d, got %.2f",
				ErrInvalidParameters, maxHostBrightness, level)
		}
		b.ctrl.SetBrightness(datapointID, HostToRawBrightness(int(level)))
		return nil

	case "color_temp":
		mireds, err := numberParam(cmd, "mireds")
		if err != nil {
			return err
		}
		b.ctrl.SetColorTemp(datapointID, MiredToKelvin(int(mireds)))
		return nil

	case "status_led":
		onAny, ok := cmd.Parameters["on"]
		if !ok {
			return fmt.Errorf("%w: missing 'on' parameter", ErrInvalidParameters)
		}
		on, ok := onAny.(bool)
		if !ok {
			return fmt.Errorf("%w: 'on' must be a boolean", ErrInvalidParameters)
		}
		b.ctrl.SetStatusLED(datapointID, on)
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Command)
	}
}

// numberParam extracts a numeric parameter from a command.
func numberParam(cmd CommandMessage, name string) (float64, error) {
	raw, ok := cmd.Parameters[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing '%s' parameter", ErrInvalidParameters, name)
	}
	value, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: '%s' must be a number", ErrInvalidParameters, name)
	}
	return value, nil
}

// =============================================================================
// Metrics and logging
// =============================================================================

// Metrics contains bridge metrics for the API health endpoint.
type Metrics struct {
	MQTTConnected bool
	HubState      string
	Stats         coordinator.Stats
}

// GetMetrics returns current bridge metrics.
func (b *Bridge) GetMetrics() Metrics {
	return Metrics{
		MQTTConnected: b.mqtt.IsConnected(),
		HubState:      b.ctrl.ConnectionState(),
		Stats:         b.ctrl.GetStats(),
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
