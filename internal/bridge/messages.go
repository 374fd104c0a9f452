package bridge

import (
	"time"

	"github.com/google/uuid"

	"github.com/ernetas/junghome/internal/coordinator"
)

// MQTT message types for the bridge's external surface.

// CommandMessage is consumed from junghome/command/{datapoint_id} to
// execute a device command.
type CommandMessage struct {
	// ID uniquely identifies this command for log correlation.
	// Optional; assigned by the publisher.
	ID string `json:"id,omitempty"`

	// Command is the command name ("on", "off", "brightness",
	// "color_temp", "status_led").
	Command string `json:"command"`

	// Parameters contains command-specific values.
	// Examples:
	//   {"level": 128} for brightness (0-255 consumer scale)
	//   {"mireds": 250} for color_temp
	//   {"on": true} for status_led
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated (optional).
	Source string `json:"source,omitempty"`
}

// StateMessage is published retained to
// junghome/state/{device_id}/{datapoint_id} when a datapoint value changes.
type StateMessage struct {
	// ID uniquely identifies this state publication.
	ID string `json:"id"`

	// Timestamp is when the change was observed (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the owning device's identifier.
	DeviceID string `json:"device_id"`

	// DatapointID is the changed datapoint's identifier.
	DatapointID string `json:"datapoint_id"`

	// DatapointType is the datapoint type ("switch", "brightness", ...).
	DatapointType string `json:"datapoint_type"`

	// Key is the changed value key.
	Key string `json:"key"`

	// Value is the new value, in the hub's string representation.
	Value string `json:"value"`
}

// ButtonEventMessage is published to junghome/event/button when a
// stateless rocker press arrives on the stream.
type ButtonEventMessage struct {
	// ID uniquely identifies this event.
	ID string `json:"id"`

	// Timestamp is when the press was observed (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DatapointID is the pressed datapoint's identifier.
	DatapointID string `json:"datapoint_id"`

	// DatapointType is the datapoint type reported with the press.
	DatapointType string `json:"datapoint_type"`

	// Key is the press direction ("up_request", "down_request",
	// "trigger_request").
	Key string `json:"key"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is operating with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthOffline indicates the bridge is not connected (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published retained to junghome/health to report
// operational status.
type HealthMessage struct {
	// Bridge is the bridge identifier.
	Bridge string `json:"bridge"`

	// Timestamp is when the status was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the current operational status.
	Status HealthStatus `json:"status"`

	// Version is the bridge software version.
	Version string `json:"version,omitempty"`

	// UptimeSeconds is how long the bridge has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// HubState is the hub stream connection state
	// ("connected", "connecting", "disconnected").
	HubState string `json:"hub_state,omitempty"`

	// Statistics contains coordinator counters.
	Statistics *BridgeStatistics `json:"statistics,omitempty"`

	// DevicesManaged is the number of devices in the current snapshot.
	DevicesManaged int `json:"devices_managed"`

	// Reason explains the status (especially for offline/degraded).
	Reason string `json:"reason,omitempty"`
}

// BridgeStatistics contains operational metrics.
type BridgeStatistics struct {
	// FramesMerged is the total number of stream frames merged.
	FramesMerged uint64 `json:"frames_merged"`

	// FramesDiscarded is the total number of stream frames discarded.
	FramesDiscarded uint64 `json:"frames_discarded"`

	// FramesInvalid is the total number of invalid stream frames.
	FramesInvalid uint64 `json:"frames_invalid"`

	// CommandsSent is the total number of commands dispatched to the hub.
	CommandsSent uint64 `json:"commands_sent"`

	// CommandsDropped is the total number of commands dropped.
	CommandsDropped uint64 `json:"commands_dropped"`

	// Refreshes is the number of completed periodic snapshot refreshes.
	Refreshes uint64 `json:"refreshes"`
}

// NewStateMessage creates a state message for a changed datapoint value.
func NewStateMessage(deviceID, datapointID, dpType, key, value string) StateMessage {
	return StateMessage{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		DeviceID:      deviceID,
		DatapointID:   datapointID,
		DatapointType: dpType,
		Key:           key,
		Value:         value,
	}
}

// NewButtonEvent creates a button press event message.
func NewButtonEvent(datapointID, dpType, key string) ButtonEventMessage {
	return ButtonEventMessage{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		DatapointID:   datapointID,
		DatapointType: dpType,
		Key:           key,
	}
}

// NewHealthMessage creates a health status message from coordinator stats.
func NewHealthMessage(bridgeID, version string, status HealthStatus, stats coordinator.Stats, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:        bridgeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		HubState:      stats.State,
		Statistics: &BridgeStatistics{
			FramesMerged:    stats.FramesMerged,
			FramesDiscarded: stats.FramesDiscarded,
			FramesInvalid:   stats.FramesInvalid,
			CommandsSent:    stats.CommandsSent,
			CommandsDropped: stats.CommandsDropped,
			Refreshes:       stats.Refreshes,
		},
		DevicesManaged: stats.Devices,
	}
}

// NewLWTMessage creates a Last Will and Testament message for MQTT.
// The broker publishes it if the bridge disconnects unexpectedly.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}
