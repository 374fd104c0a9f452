package coordinator

import (
	"strconv"

	"github.com/ernetas/junghome/internal/hub"
)

// Command dispatch follows a "fire, don't guarantee" policy: a command
// is written to the live stream if one exists, and dropped otherwise.
// Dropping schedules at most one asynchronous reconnect so that the
// next command finds a live connection. There are no retries, queues,
// or delivery confirmation — the hub's echo on the stream is the only
// acknowledgment.

// Send dispatches a command message over the stream.
//
// With a live connection the message is marshaled and written; a write
// failure is logged and the command is lost. Without a live connection
// the command is dropped immediately and a single reconnect attempt is
// scheduled in the background.
func (c *Coordinator) Send(cmd hub.CommandMessage) {
	c.streamMu.Lock()
	stream := c.stream
	c.streamMu.Unlock()

	if stream != nil && stream.IsConnected() {
		if err := stream.Send(cmd); err != nil {
			c.commandsDropped.Add(1)
			c.logError("command send failed", err)
			return
		}
		c.commandsSent.Add(1)
		c.logDebug("command sent", "datapoint_id", cmd.Data.ID, "type", cmd.Data.Type)
		return
	}

	c.commandsDropped.Add(1)
	c.logWarn("stream not connected, dropping command and scheduling reconnect",
		"datapoint_id", cmd.Data.ID)
	c.scheduleReconnect()
}

// scheduleReconnect starts one asynchronous reconnect attempt unless
// one is already in flight or shutdown has begun.
func (c *Coordinator) scheduleReconnect() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}

	// Stop closes done while holding reconnectMu, so once the check below
	// passes the wg.Add is ordered before Stop's wg.Wait.
	c.reconnectMu.Lock()
	select {
	case <-c.done:
		c.reconnectMu.Unlock()
		c.reconnecting.Store(false)
		return
	default:
	}
	c.wg.Add(1)
	c.reconnectMu.Unlock()
	go func() {
		defer c.wg.Done()
		defer c.reconnecting.Store(false)
		c.connectAndConsume()
	}()
}

// TurnOnSwitch switches a switch datapoint on.
func (c *Coordinator) TurnOnSwitch(datapointID string) {
	c.Send(hub.NewCommand(datapointID, hub.DatapointTypeSwitch, hub.KeySwitch, "1"))
}

// TurnOffSwitch switches a switch datapoint off.
func (c *Coordinator) TurnOffSwitch(datapointID string) {
	c.Send(hub.NewCommand(datapointID, hub.DatapointTypeSwitch, hub.KeySwitch, "0"))
}

// TurnOnLight switches a light's switch datapoint on.
func (c *Coordinator) TurnOnLight(datapointID string) {
	c.Send(hub.NewCommand(datapointID, hub.DatapointTypeSwitch, hub.KeySwitch, "1"))
}

// TurnOffLight switches a light's switch datapoint off.
func (c *Coordinator) TurnOffLight(datapointID string) {
	c.Send(hub.NewCommand(datapointID, hub.DatapointTypeSwitch, hub.KeySwitch, "0"))
}

// SetBrightness sets a brightness datapoint.
//
// The write is recorded with the echo debouncer: dimming ramps echoed
// back by the hub inside the window are suppressed until the written
// value is confirmed.
//
// Parameters:
//   - datapointID: The brightness datapoint's id
//   - brightness: Device-scale brightness, 0-100
func (c *Coordinator) SetBrightness(datapointID string, brightness int) {
	c.markAndSend(datapointID, hub.DatapointTypeBrightness,
		hub.KeyBrightness, strconv.Itoa(brightness))
}

// SetColorTemp sets a colour temperature datapoint.
//
// The write is recorded with the echo debouncer like SetBrightness.
//
// Parameters:
//   - datapointID: The color_temperature datapoint's id
//   - kelvin: Colour temperature in Kelvin (the device's native unit)
func (c *Coordinator) SetColorTemp(datapointID string, kelvin int) {
	c.markAndSend(datapointID, hub.DatapointTypeColorTemperature,
		hub.KeyColorTemperature, strconv.Itoa(kelvin))
}

// SetStatusLED switches a rocker switch's status LED.
func (c *Coordinator) SetStatusLED(datapointID string, on bool) {
	value := "0"
	if on {
		value = "1"
	}
	c.Send(hub.NewCommand(datapointID, hub.DatapointTypeStatusLED, hub.KeyStatusLED, value))
}

// markAndSend records the write with the echo debouncer, then dispatches.
// Only ramping datapoints (brightness, colour temperature) are marked;
// binary switches echo instantly and need no suppression.
func (c *Coordinator) markAndSend(datapointID, dpType, key, value string) {
	c.debounce.MarkWrite(datapointID, key, value)
	c.Send(hub.NewCommand(datapointID, dpType, key, value))
}
