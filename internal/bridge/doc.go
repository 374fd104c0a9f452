// Package bridge projects coordinator state onto MQTT and routes MQTT
// commands back to the hub.
//
// The bridge is the adapter layer between the synchronized snapshot and
// external consumers: every snapshot publication is diffed against a
// per-(datapoint, key) cache and changed values are published retained to
// junghome/state/{device_id}/{datapoint_id}; stateless button presses are
// forwarded to junghome/event/button; JSON commands consumed from
// junghome/command/{datapoint_id} are translated to coordinator command
// dispatches, converting consumer units (0-255 brightness, mireds) to the
// device's native scales (0-100, Kelvin) on the way in.
//
// A health reporter publishes a periodic status payload to junghome/health
// covering the MQTT connection, the hub stream state, and coordinator
// counters.
package bridge
