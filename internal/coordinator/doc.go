// Package coordinator owns the synchronized device snapshot and keeps
// it current against the hub.
//
// The coordinator has a single mutable copy of the device tree. It is
// seeded by a REST fetch, mutated in place by stream frames, and
// replaced wholesale by periodic REST refreshes. Consumers never see
// the owned copy: every publication is a fresh deep-copied Snapshot.
//
// # Stream handling
//
// Incoming frames are classified by hub.DecodeMessage and handled per
// kind: handshake chatter is discarded, datapoint frames are merged by
// globally unique datapoint id, and groups/scenes frames replace their
// side collection wholesale. Each accepted mutation republishes one
// snapshot synchronously — no batching, no coalescing.
//
// Datapoint frames are additionally broadcast on a secondary event
// signal before the merge, unconditionally. Stateless button presses
// arrive as datapoint frames that match no stored datapoint; the event
// signal is the only path on which they are observable.
//
// # Command dispatch
//
// Commands follow a "fire, don't guarantee" policy. With a live stream
// the command is written once; without one it is dropped and at most
// one asynchronous reconnect is scheduled. The stream loop itself never
// retries after a transport failure — reconnection is always lazy,
// driven by the next dispatch.
//
// # Echo debouncing
//
// Brightness and colour temperature writes are recorded with a
// per-(datapoint, key) marker. Hub echoes inside the window that differ
// from the written value (dimming ramps) are suppressed; an equal echo
// confirms the write and clears the marker; expiry re-opens the gate.
package coordinator
