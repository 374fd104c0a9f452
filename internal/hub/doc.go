// Package hub implements the transport layer and data model for the
// Jung Home hub's local API.
//
// This package manages:
//   - The device/datapoint data model shared across the application
//   - REST snapshot fetches (GET /api/junghome/functions)
//   - The WebSocket event stream (wss://{host}/ws)
//   - Frame classification into a tagged union (handshake, datapoint,
//     collection, invalid)
//   - Outbound command message construction
//
// # Data Model
//
// The hub reports devices as an ordered list, each carrying datapoints
// with string key/value pairs. Datapoint IDs are globally unique across
// a hub, which is what allows stream updates to be addressed by
// datapoint id alone.
//
// # Security
//
// The hub serves HTTPS/WSS with a self-signed certificate on the local
// network, so certificate verification is disabled. Authentication is a
// static token in the `token` header on both transports.
//
// # Usage
//
//	client := hub.NewClient("192.168.1.50", token)
//	devices, err := client.FetchDevices(ctx)
//
//	stream, err := hub.DialStream(ctx, "192.168.1.50", token)
//	for {
//	    raw, err := stream.Read()
//	    if err != nil {
//	        break
//	    }
//	    msg, err := hub.DecodeMessage(raw)
//	    ...
//	}
package hub
