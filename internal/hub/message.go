package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MessageKind classifies an incoming stream frame.
type MessageKind int

const (
	// KindInvalid marks frames that cannot be interpreted: malformed JSON,
	// a top-level array, or a shape the hub is not expected to send.
	KindInvalid MessageKind = iota

	// KindHandshake marks connection-time chatter ("message"/"version"
	// frames) that carries no device state.
	KindHandshake

	// KindDatapoint marks a partial update for a single datapoint.
	KindDatapoint

	// KindCollection marks a wholesale replacement of a side collection
	// (groups or scenes).
	KindCollection
)

// String returns a human-readable kind name for logging.
func (k MessageKind) String() string {
	switch k {
	case KindHandshake:
		return "handshake"
	case KindDatapoint:
		return "datapoint"
	case KindCollection:
		return "collection"
	default:
		return "invalid"
	}
}

// Message is a decoded stream frame.
//
// Exactly one of Datapoint or Collection is populated, depending on Kind.
type Message struct {
	Kind MessageKind

	// Type is the frame's declared type ("datapoint", "groups", "scenes",
	// "message", "version").
	Type string

	// Datapoint holds the partial update for KindDatapoint frames.
	// Only the keys present on the wire are set; absent keys keep their
	// current values during merge.
	Datapoint *DatapointUpdate

	// Collection holds the replacement list for KindCollection frames.
	Collection Collection
}

// DatapointUpdate is the payload of a datapoint frame: a datapoint id
// plus the subset of fields the hub chose to send.
type DatapointUpdate struct {
	ID     string     `json:"id"`
	Type   string     `json:"type"`
	Values []KeyValue `json:"values"`
}

// envelope is the generic wire shape of a stream frame.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeMessage classifies and decodes a raw stream frame.
//
// Classification rules:
//   - Top-level JSON array → KindInvalid (the hub only sends objects)
//   - type "message" or "version" → KindHandshake
//   - object `data` → KindDatapoint (partial update)
//   - list `data` with type "groups" or "scenes" → KindCollection
//   - anything else → KindInvalid
//
// Parameters:
//   - raw: The frame payload as received from the stream
//
// Returns:
//   - Message: Decoded frame
//   - error: Wrapped ErrProtocol for invalid frames (Kind is KindInvalid)
func DecodeMessage(raw []byte) (Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return Message{Kind: KindInvalid}, fmt.Errorf("%w: top-level array frame", ErrProtocol)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Message{Kind: KindInvalid}, fmt.Errorf("%w: decoding frame: %w", ErrProtocol, err)
	}

	if env.Type == "message" || env.Type == "version" {
		return Message{Kind: KindHandshake, Type: env.Type}, nil
	}

	data := bytes.TrimSpace(env.Data)
	switch {
	case len(data) > 0 && data[0] == '{':
		var update DatapointUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			return Message{Kind: KindInvalid}, fmt.Errorf("%w: decoding datapoint data: %w", ErrProtocol, err)
		}
		return Message{Kind: KindDatapoint, Type: env.Type, Datapoint: &update}, nil

	case len(data) > 0 && data[0] == '[':
		if env.Type != "groups" && env.Type != "scenes" {
			return Message{Kind: KindInvalid, Type: env.Type},
				fmt.Errorf("%w: list data with type %q", ErrProtocol, env.Type)
		}
		var coll Collection
		if err := json.Unmarshal(data, &coll); err != nil {
			return Message{Kind: KindInvalid}, fmt.Errorf("%w: decoding collection data: %w", ErrProtocol, err)
		}
		return Message{Kind: KindCollection, Type: env.Type, Collection: coll}, nil

	default:
		return Message{Kind: KindInvalid, Type: env.Type},
			fmt.Errorf("%w: frame with no usable data", ErrProtocol)
	}
}

// CommandMessage is the wire shape of an outbound datapoint command.
//
//	{"type":"datapoint","data":{"id":"...","type":"switch","values":[{"key":"switch","value":"1"}]}}
type CommandMessage struct {
	Type string      `json:"type"`
	Data CommandData `json:"data"`
}

// CommandData is the payload of an outbound command.
type CommandData struct {
	ID     string     `json:"id"`
	Type   string     `json:"type"`
	Values []KeyValue `json:"values"`
}

// NewCommand builds a datapoint command for a single key/value write.
//
// Parameters:
//   - datapointID: The target datapoint's global id
//   - dpType: The datapoint type ("switch", "brightness", ...)
//   - key: The value key to write
//   - value: The value, already rendered as the hub's string form
func NewCommand(datapointID, dpType, key, value string) CommandMessage {
	return CommandMessage{
		Type: "datapoint",
		Data: CommandData{
			ID:     datapointID,
			Type:   dpType,
			Values: []KeyValue{{Key: key, Value: value}},
		},
	}
}
