package hub

import "encoding/json"

// Device types reported by the hub.
const (
	// DeviceTypeOnOff is a simple on/off light actuator.
	DeviceTypeOnOff = "OnOff"

	// DeviceTypeColorLight is a dimmable light with tunable colour temperature.
	DeviceTypeColorLight = "ColorLight"

	// DeviceTypeSocket is a switchable socket, optionally with metering.
	DeviceTypeSocket = "Socket"

	// DeviceTypeRockerSwitch is a stateless wall switch with status LED.
	DeviceTypeRockerSwitch = "RockerSwitch"
)

// Datapoint types reported by the hub.
const (
	DatapointTypeSwitch           = "switch"
	DatapointTypeBrightness       = "brightness"
	DatapointTypeColorTemperature = "color_temperature"
	DatapointTypeStatusLED        = "status_led"
	DatapointTypeQuantity         = "quantity"
)

// Value keys carried in datapoint values.
const (
	KeySwitch           = "switch"
	KeyBrightness       = "brightness"
	KeyColorTemperature = "color_temperature"
	KeyStatusLED        = "status_led"
	KeyQuantityLabel    = "quantity_label"
	KeyQuantityUnit     = "quantity_unit"
	KeyQuantityValue    = "quantity_value"

	// Stateless press request keys on rocker switch datapoints.
	KeyUpRequest      = "up_request"
	KeyDownRequest    = "down_request"
	KeyTriggerRequest = "trigger_request"
)

// KeyValue is a single key/value pair inside a datapoint.
// The hub transmits all values as strings regardless of their semantic type.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Datapoint is an addressable function of a device (a switch channel,
// a brightness level, a measured quantity).
//
// Datapoint IDs are globally unique across all devices on a hub.
type Datapoint struct {
	ID     string     `json:"id"`
	Type   string     `json:"type"`
	Values []KeyValue `json:"values"`
}

// Device is a physical Jung Home device together with its datapoints.
type Device struct {
	ID         string      `json:"id"`
	Label      string      `json:"label"`
	Type       string      `json:"type"`
	Datapoints []Datapoint `json:"datapoints"`
}

// Value returns the value for a key within the datapoint.
//
// Returns:
//   - string: The value, or "" if the key is absent
//   - bool: Whether the key was found
func (dp *Datapoint) Value(key string) (string, bool) {
	for _, kv := range dp.Values {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// SetValue replaces the value for a key, appending the pair if absent.
func (dp *Datapoint) SetValue(key, value string) {
	for i, kv := range dp.Values {
		if kv.Key == key {
			dp.Values[i].Value = value
			return
		}
	}
	dp.Values = append(dp.Values, KeyValue{Key: key, Value: value})
}

// DatapointByType returns the first datapoint of the given type.
//
// Returns:
//   - *Datapoint: Pointer into the device's datapoint slice, or nil
func (d *Device) DatapointByType(dpType string) *Datapoint {
	for i := range d.Datapoints {
		if d.Datapoints[i].Type == dpType {
			return &d.Datapoints[i]
		}
	}
	return nil
}

// DatapointByID returns the datapoint with the given id, or nil.
func (d *Device) DatapointByID(id string) *Datapoint {
	for i := range d.Datapoints {
		if d.Datapoints[i].ID == id {
			return &d.Datapoints[i]
		}
	}
	return nil
}

// DeepCopy creates a fully independent copy of the datapoint.
func (dp *Datapoint) DeepCopy() Datapoint {
	clone := Datapoint{
		ID:   dp.ID,
		Type: dp.Type,
	}
	if dp.Values != nil {
		clone.Values = make([]KeyValue, len(dp.Values))
		copy(clone.Values, dp.Values)
	}
	return clone
}

// DeepCopy creates a fully independent copy of the device.
//
// Use this before handing devices to consumers so that in-place merges
// on the owned snapshot never alias published state.
func (d *Device) DeepCopy() Device {
	clone := Device{
		ID:    d.ID,
		Label: d.Label,
		Type:  d.Type,
	}
	if d.Datapoints != nil {
		clone.Datapoints = make([]Datapoint, len(d.Datapoints))
		for i := range d.Datapoints {
			clone.Datapoints[i] = d.Datapoints[i].DeepCopy()
		}
	}
	return clone
}

// CopyDevices deep-copies a device slice, preserving order.
func CopyDevices(devices []Device) []Device {
	if devices == nil {
		return nil
	}
	out := make([]Device, len(devices))
	for i := range devices {
		out[i] = devices[i].DeepCopy()
	}
	return out
}

// Collection is an opaque list of hub-defined objects (groups or scenes).
// Elements are kept as raw JSON; the hub owns their schema and the bridge
// only stores and republishes them.
type Collection []json.RawMessage

// DeepCopy creates an independent copy of the collection.
func (c Collection) DeepCopy() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	for i, raw := range c {
		cp := make(json.RawMessage, len(raw))
		copy(cp, raw)
		out[i] = cp
	}
	return out
}
