package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDatapointValue records a numeric datapoint value.
//
// This is the primary method for recording datapoint history.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Hub device identifier
//   - datapointID: Hub datapoint identifier
//   - key: The value key within the datapoint (e.g., "brightness", "switch")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteDatapointValue("dev-abc", "dp-123", "brightness", 72)
func (c *Client) WriteDatapointValue(deviceID, datapointID, key string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"datapoint_values",
		map[string]string{
			"device_id":    deviceID,
			"datapoint_id": datapointID,
			"key":          key,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteQuantityMetric records a measured quantity from a metering socket.
//
// Parameters:
//   - deviceID: Hub device identifier
//   - quantity: The quantity label (e.g., "power", "energy")
//   - unit: The unit reported by the hub (e.g., "W", "kWh")
//   - value: The measured value
func (c *Client) WriteQuantityMetric(deviceID, quantity, unit string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"quantities",
		map[string]string{
			"device_id": deviceID,
			"quantity":  quantity,
			"unit":      unit,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
