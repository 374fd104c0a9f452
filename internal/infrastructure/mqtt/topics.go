package mqtt

import "fmt"

// Topic prefixes for the Jung Home bridge MQTT surface.
//
// All topics use the flat scheme: junghome/{category}/{id...}
const (
	// TopicPrefix is the base for all bridge topics.
	TopicPrefix = "junghome"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "junghome/system"
)

// Topics provides builders for Jung Home MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DatapointState("dev-abc", "dp-123")
//	// Returns: "junghome/state/dev-abc/dp-123"
type Topics struct{}

// DatapointState returns the topic for a datapoint's state value.
//
// Example: junghome/state/dev-abc/dp-123
func (Topics) DatapointState(deviceID, datapointID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, deviceID, datapointID)
}

// DatapointCommand returns the topic for commands addressed to a datapoint.
//
// Example: junghome/command/dp-123
func (Topics) DatapointCommand(datapointID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, datapointID)
}

// ButtonEvent returns the topic for stateless button press events.
//
// Example: junghome/event/button
func (Topics) ButtonEvent() string {
	return fmt.Sprintf("%s/event/button", TopicPrefix)
}

// Health returns the topic for bridge health status.
//
// Example: junghome/health
func (Topics) Health() string {
	return fmt.Sprintf("%s/health", TopicPrefix)
}

// SystemStatus returns the system status topic (online/offline, LWT).
//
// Example: junghome/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDatapointCommands returns a pattern matching all datapoint commands.
//
// Pattern: junghome/command/+
func (Topics) AllDatapointCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// AllDatapointStates returns a pattern matching all datapoint state updates.
//
// Pattern: junghome/state/+/+
func (Topics) AllDatapointStates() string {
	return fmt.Sprintf("%s/state/+/+", TopicPrefix)
}

// AllTopics returns a pattern matching all Jung Home topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: junghome/#
func (Topics) AllTopics() string {
	return "junghome/#"
}
