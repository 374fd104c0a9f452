// Package mqtt provides MQTT client connectivity for the Jung Home bridge.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The bridge uses MQTT as its host-facing integration plane: datapoint
// state is published per device, commands are consumed from command
// topics, and stateless button presses are republished as events. The
// broker decouples the home-automation host from the hub protocol.
//
//	Home Automation Host ↔ MQTT Broker ↔ Jung Home Bridge ↔ Hub
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all datapoint commands
//	err = client.Subscribe(mqtt.Topics{}.AllDatapointCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish state
//	topic := mqtt.Topics{}.DatapointState("dev-abc", "dp-123")
//	client.Publish(topic, []byte(`{"switch":"1"}`), 1, true)
package mqtt
