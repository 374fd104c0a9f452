package mqtt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ernetas/junghome/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
// Broker-backed tests require a running Mosquitto broker at 127.0.0.1:1883.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "junghome-test",
			TLS:      false,
		},
		Auth: config.MQTTAuthConfig{
			Username: "",
			Password: "",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// skipIfNoBroker skips the test when no local broker is reachable.
func skipIfNoBroker(t *testing.T) {
	t.Helper()

	conn, err := net.DialTimeout("tcp", "127.0.0.1:1883", 500*time.Millisecond)
	if err != nil {
		t.Skip("MQTT broker not available at 127.0.0.1:1883, skipping")
	}
	conn.Close()
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	skipIfNoBroker(t)
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
}

func TestClose(t *testing.T) {
	skipIfNoBroker(t)
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	err = client.Close()
	if err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if client.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	err := client.Close()
	if err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

// =============================================================================
// HealthCheck Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	skipIfNoBroker(t)
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	err = client.HealthCheck(ctx)
	if err != nil {
		t.Errorf("HealthCheck() error = %v, want nil", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	skipIfNoBroker(t)
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = client.HealthCheck(ctx)
	if err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
}

// =============================================================================
// Publish / Subscribe Validation Tests (no broker required)
// =============================================================================

func TestPublishValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{
			name:    "empty topic",
			topic:   "",
			payload: []byte("x"),
			qos:     1,
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "invalid qos",
			topic:   "junghome/state/dev/dp",
			payload: []byte("x"),
			qos:     3,
			wantErr: ErrInvalidQoS,
		},
		{
			name:    "not connected",
			topic:   "junghome/state/dev/dp",
			payload: []byte("x"),
			qos:     1,
			wantErr: ErrNotConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishOversizedPayload(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	payload := make([]byte, maxPayloadSize+1)
	err := client.Publish("junghome/state/dev/dp", payload, 1, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	handler := func(topic string, payload []byte) error { return nil }

	if err := client.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() empty topic error = %v, want ErrInvalidTopic", err)
	}

	if err := client.Subscribe("junghome/command/+", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe() qos 3 error = %v, want ErrInvalidQoS", err)
	}

	if err := client.Subscribe("junghome/command/+", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() nil handler error = %v, want ErrSubscribeFailed", err)
	}
}

func TestUnsubscribeValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() empty topic error = %v, want ErrInvalidTopic", err)
	}
}

// =============================================================================
// Roundtrip Tests (broker required)
// =============================================================================

func TestPublishSubscribeRoundtrip(t *testing.T) {
	skipIfNoBroker(t)
	cfg := testConfig()

	cfg.Broker.ClientID = "junghome-test-pub"
	pubClient, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pubClient.Close()

	cfg.Broker.ClientID = "junghome-test-sub"
	subClient, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer subClient.Close()

	topic := "junghome/test/roundtrip"
	expected := `{"switch":"1"}`

	received := make(chan string, 1)
	var once sync.Once

	err = subClient.Subscribe(topic, 1, func(t string, p []byte) error {
		once.Do(func() {
			received <- string(p)
		})
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	err = pubClient.PublishString(topic, expected, 1, false)
	if err != nil {
		t.Fatalf("PublishString() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg != expected {
			t.Errorf("Received = %q, want %q", msg, expected)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for message")
	}
}

func TestWildcardSubscription(t *testing.T) {
	skipIfNoBroker(t)
	cfg := testConfig()

	cfg.Broker.ClientID = "junghome-test-wild-pub"
	pubClient, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pubClient.Close()

	cfg.Broker.ClientID = "junghome-test-wild-sub"
	subClient, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer subClient.Close()

	pattern := "junghome/test/+/state"

	var mu sync.Mutex
	receivedTopics := make(map[string]bool)

	err = subClient.Subscribe(pattern, 1, func(topic string, payload []byte) error {
		mu.Lock()
		receivedTopics[topic] = true
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	topics := []string{
		"junghome/test/device1/state",
		"junghome/test/device2/state",
		"junghome/test/device3/state",
	}

	for _, topic := range topics {
		if err := pubClient.PublishString(topic, "on", 1, false); err != nil {
			t.Fatalf("PublishString(%s) error = %v", topic, err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		count := len(receivedTopics)
		mu.Unlock()
		if count == len(topics) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, topic := range topics {
		if !receivedTopics[topic] {
			t.Errorf("did not receive message on %s", topic)
		}
	}
}

// =============================================================================
// Topic Builder Tests
// =============================================================================

func TestTopics(t *testing.T) {
	tests := []struct {
		name     string
		build    func() string
		expected string
	}{
		{
			name:     "datapoint state",
			build:    func() string { return Topics{}.DatapointState("dev-abc", "dp-123") },
			expected: "junghome/state/dev-abc/dp-123",
		},
		{
			name:     "datapoint command",
			build:    func() string { return Topics{}.DatapointCommand("dp-123") },
			expected: "junghome/command/dp-123",
		},
		{
			name:     "button event",
			build:    func() string { return Topics{}.ButtonEvent() },
			expected: "junghome/event/button",
		},
		{
			name:     "health",
			build:    func() string { return Topics{}.Health() },
			expected: "junghome/health",
		},
		{
			name:     "system status",
			build:    func() string { return Topics{}.SystemStatus() },
			expected: "junghome/system/status",
		},
		{
			name:     "all datapoint commands",
			build:    func() string { return Topics{}.AllDatapointCommands() },
			expected: "junghome/command/+",
		},
		{
			name:     "all datapoint states",
			build:    func() string { return Topics{}.AllDatapointStates() },
			expected: "junghome/state/+/+",
		},
		{
			name:     "all topics",
			build:    func() string { return Topics{}.AllTopics() },
			expected: "junghome/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build(); got != tt.expected {
				t.Errorf("topic = %q, want %q", got, tt.expected)
			}
		})
	}
}

// =============================================================================
// Subscription Tracking Tests
// =============================================================================

func TestSubscriptionTracking(t *testing.T) {
	skipIfNoBroker(t)
	cfg := testConfig()
	cfg.Broker.ClientID = "junghome-test-sub-track"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := []string{
		"junghome/test/topic1",
		"junghome/test/topic2",
		"junghome/test/topic3",
	}

	handler := func(topic string, payload []byte) error { return nil }

	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}

	if client.SubscriptionCount() != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(topics))
	}

	for _, topic := range topics {
		if !client.HasSubscription(topic) {
			t.Errorf("HasSubscription(%s) = false, want true", topic)
		}
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}

	if client.SubscriptionCount() != len(topics)-1 {
		t.Errorf("SubscriptionCount() after unsubscribe = %d, want %d", client.SubscriptionCount(), len(topics)-1)
	}

	if client.HasSubscription(topics[0]) {
		t.Errorf("HasSubscription(%s) = true after unsubscribe", topics[0])
	}
}

// =============================================================================
// Handler Error Tests
// =============================================================================

func TestHandlerErrorLogged(t *testing.T) {
	skipIfNoBroker(t)
	cfg := testConfig()
	cfg.Broker.ClientID = "junghome-test-handler-err"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	logger := &recordingLogger{}
	client.SetLogger(logger)

	topic := "junghome/test/handler-error"

	done := make(chan struct{}, 1)
	err = client.Subscribe(topic, 1, func(t string, p []byte) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return fmt.Errorf("handler failure")
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := client.PublishString(topic, "x", 1, false); err != nil {
		t.Fatalf("PublishString() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for handler")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if logger.warnCount() > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("expected handler error to be logged as warning")
}

// recordingLogger implements Logger for testing.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}
