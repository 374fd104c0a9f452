package bridge

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/ernetas/junghome/internal/coordinator"
	"github.com/ernetas/junghome/internal/hub"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu            sync.Mutex
	published     []mockPublish
	subscriptions []mockSubscription
	connected     bool
	handlers      map[string]func(topic string, payload []byte)
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type mockSubscription struct {
	Topic string
	QoS   byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]func(topic string, payload []byte)),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  payload,
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, mockSubscription{Topic: topic, QoS: qos})
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

// PublishedTo returns publications to a single topic.
func (m *MockMQTTClient) PublishedTo(topic string) []mockPublish {
	var out []mockPublish
	for _, p := range m.GetPublished() {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (m *MockMQTTClient) GetSubscriptions() []mockSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockSubscription(nil), m.subscriptions...)
}

func (m *MockMQTTClient) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

// MockController implements Controller for testing.
type MockController struct {
	mu          sync.Mutex
	snapshot    coordinator.Snapshot
	snapshotFns []coordinator.SnapshotFunc
	eventFns    []coordinator.EventFunc
	state       string
	stats       coordinator.Stats
	calls       []controllerCall
}

type controllerCall struct {
	Method      string
	DatapointID string
	IntArg      int
	BoolArg     bool
}

func NewMockController() *MockController {
	return &MockController{state: "connected"}
}

func (m *MockController) OnSnapshot(fn coordinator.SnapshotFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshotFns = append(m.snapshotFns, fn)
}

func (m *MockController) OnDatapointEvent(fn coordinator.EventFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventFns = append(m.eventFns, fn)
}

func (m *MockController) CurrentSnapshot() coordinator.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *MockController) ConnectionState() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MockController) SetConnectionState(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

func (m *MockController) GetStats() coordinator.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats
	stats.State = m.state
	return stats
}

func (m *MockController) TurnOnSwitch(datapointID string) {
	m.record(controllerCall{Method: "TurnOnSwitch", DatapointID: datapointID})
}

func (m *MockController) TurnOffSwitch(datapointID string) {
	m.record(controllerCall{Method: "TurnOffSwitch", DatapointID: datapointID})
}

func (m *MockController) SetBrightness(datapointID string, brightness int) {
	m.record(controllerCall{Method: "SetBrightness", DatapointID: datapointID, IntArg: brightness})
}

func (m *MockController) SetColorTemp(datapointID string, kelvin int) {
	m.record(controllerCall{Method: "SetColorTemp", DatapointID: datapointID, IntArg: kelvin})
}

func (m *MockController) SetStatusLED(datapointID string, on bool) {
	m.record(controllerCall{Method: "SetStatusLED", DatapointID: datapointID, BoolArg: on})
}

func (m *MockController) record(call controllerCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *MockController) Calls() []controllerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]controllerCall(nil), m.calls...)
}

func newTestBridge(t *testing.T) (*Bridge, *MockMQTTClient, *MockController) {
	t.Helper()

	mqttClient := NewMockMQTTClient()
	ctrl := NewMockController()

	b, err := New(Options{
		Controller: ctrl,
		MQTTClient: mqttClient,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return b, mqttClient, ctrl
}

func testSnapshot() coordinator.Snapshot {
	return coordinator.Snapshot{
		Devices: []hub.Device{
			{
				ID:    "dev-1",
				Label: "Ceiling Light",
				Type:  hub.DeviceTypeColorLight,
				Datapoints: []hub.Datapoint{
					{
						ID:   "dp-switch",
						Type: hub.DatapointTypeSwitch,
						Values: []hub.KeyValue{
							{Key: hub.KeySwitch, Value: "1"},
						},
					},
					{
						ID:   "dp-bri",
						Type: hub.DatapointTypeBrightness,
						Values: []hub.KeyValue{
							{Key: hub.KeyBrightness, Value: "60"},
						},
					},
				},
			},
			{
				ID:    "dev-2",
				Label: "Desk Socket",
				Type:  hub.DeviceTypeSocket,
				Datapoints: []hub.Datapoint{
					{
						ID:   "dp-sock",
						Type: hub.DatapointTypeSwitch,
						Values: []hub.KeyValue{
							{Key: hub.KeySwitch, Value: "0"},
						},
					},
				},
			},
		},
	}
}

// =============================================================================
// Construction and lifecycle
// =============================================================================

func TestNew_Validation(t *testing.T) {
	mqttClient := NewMockMQTTClient()
	ctrl := NewMockController()

	if _, err := New(Options{MQTTClient: mqttClient}); err == nil {
		t.Error("New() without controller should fail")
	}
	if _, err := New(Options{Controller: ctrl}); err == nil {
		t.Error("New() without MQTT client should fail")
	}
	if _, err := New(Options{Controller: ctrl, MQTTClient: mqttClient}); err != nil {
		t.Errorf("New() with full options error = %v", err)
	}
}

func TestStart_SubscribesAndRegisters(t *testing.T) {
	b, mqttClient, ctrl := newTestBridge(t)

	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer b.Stop()

	subs := mqttClient.GetSubscriptions()
	if len(subs) != 1 || subs[0].Topic != "junghome/command/+" {
		t.Errorf("subscriptions = %+v, want one on junghome/command/+", subs)
	}

	ctrl.mu.Lock()
	snapshotFns, eventFns := len(ctrl.snapshotFns), len(ctrl.eventFns)
	ctrl.mu.Unlock()
	if snapshotFns != 1 || eventFns != 1 {
		t.Errorf("registered handlers = %d snapshot, %d event, want 1 each",
			snapshotFns, eventFns)
	}

	// Starting status went out before the health loop's first report.
	health := mqttClient.PublishedTo("junghome/health")
	if len(health) == 0 {
		t.Fatal("no health publication after Start")
	}
	var msg HealthMessage
	if err := json.Unmarshal(health[0].Payload, &msg); err != nil {
		t.Fatalf("unmarshal health payload: %v", err)
	}
	if msg.Status != HealthStarting {
		t.Errorf("first health status = %q, want %q", msg.Status, HealthStarting)
	}
}

func TestStop_Idempotent(t *testing.T) {
	b, _, _ := newTestBridge(t)

	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	b.Stop()
	b.Stop() // Must not panic
}

// =============================================================================
// Snapshot projection
// =============================================================================

func TestHandleSnapshot_PublishesAllValuesOnce(t *testing.T) {
	b, mqttClient, _ := newTestBridge(t)

	b.handleSnapshot(testSnapshot())

	published := mqttClient.GetPublished()
	if len(published) != 3 {
		t.Fatalf("published %d messages, want 3", len(published))
	}

	// Every state publication is retained at QoS 1.
	for _, p := range published {
		if !p.Retained || p.QoS != 1 {
			t.Errorf("publication to %s: retained=%v qos=%d, want retained QoS 1",
				p.Topic, p.Retained, p.QoS)
		}
	}

	states := mqttClient.PublishedTo("junghome/state/dev-1/dp-bri")
	if len(states) != 1 {
		t.Fatalf("brightness publications = %d, want 1", len(states))
	}
	var msg StateMessage
	if err := json.Unmarshal(states[0].Payload, &msg); err != nil {
		t.Fatalf("unmarshal state payload: %v", err)
	}
	if msg.DeviceID != "dev-1" || msg.DatapointID != "dp-bri" ||
		msg.DatapointType != hub.DatapointTypeBrightness ||
		msg.Key != hub.KeyBrightness || msg.Value != "60" {
		t.Errorf("state message = %+v", msg)
	}
	if msg.ID == "" {
		t.Error("state message id is empty")
	}
}

func TestHandleSnapshot_UnchangedValuesNotRepublished(t *testing.T) {
	b, mqttClient, _ := newTestBridge(t)

	b.handleSnapshot(testSnapshot())
	mqttClient.ClearPublished()

	// Identical snapshot: nothing changed, nothing published.
	b.handleSnapshot(testSnapshot())
	if got := len(mqttClient.GetPublished()); got != 0 {
		t.Errorf("published %d messages for unchanged snapshot, want 0", got)
	}

	// One changed value: exactly one publication.
	snap := testSnapshot()
	snap.Devices[0].Datapoints[1].Values[0].Value = "80"
	b.handleSnapshot(snap)

	published := mqttClient.GetPublished()
	if len(published) != 1 {
		t.Fatalf("published %d messages for one change, want 1", len(published))
	}
	if published[0].Topic != "junghome/state/dev-1/dp-bri" {
		t.Errorf("publication topic = %s", published[0].Topic)
	}
}

func TestClearStateCache_ForcesRepublish(t *testing.T) {
	b, mqttClient, _ := newTestBridge(t)

	b.handleSnapshot(testSnapshot())
	mqttClient.ClearPublished()

	b.ClearStateCache()
	b.handleSnapshot(testSnapshot())

	if got := len(mqttClient.GetPublished()); got != 3 {
		t.Errorf("published %d messages after cache clear, want 3", got)
	}
}

// mockHistory implements History for testing.
type mockHistory struct {
	mu         sync.Mutex
	datapoints []historyWrite
	quantities []quantityWrite
}

type historyWrite struct {
	DeviceID    string
	DatapointID string
	Key         string
	Value       float64
}

type quantityWrite struct {
	DeviceID string
	Quantity string
	Unit     string
	Value    float64
}

func (m *mockHistory) WriteDatapointValue(deviceID, datapointID, key string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datapoints = append(m.datapoints, historyWrite{deviceID, datapointID, key, value})
}

func (m *mockHistory) WriteQuantityMetric(deviceID, quantity, unit string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quantities = append(m.quantities, quantityWrite{deviceID, quantity, unit, value})
}

func TestHandleSnapshot_RecordsHistory(t *testing.T) {
	mqttClient := NewMockMQTTClient()
	history := &mockHistory{}

	b, err := New(Options{
		Controller: NewMockController(),
		MQTTClient: mqttClient,
		History:    history,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	snap := coordinator.Snapshot{
		Devices: []hub.Device{
			{
				ID:   "dev-sock",
				Type: hub.DeviceTypeSocket,
				Datapoints: []hub.Datapoint{
					{
						ID:   "dp-bri",
						Type: hub.DatapointTypeBrightness,
						Values: []hub.KeyValue{
							{Key: hub.KeyBrightness, Value: "60"},
						},
					},
					{
						ID:   "dp-qty",
						Type: hub.DatapointTypeQuantity,
						Values: []hub.KeyValue{
							{Key: hub.KeyQuantityLabel, Value: "power"},
							{Key: hub.KeyQuantityUnit, Value: "W"},
							{Key: hub.KeyQuantityValue, Value: "42.5"},
						},
					},
				},
			},
		},
	}
	b.handleSnapshot(snap)

	history.mu.Lock()
	defer history.mu.Unlock()

	// Brightness is numeric; the quantity label and unit are not.
	if len(history.datapoints) != 1 {
		t.Fatalf("datapoint writes = %+v, want 1", history.datapoints)
	}
	if got := history.datapoints[0]; got != (historyWrite{"dev-sock", "dp-bri", hub.KeyBrightness, 60}) {
		t.Errorf("datapoint write = %+v", got)
	}

	if len(history.quantities) != 1 {
		t.Fatalf("quantity writes = %+v, want 1", history.quantities)
	}
	if got := history.quantities[0]; got != (quantityWrite{"dev-sock", "power", "W", 42.5}) {
		t.Errorf("quantity write = %+v", got)
	}
}

// =============================================================================
// Button events
// =============================================================================

func TestHandleDatapointEvent_PublishesPresses(t *testing.T) {
	b, mqttClient, _ := newTestBridge(t)

	b.handleDatapointEvent(hub.DatapointUpdate{
		ID:   "dp-rocker",
		Type: hub.DatapointTypeSwitch,
		Values: []hub.KeyValue{
			{Key: hub.KeyUpRequest, Value: "1"},
			{Key: hub.KeyDownRequest, Value: "0"},
			{Key: hub.KeyTriggerRequest, Value: "1"},
		},
	})

	events := mqttClient.PublishedTo("junghome/event/button")
	if len(events) != 2 {
		t.Fatalf("published %d button events, want 2", len(events))
	}
	if events[0].Retained {
		t.Error("button events must not be retained")
	}

	var msg ButtonEventMessage
	if err := json.Unmarshal(events[0].Payload, &msg); err != nil {
		t.Fatalf("unmarshal button event: %v", err)
	}
	if msg.DatapointID != "dp-rocker" || msg.Key != hub.KeyUpRequest {
		t.Errorf("button event = %+v", msg)
	}
}

func TestHandleDatapointEvent_IgnoresStatefulFrames(t *testing.T) {
	b, mqttClient, _ := newTestBridge(t)

	b.handleDatapointEvent(hub.DatapointUpdate{
		ID:   "dp-switch",
		Type: hub.DatapointTypeSwitch,
		Values: []hub.KeyValue{
			{Key: hub.KeySwitch, Value: "1"},
		},
	})

	if got := len(mqttClient.GetPublished()); got != 0 {
		t.Errorf("published %d messages for stateful frame, want 0", got)
	}
}

// =============================================================================
// Command routing
// =============================================================================

func TestHandleCommandMessage_Routing(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    controllerCall
	}{
		{
			name:    "on",
			payload: `{"command":"on"}`,
			want:    controllerCall{Method: "TurnOnSwitch", DatapointID: "dp-9"},
		},
		{
			name:    "off",
			payload: `{"command":"off"}`,
			want:    controllerCall{Method: "TurnOffSwitch", DatapointID: "dp-9"},
		},
		{
			name:    "brightness converts host scale to raw",
			payload: `{"command":"brightness","parameters":{"level":128}}`,
			want:    controllerCall{Method: "SetBrightness", DatapointID: "dp-9", IntArg: 50},
		},
		{
			name:    "brightness full",
			payload: `{"command":"brightness","parameters":{"level":255}}`,
			want:    controllerCall{Method: "SetBrightness", DatapointID: "dp-9", IntArg: 100},
		},
		{
			name:    "color_temp converts mireds to kelvin",
			payload: `{"command":"color_temp","parameters":{"mireds":250}}`,
			want:    controllerCall{Method: "SetColorTemp", DatapointID: "dp-9", IntArg: 4000},
		},
		{
			name:    "status_led on",
			payload: `{"command":"status_led","parameters":{"on":true}}`,
			want:    controllerCall{Method: "SetStatusLED", DatapointID: "dp-9", BoolArg: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _, ctrl := newTestBridge(t)

			b.handleCommandMessage("junghome/command/dp-9", []byte(tt.payload))

			calls := ctrl.Calls()
			if len(calls) != 1 {
				t.Fatalf("controller calls = %d, want 1", len(calls))
			}
			if calls[0] != tt.want {
				t.Errorf("call = %+v, want %+v", calls[0], tt.want)
			}
		})
	}
}

func TestHandleCommandMessage_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{
			name:    "malformed JSON",
			topic:   "junghome/command/dp-9",
			payload: `{not json`,
		},
		{
			name:    "unknown command",
			topic:   "junghome/command/dp-9",
			payload: `{"command":"explode"}`,
		},
		{
			name:    "brightness missing level",
			topic:   "junghome/command/dp-9",
			payload: `{"command":"brightness"}`,
		},
		{
			name:    "brightness level not a number",
			topic:   "junghome/command/dp-9",
			payload: `{"command":"brightness","parameters":{"level":"high"}}`,
		},
		{
			name:    "brightness level out of range",
			topic:   "junghome/command/dp-9",
			payload: `{"command":"brightness","parameters":{"level":300}}`,
		},
		{
			name:    "status_led on not a boolean",
			topic:   "junghome/command/dp-9",
			payload: `{"command":"status_led","parameters":{"on":"yes"}}`,
		},
		{
			name:    "topic without datapoint id",
			topic:   "junghome/command",
			payload: `{"command":"on"}`,
		},
		{
			name:    "topic with empty datapoint id",
			topic:   "junghome/command/",
			payload: `{"command":"on"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _, ctrl := newTestBridge(t)

			b.handleCommandMessage(tt.topic, []byte(tt.payload))

			if calls := ctrl.Calls(); len(calls) != 0 {
				t.Errorf("controller calls = %+v, want none", calls)
			}
		})
	}
}

// =============================================================================
// Metrics
// =============================================================================

func TestGetMetrics(t *testing.T) {
	b, mqttClient, ctrl := newTestBridge(t)

	ctrl.mu.Lock()
	ctrl.stats = coordinator.Stats{FramesMerged: 7, CommandsSent: 2, Devices: 3}
	ctrl.mu.Unlock()

	m := b.GetMetrics()
	if !m.MQTTConnected {
		t.Error("MQTTConnected = false, want true")
	}
	if m.HubState != "connected" {
		t.Errorf("HubState = %q, want connected", m.HubState)
	}
	if m.Stats.FramesMerged != 7 || m.Stats.Devices != 3 {
		t.Errorf("Stats = %+v", m.Stats)
	}

	mqttClient.SetConnected(false)
	if m := b.GetMetrics(); m.MQTTConnected {
		t.Error("MQTTConnected = true after disconnect, want false")
	}
}
