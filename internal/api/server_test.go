package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ernetas/junghome/internal/coordinator"
	"github.com/ernetas/junghome/internal/hub"
	"github.com/ernetas/junghome/internal/infrastructure/config"
	"github.com/ernetas/junghome/internal/infrastructure/logging"
)

// mockController implements Controller for testing.
type mockController struct {
	snapshot coordinator.Snapshot
	state    string
	stats    coordinator.Stats
}

func (m *mockController) CurrentSnapshot() coordinator.Snapshot { return m.snapshot }
func (m *mockController) ConnectionState() string               { return m.state }

func (m *mockController) GetStats() coordinator.Stats {
	stats := m.stats
	stats.State = m.state
	stats.Devices = len(m.snapshot.Devices)
	return stats
}

// mockConnChecker implements ConnectionChecker for testing.
type mockConnChecker struct {
	connected bool
}

func (m *mockConnChecker) IsConnected() bool { return m.connected }

func newTestServer(t *testing.T, ctrl *mockController, mqtt ConnectionChecker) *Server {
	t.Helper()

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	s, err := New(Deps{
		Config:     config.APIConfig{Host: "127.0.0.1", Port: 8090},
		Logger:     log,
		Controller: ctrl,
		MQTT:       mqtt,
		Version:    "1.0.0",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func testController() *mockController {
	return &mockController{
		state: "connected",
		snapshot: coordinator.Snapshot{
			Devices: []hub.Device{
				{
					ID:    "dev-1",
					Label: "Ceiling Light",
					Type:  hub.DeviceTypeColorLight,
					Datapoints: []hub.Datapoint{
						{
							ID:   "dp-1",
							Type: hub.DatapointTypeSwitch,
							Values: []hub.KeyValue{
								{Key: hub.KeySwitch, Value: "1"},
							},
						},
					},
				},
			},
			Groups: hub.Collection{json.RawMessage(`{"id":"grp-1"}`)},
		},
		stats: coordinator.Stats{FramesMerged: 9, CommandsSent: 3},
	}
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	return rec
}

func TestNew_Validation(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	if _, err := New(Deps{Controller: testController()}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without controller should fail")
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, testController(), &mockConnChecker{connected: true})

	rec := doRequest(t, s, http.MethodGet, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status        string `json:"status"`
		Version       string `json:"version"`
		HubState      string `json:"hub_state"`
		MQTTConnected bool   `json:"mqtt_connected"`
		Devices       int    `json:"devices"`
		Stats         struct {
			FramesMerged uint64 `json:"frames_merged"`
			CommandsSent uint64 `json:"commands_sent"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health body: %v", err)
	}

	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if body.HubState != "connected" || !body.MQTTConnected {
		t.Errorf("hub_state = %q mqtt_connected = %v", body.HubState, body.MQTTConnected)
	}
	if body.Devices != 1 || body.Stats.FramesMerged != 9 || body.Stats.CommandsSent != 3 {
		t.Errorf("counters = %+v", body)
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	ctrl := testController()
	ctrl.state = "disconnected"
	s := newTestServer(t, ctrl, &mockConnChecker{connected: true})

	rec := doRequest(t, s, http.MethodGet, "/api/v1/health")

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health body: %v", err)
	}
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
}

func TestHandleListDevices(t *testing.T) {
	s := newTestServer(t, testController(), nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/devices")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Devices []hub.Device `json:"devices"`
		Count   int          `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal devices body: %v", err)
	}
	if body.Count != 1 || len(body.Devices) != 1 {
		t.Fatalf("count = %d, devices = %d, want 1 each", body.Count, len(body.Devices))
	}
	if body.Devices[0].ID != "dev-1" || body.Devices[0].Label != "Ceiling Light" {
		t.Errorf("device = %+v", body.Devices[0])
	}
}

func TestHandleListGroups(t *testing.T) {
	s := newTestServer(t, testController(), nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/groups")

	var body struct {
		Groups []json.RawMessage `json:"groups"`
		Count  int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal groups body: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}

func TestHandleListScenes_EmptySnapshot(t *testing.T) {
	s := newTestServer(t, &mockController{state: "connected"}, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/scenes")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Scenes []json.RawMessage `json:"scenes"`
		Count  int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal scenes body: %v", err)
	}
	if body.Count != 0 || body.Scenes == nil {
		t.Errorf("empty snapshot should yield an empty array, got %s", rec.Body.String())
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, testController(), nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/health")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}

	// Client-supplied id is echoed back.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	echo := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(echo, req)
	if got := echo.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	s := newTestServer(t, testController(), nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/users")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
