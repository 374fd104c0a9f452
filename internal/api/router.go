package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ernetas/junghome/internal/hub"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	// API v1 routes (read-only; commands flow over MQTT)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/devices", s.handleListDevices)
		r.Get("/groups", s.handleListGroups)
		r.Get("/scenes", s.handleListScenes)
	})

	return r
}

// handleHealth returns bridge health: hub stream state, MQTT connectivity,
// and coordinator counters.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.ctrl.GetStats()

	mqttConnected := false
	if s.mqtt != nil {
		mqttConnected = s.mqtt.IsConnected()
	}

	status := "ok"
	if stats.State != "connected" || !mqttConnected {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"version":        s.version,
		"hub_state":      stats.State,
		"mqtt_connected": mqttConnected,
		"devices":        stats.Devices,
		"stats": map[string]any{
			"frames_merged":    stats.FramesMerged,
			"frames_discarded": stats.FramesDiscarded,
			"frames_invalid":   stats.FramesInvalid,
			"commands_sent":    stats.CommandsSent,
			"commands_dropped": stats.CommandsDropped,
			"refreshes":        stats.Refreshes,
		},
	})
}

// handleListDevices returns the devices from the current snapshot.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	snap := s.ctrl.CurrentSnapshot()

	devices := snap.Devices
	if devices == nil {
		devices = []hub.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleListGroups returns the hub-defined groups from the current snapshot.
func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	snap := s.ctrl.CurrentSnapshot()

	groups := snap.Groups
	if groups == nil {
		groups = hub.Collection{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups, "count": len(groups)})
}

// handleListScenes returns the hub-defined scenes from the current snapshot.
func (s *Server) handleListScenes(w http.ResponseWriter, _ *http.Request) {
	snap := s.ctrl.CurrentSnapshot()

	scenes := snap.Scenes
	if scenes == nil {
		scenes = hub.Collection{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenes": scenes, "count": len(scenes)})
}
