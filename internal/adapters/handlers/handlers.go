// file: handlers.go
/*
 * REST Handlers
 *
 * Read-only HTTP views over the core, grounded on the teacher's
 * StatsHandler/RoomHandler: respondWithJSON/respondWithError helpers are
 * kept verbatim in spirit, now serving room listings, liveness, and
 * Prometheus metrics instead of the old ranking/game-history endpoints.
 */
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juan10024/tictactoe-test/internal/adapters/dto"
	"github.com/juan10024/tictactoe-test/internal/core/monitor"
	"github.com/juan10024/tictactoe-test/internal/core/room"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// RoomsHandler serves GET /api/rooms: the same listable-room snapshot
// carried by the updateRoomList websocket event, for non-websocket
// tooling and monitoring.
type RoomsHandler struct {
	manager *room.Manager
}

func NewRoomsHandler(manager *room.Manager) *RoomsHandler {
	return &RoomsHandler{manager: manager}
}

func (h *RoomsHandler) List(w http.ResponseWriter, r *http.Request) {
	views := h.manager.ListRooms()
	entries := make([]dto.RoomListEntry, 0, len(views))
	for _, v := range views {
		entries = append(entries, dto.RoomListEntry{
			RoomID:      v.RoomID,
			GameType:    v.GameID,
			Mode:        v.Mode,
			PlayerCount: len(v.Players),
			MaxPlayers:  v.MaxPlayers,
			HostID:      v.HostID,
		})
	}
	respondWithJSON(w, http.StatusOK, dto.UpdateRoomListPayload{
		Rooms:     entries,
		Timestamp: time.Now(),
	})
}

// HealthHandler serves GET /healthz: a bare liveness probe.
type HealthHandler struct {
	startedAt time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now()}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
	})
}

// MetricsHandler serves GET /metrics in Prometheus exposition format,
// reading from the Resource Monitor's private registry rather than the
// global default one.
func MetricsHandler(m *monitor.Monitor) http.Handler {
	return promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})
}
