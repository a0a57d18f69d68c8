package httpapi

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"garden-monitor/internal/ingest"
	"garden-monitor/internal/model"
	"garden-monitor/internal/storage"
)

const (
	historyLimit   = 12
	maxPayloadSize = 1 << 20
)

// telemetryResponse is the polling contract: the latest reading (null when
// the user has none) plus up to 12 recent readings, oldest first.
type telemetryResponse struct {
	Current *model.SensorReading  `json:"current"`
	History []model.SensorReading `json:"history"`
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getTelemetry(w, r)
	case http.MethodPost:
		s.postReading(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// getTelemetry serves GET /api/sensors?userId=<int>. It is called on a fixed
// client-side interval; staleness is a function of ingestion cadence versus
// poll cadence, not of this handler.
func (s *Server) getTelemetry(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := s.breaker.Execute(func() (any, error) {
		resp := telemetryResponse{History: []model.SensorReading{}}

		current, err := s.store.Latest(ctx, userID)
		switch {
		case err == nil:
			resp.Current = &current
		case errors.Is(err, storage.ErrNotFound):
			// No readings yet: empty history, null current, not an error.
			return resp, nil
		default:
			return nil, err
		}

		history, err := s.store.Recent(ctx, userID, historyLimit)
		if err != nil {
			return nil, err
		}
		resp.History = history
		return resp, nil
	})
	if err != nil {
		log.Printf("api: telemetry read failed for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "backend unavailable")
		return
	}

	writeJSON(w, http.StatusOK, res.(telemetryResponse))
}

// postReading serves POST /api/sensors: the direct-write equivalent of the
// MQTT path, same payload shape, same validation.
func (s *Server) postReading(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "unreadable body"})
		return
	}

	reading, err := ingest.ParsePayload(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id, err := s.store.Append(ctx, reading)
	if err != nil {
		log.Printf("api: direct append failed for user %d: %v", reading.UserID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "could not store reading"})
		return
	}

	// id as string: see model.SensorReading on identifier encoding.
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": strconv.FormatInt(id, 10)})
}

// handleIrrigation serves GET /api/sensors/irrigation?userId=<int>: the
// watering state derived from the latest soil moisture reading.
func (s *Server) handleIrrigation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	latest, err := s.store.Latest(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		// No readings yet: nothing to water.
		writeJSON(w, http.StatusOK, irrigationState{})
		return
	}
	if err != nil {
		log.Printf("api: irrigation read failed for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "backend unavailable")
		return
	}

	state := s.keeper.Evaluate(userID, latest.SoilMoisture, s.now())
	writeJSON(w, http.StatusOK, irrigationState{
		NeedsWatering: state.NeedsWatering,
		IsWatering:    state.IsWatering,
		LastWatered:   rfc3339OrEmpty(state.LastWatered),
		SoilMoisture:  latest.SoilMoisture,
	})
}

type irrigationState struct {
	NeedsWatering bool    `json:"needsWatering"`
	IsWatering    bool    `json:"isWatering"`
	LastWatered   string  `json:"lastWatered,omitempty"`
	SoilMoisture  float64 `json:"soilMoisture"`
}

func rfc3339OrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return 0, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid userId")
		return 0, false
	}
	return userID, true
}
