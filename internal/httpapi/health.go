package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// healthHandler reports the state of the two external dependencies: the
// MQTT connection and the sensor store backend.
type healthHandler struct {
	mqtt mqtt.Client
	db   *sql.DB
}

func NewHealthHandler(m mqtt.Client, db *sql.DB) http.Handler {
	return &healthHandler{mqtt: m, db: db}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type status struct {
		Status        string `json:"status"`
		MQTTConnected bool   `json:"mqtt_connected"`
		StoreOK       bool   `json:"store_ok"`
	}

	st := status{
		MQTTConnected: h.mqtt != nil && h.mqtt.IsConnectionOpen(),
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		st.StoreOK = h.db.PingContext(ctx) == nil
		cancel()
	}

	switch {
	case st.MQTTConnected && st.StoreOK:
		st.Status = "ok"
	case st.MQTTConnected || st.StoreOK:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}

	code := http.StatusOK
	if st.Status == "down" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, st)
}
