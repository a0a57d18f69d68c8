package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"garden-monitor/internal/model"
)

// ValidationError names the first offending field of an inbound payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// metricFields are checked in this order so the first offending field
// reported is deterministic.
var metricFields = []string{"temp", "hum", "soil", "light"}

// ParsePayload decodes and validates one sensor message. Required fields:
// userId (positive integer) and temp, hum, soil, light (finite numbers).
// Out-of-physical-range values are accepted; range interpretation is a
// presentation concern. RecordedAt is left zero for the store to assign.
func ParsePayload(payload []byte) (model.SensorReading, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return model.SensorReading{}, &ValidationError{Field: "payload", Reason: "not a JSON object"}
	}

	userID, err := intField(raw, "userId")
	if err != nil {
		return model.SensorReading{}, err
	}

	var r model.SensorReading
	r.UserID = userID
	for _, field := range metricFields {
		v, err := numberField(raw, field)
		if err != nil {
			return model.SensorReading{}, err
		}
		switch field {
		case "temp":
			r.Temperature = v
		case "hum":
			r.Humidity = v
		case "soil":
			r.SoilMoisture = v
		case "light":
			r.LightIntensity = v
		}
	}
	return r, nil
}

func intField(raw map[string]any, field string) (int64, error) {
	v, ok := raw[field]
	if !ok {
		return 0, &ValidationError{Field: field, Reason: "missing"}
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, &ValidationError{Field: field, Reason: "not a number"}
	}
	n, err := num.Int64()
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "not an integer"}
	}
	if n <= 0 {
		return 0, &ValidationError{Field: field, Reason: "must be positive"}
	}
	return n, nil
}

func numberField(raw map[string]any, field string) (float64, error) {
	v, ok := raw[field]
	if !ok {
		return 0, &ValidationError{Field: field, Reason: "missing"}
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, &ValidationError{Field: field, Reason: "not a number"}
	}
	f, err := num.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ValidationError{Field: field, Reason: "not a finite number"}
	}
	return f, nil
}
