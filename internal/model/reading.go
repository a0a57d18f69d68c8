package model

import "time"

// SensorReading is one ingested measurement from a garden node: four
// environmental metrics scoped to the owning user. Readings are immutable
// once written; LogID is assigned by the store and is strictly increasing
// within a user's stream.
//
// LogID can exceed JavaScript's safe-integer range, so it crosses the JSON
// boundary as a string-encoded decimal integer.
type SensorReading struct {
	LogID          int64     `json:"logId,string"`
	UserID         int64     `json:"userId"`
	Temperature    float64   `json:"temperature"`
	Humidity       float64   `json:"humidity"`
	SoilMoisture   float64   `json:"soilMoisture"`
	LightIntensity float64   `json:"lightIntensity"`
	RecordedAt     time.Time `json:"recordedAt"`
}
