package models

import "time"

// SensorReading is one normalized sample of every sensor. Faulty
// sub-readings are stored as zero.
type SensorReading struct {
	TemperatureC        float64   `json:"temperature_c"`
	RelativeHumidityPct float64   `json:"relative_humidity_pct"`
	IlluminanceLux      float64   `json:"illuminance_lux"`
	AirQualityRaw       int       `json:"air_quality_raw"`
	SampledAt           time.Time `json:"sampled_at"`
}
