package service

import (
	"math"
	"time"

	"weather_station/internal/hardware"
	"weather_station/internal/models"
)

// Default thresholds in degrees Celsius.
const (
	DefaultHotC  = 30.0
	DefaultColdC = 18.0
)

// Policy maps a reading to an actuator command.
type Policy struct {
	HotC  float64
	ColdC float64
}

func DefaultPolicy() Policy {
	return Policy{HotC: DefaultHotC, ColdC: DefaultColdC}
}

// Local applies the thresholds. Values equal to a threshold are normal.
func (p Policy) Local(tempC float64) models.ActuatorCommand {
	switch {
	case tempC > p.HotC:
		return models.ActuatorCommand{Indicator: models.IndicatorRed, FanOn: true, Source: models.SourceLocal}
	case tempC < p.ColdC:
		return models.ActuatorCommand{Indicator: models.IndicatorBlue, FanOn: false, Source: models.SourceLocal}
	default:
		return models.ActuatorCommand{Indicator: models.IndicatorGreen, FanOn: false, Source: models.SourceLocal}
	}
}

// Decide returns the held advisory decision when there is one, otherwise
// the local threshold command for the reading.
func (p Policy) Decide(r models.SensorReading, held *models.AdvisoryDecision) models.ActuatorCommand {
	if held != nil {
		return models.ActuatorCommand{Indicator: held.IndicatorColor, FanOn: held.FanOn, Source: models.SourceAdvisory}
	}
	return p.Local(r.TemperatureC)
}

// DisabledCommand is the all-off state used while the link is down.
func DisabledCommand() models.ActuatorCommand {
	return models.ActuatorCommand{Indicator: models.IndicatorNone, FanOn: false, Source: models.SourceDisabled}
}

// NormalizeReading replaces faulted values with 0. It reports whether any
// value was replaced.
func NormalizeReading(raw hardware.RawSample, at time.Time) (models.SensorReading, bool) {
	r := models.SensorReading{
		TemperatureC:        raw.TemperatureC,
		RelativeHumidityPct: raw.RelativeHumidityPct,
		IlluminanceLux:      raw.IlluminanceLux,
		AirQualityRaw:       raw.AirQualityRaw,
		SampledAt:           at,
	}
	faulted := false
	if math.IsNaN(r.TemperatureC) || math.IsInf(r.TemperatureC, 0) {
		r.TemperatureC, faulted = 0, true
	}
	if math.IsNaN(r.RelativeHumidityPct) || math.IsInf(r.RelativeHumidityPct, 0) || r.RelativeHumidityPct < 0 {
		r.RelativeHumidityPct, faulted = 0, true
	}
	if math.IsNaN(r.IlluminanceLux) || math.IsInf(r.IlluminanceLux, 0) || r.IlluminanceLux < 0 {
		r.IlluminanceLux, faulted = 0, true
	}
	if r.AirQualityRaw < 0 {
		r.AirQualityRaw, faulted = 0, true
	}
	return r, faulted
}
