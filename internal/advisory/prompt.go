package advisory

import (
	"fmt"
	"math"

	"weather_station/internal/models"
)

// maxPromptBytes bounds the prompt regardless of reading values.
const maxPromptBytes = 640

// Ranges the readings are clamped to before rendering. They are wider than
// anything the sensors report and keep every number a few characters long.
const (
	minPromptTempC   = -99.9
	maxPromptTempC   = 999.9
	maxPromptLux     = 999999
	maxPromptAirRaw  = 99999
	maxPromptHumPct  = 100
	minPromptReading = 0
)

const promptTemplate = `Eres el asistente de una estacion meteorologica con un ventilador y tres LEDs (ROJO, VERDE, AZUL).
Lecturas actuales: temperatura %.1f C, humedad %.0f %%, luz %.0f lux, calidad de aire (raw) %d.
Decide si el ventilador debe estar encendido y que LED encender, y escribe un consejo corto.
Responde SOLO con JSON, sin texto adicional ni bloques de codigo:
{"message": "<consejo de maximo 40 caracteres>", "fan": true o false, "led": "ROJO" o "VERDE" o "AZUL"}`

// BuildPrompt renders the reading into the instruction sent upstream.
// Out-of-range values are clamped so the JSON instruction is always sent
// in full.
func BuildPrompt(r models.SensorReading) string {
	air := r.AirQualityRaw
	if air < minPromptReading {
		air = minPromptReading
	} else if air > maxPromptAirRaw {
		air = maxPromptAirRaw
	}
	return fmt.Sprintf(promptTemplate,
		clampReading(r.TemperatureC, minPromptTempC, maxPromptTempC),
		clampReading(r.RelativeHumidityPct, minPromptReading, maxPromptHumPct),
		clampReading(r.IlluminanceLux, minPromptReading, maxPromptLux),
		air,
	)
}

// clampReading maps NaN to 0 and limits v to [lo, hi].
func clampReading(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
