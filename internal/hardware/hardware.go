// Package hardware defines the I/O collaborators the control loop drives
// (radio, sensors, actuators, display) and host stand-ins for them.
package hardware

import "weather_station/internal/models"

// Radio is the network interface. Begin starts a join and returns at once;
// callers poll Connected to learn the outcome.
type Radio interface {
	Begin(networkName, secret string) error
	Connected() bool
	Disconnect()
	StartAccessPoint(name, passphrase string) (addr string, err error)
	StopAccessPoint()
}

// RawSample is one unnormalized read of every sensor. NaN or negative
// values mean the sensor faulted.
type RawSample struct {
	TemperatureC        float64
	RelativeHumidityPct float64
	IlluminanceLux      float64
	AirQualityRaw       int
}

// Sensors reads every sensor once.
type Sensors interface {
	Sample() RawSample
}

// Actuators drives the three status indicators and the fan. Apply sets
// both in one call so a caller never commands a half-updated state.
type Actuators interface {
	Apply(cmd models.ActuatorCommand) error
	Off() error
}

// Frame is what the screen shows.
type Frame struct {
	Title   string
	Reading *models.SensorReading
	Lines   []string
}

// Display renders a frame.
type Display interface {
	Show(f Frame) error
}
