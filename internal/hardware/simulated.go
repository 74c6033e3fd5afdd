package hardware

import (
	"errors"
	"math"
	"math/rand"
	"sync"

	"weather_station/internal/logger"
	"weather_station/internal/models"
)

// SimRadio joins only the networks it was given. With dropAfter > 0 the link
// is reported lost after that many Connected polls of a joined network.
type SimRadio struct {
	mu        sync.Mutex
	known     map[string]string
	dropAfter int

	joined    string
	polls     int
	apRunning bool
	log       *logger.Logger
}

var ErrAccessPointRunning = errors.New("access point already running")

// NewSimRadio builds a radio that accepts the given name/secret pairs.
func NewSimRadio(known map[string]string, dropAfter int, log *logger.Logger) *SimRadio {
	k := make(map[string]string, len(known))
	for name, secret := range known {
		k[name] = secret
	}
	return &SimRadio{known: k, dropAfter: dropAfter, log: logger.OrNop(log)}
}

func (r *SimRadio) Begin(networkName, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.joined = ""
	r.polls = 0
	if want, ok := r.known[networkName]; ok && want == secret {
		r.joined = networkName
	}
	r.log.Debugw("radio_begin", "network", networkName, "accepted", r.joined != "")
	return nil
}

func (r *SimRadio) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.joined == "" {
		return false
	}
	r.polls++
	if r.dropAfter > 0 && r.polls > r.dropAfter {
		r.log.Infow("radio_link_dropped", "network", r.joined, "polls", r.polls)
		r.joined = ""
		return false
	}
	return true
}

func (r *SimRadio) Disconnect() {
	r.mu.Lock()
	r.joined = ""
	r.polls = 0
	r.mu.Unlock()
}

func (r *SimRadio) StartAccessPoint(name, passphrase string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.apRunning {
		return "", ErrAccessPointRunning
	}
	r.apRunning = true
	r.log.Infow("radio_ap_started", "ssid", name, "secured", passphrase != "")
	return "192.168.4.1", nil
}

func (r *SimRadio) StopAccessPoint() {
	r.mu.Lock()
	r.apRunning = false
	r.mu.Unlock()
}

// Simulation bounds for the sensor random walk.
const (
	simStartTempC    = 24.0
	simTempStepC     = 0.6
	simMinTempC      = 5.0
	simMaxTempC      = 40.0
	simStartHumidity = 45.0
	simStartLux      = 300.0
	simStartAirRaw   = 120
)

// SimSensors random-walks plausible readings. faultPct percent of samples
// return NaN temperature/humidity and a negative lux value.
type SimSensors struct {
	mu       sync.Mutex
	rng      *rand.Rand
	faultPct float64

	temp, humidity, lux float64
	air                 int
}

func NewSimSensors(seed int64, faultPct float64) *SimSensors {
	return &SimSensors{
		rng:      rand.New(rand.NewSource(seed)),
		faultPct: faultPct,
		temp:     simStartTempC,
		humidity: simStartHumidity,
		lux:      simStartLux,
		air:      simStartAirRaw,
	}
}

func (s *SimSensors) Sample() RawSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.temp = clamp(s.temp+(s.rng.Float64()*2-1)*simTempStepC, simMinTempC, simMaxTempC)
	s.humidity = clamp(s.humidity+(s.rng.Float64()*2-1)*2, 0, 100)
	s.lux = clamp(s.lux+(s.rng.Float64()*2-1)*40, 0, 20000)
	s.air = int(clamp(float64(s.air)+(s.rng.Float64()*2-1)*10, 0, 4095))

	if s.faultPct > 0 && s.rng.Float64()*100 < s.faultPct {
		return RawSample{
			TemperatureC:        math.NaN(),
			RelativeHumidityPct: math.NaN(),
			IlluminanceLux:      -2,
			AirQualityRaw:       s.air,
		}
	}
	return RawSample{
		TemperatureC:        s.temp,
		RelativeHumidityPct: s.humidity,
		IlluminanceLux:      s.lux,
		AirQualityRaw:       s.air,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// LogActuators remembers and logs the commanded state.
type LogActuators struct {
	mu   sync.Mutex
	last models.ActuatorCommand
	log  *logger.Logger
}

func NewLogActuators(log *logger.Logger) *LogActuators {
	return &LogActuators{log: logger.OrNop(log)}
}

func (a *LogActuators) Apply(cmd models.ActuatorCommand) error {
	a.mu.Lock()
	changed := a.last.Indicator != cmd.Indicator || a.last.FanOn != cmd.FanOn
	a.last = cmd
	a.mu.Unlock()

	if changed {
		a.log.Infow("actuators_applied", "indicator", cmd.Indicator.String(), "fan_on", cmd.FanOn, "source", cmd.Source)
	}
	return nil
}

func (a *LogActuators) Off() error {
	return a.Apply(models.ActuatorCommand{Indicator: models.IndicatorNone, Source: models.SourceDisabled})
}

// Last returns the most recent command.
func (a *LogActuators) Last() models.ActuatorCommand {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// LogDisplay logs frames at debug level.
type LogDisplay struct {
	log *logger.Logger
}

func NewLogDisplay(log *logger.Logger) *LogDisplay {
	return &LogDisplay{log: logger.OrNop(log)}
}

func (d *LogDisplay) Show(f Frame) error {
	kv := []any{"title", f.Title, "lines", f.Lines}
	if f.Reading != nil {
		kv = append(kv,
			"t_c", f.Reading.TemperatureC,
			"h_pct", f.Reading.RelativeHumidityPct,
			"lux", f.Reading.IlluminanceLux,
			"air_raw", f.Reading.AirQualityRaw,
		)
	}
	d.log.Debugw("display_frame", kv...)
	return nil
}
