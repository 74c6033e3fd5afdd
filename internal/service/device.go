package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"weather_station/internal/advisory"
	"weather_station/internal/hardware"
	"weather_station/internal/logger"
	"weather_station/internal/models"
	"weather_station/internal/repository"
	"weather_station/internal/scheduler"

	"github.com/google/uuid"
)

// ErrRestart is returned by Tick and Run once a restart is due.
var ErrRestart = errors.New("device restart requested")

// Task names.
const (
	TaskSample   = "sample"
	TaskAdvisory = "advisory"
)

const defaultReconnectBackoff = 30 * time.Second

// Status messages shown on the display and in the snapshot.
const (
	statusBooting     = "Iniciando..."
	statusLinkLost    = "Sin conexion WiFi"
	statusPortal      = "Configurar WiFi"
	statusSaved       = "WiFi guardado, reiniciando"
	statusSaveFailed  = "Error guardando WiFi"
	statusJoinFailed  = "No se pudo conectar"
	statusSensorFault = "Error de sensor"
)

// TelemetryPublisher receives a snapshot after every sample.
type TelemetryPublisher interface {
	Publish(ctx context.Context, snap models.DeviceSnapshot) error
}

// DeviceConfig tunes a Device.
type DeviceConfig struct {
	LoopInterval     time.Duration
	RestartDelay     time.Duration
	// ReconnectBackoff is the wait before retrying after a reconnect
	// attempt that left the device Disconnected. Zero means 30s.
	ReconnectBackoff time.Duration
	SamplePeriodMs   int64
	AdvisoryPeriodMs int64
	DisplayHold      time.Duration
	Policy           Policy
	Connectivity     ConnectivityOptions
}

// DeviceDeps are the collaborators a Device drives. Advisor and Telemetry
// may be nil; Clock defaults to a monotonic clock.
type DeviceDeps struct {
	Radio     hardware.Radio
	Sensors   hardware.Sensors
	Actuators hardware.Actuators
	Display   hardware.Display
	NVRAM     repository.NVRAM
	Events    repository.EventRepo
	Advisor   advisory.Advisor
	Telemetry TelemetryPublisher
	Board     *StateBoard
	Portal    *PortalGateway
	Clock     scheduler.Clock
}

// Device is one boot of the node. Everything it owns is touched only by
// the goroutine calling Boot, Tick and Run.
type Device struct {
	cfg  DeviceConfig
	deps DeviceDeps
	log  *logger.Logger

	store *CredentialStore
	conn  *ConnectivityManager
	sched *scheduler.Scheduler
	clock scheduler.Clock
	sleep func(ctx context.Context, d time.Duration) error

	reading     *models.SensorReading
	decision    *models.AdvisoryDecision
	actuators   models.ActuatorCommand
	status      string
	sensorFault bool
	lastState   models.ConnectivityState

	restartPending bool
	restartAtMs    int64

	// reconnectAtMs is the earliest tick allowed to retry after a failed
	// reconnect; zero while the last attempt succeeded.
	reconnectAtMs int64
}

// NewDevice loads the credential slots and registers the periodic tasks.
// The advisory task is only registered when an Advisor is supplied.
func NewDevice(ctx context.Context, cfg DeviceConfig, deps DeviceDeps, log *logger.Logger) (*Device, error) {
	if deps.Radio == nil || deps.Sensors == nil || deps.Actuators == nil || deps.Display == nil {
		return nil, errors.New("device: radio, sensors, actuators and display are required")
	}
	if deps.NVRAM == nil || deps.Events == nil {
		return nil, errors.New("device: nvram and event repository are required")
	}
	if deps.Board == nil {
		deps.Board = NewStateBoard()
	}
	if deps.Portal == nil {
		deps.Portal = NewPortalGateway()
	}
	if deps.Clock == nil {
		deps.Clock = scheduler.NewMonotonicClock()
	}
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = defaultReconnectBackoff
	}
	log = logger.OrNop(log)

	store := NewCredentialStore(ctx, deps.NVRAM, log)
	d := &Device{
		cfg:       cfg,
		deps:      deps,
		log:       log,
		store:     store,
		conn:      NewConnectivityManager(deps.Radio, store, cfg.Connectivity, log),
		sched:     scheduler.New(deps.Clock),
		clock:     deps.Clock,
		sleep:     sleepCtx,
		actuators: DisabledCommand(),
		status:    statusBooting,
		lastState: models.Disconnected,
	}

	if err := d.sched.Add(TaskSample, cfg.SamplePeriodMs, d.sample); err != nil {
		return nil, fmt.Errorf("register %s task: %w", TaskSample, err)
	}
	if deps.Advisor != nil {
		if err := d.sched.Add(TaskAdvisory, cfg.AdvisoryPeriodMs, d.advise); err != nil {
			return nil, fmt.Errorf("register %s task: %w", TaskAdvisory, err)
		}
	}
	return d, nil
}

// setSleeper replaces the wait used by join polling and the display hold.
func (d *Device) setSleeper(fn func(ctx context.Context, dur time.Duration) error) {
	d.sleep = fn
	d.conn.sleep = fn
}

// Boot resets the radio, turns the actuators off and runs the saved-join
// logic, falling back to the configuration portal.
func (d *Device) Boot(ctx context.Context) {
	d.conn.Reset()
	d.disableActuators(ctx)
	d.show(hardware.Frame{Title: "Estacion", Lines: []string{statusBooting}})
	d.deps.Board.PublishSlots(d.store.Summaries())
	d.publish()

	d.connect(ctx)
}

// Tick runs one pass of the control loop: connectivity poll first, then
// the work for the current state.
func (d *Device) Tick(ctx context.Context) error {
	switch d.conn.Poll() {
	case models.Disconnected:
		d.noteState(ctx)
		d.status = statusLinkLost
		d.disableActuators(ctx)
		d.publish()
		if d.clock.NowMillis() >= d.reconnectAtMs {
			d.connect(ctx)
		}
	case models.ConfigPortalActive:
		d.servePortal(ctx)
	case models.ConnectedNormal:
		d.sched.Tick(ctx)
	}

	if d.restartPending && d.clock.NowMillis() >= d.restartAtMs {
		d.log.Infow("device_restarting")
		return ErrRestart
	}
	return nil
}

// Run boots the device and ticks every LoopInterval until ctx is done or a
// restart is due.
func (d *Device) Run(ctx context.Context) error {
	defer d.deps.Portal.setActive(false)

	d.Boot(ctx)

	t := time.NewTicker(d.cfg.LoopInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			d.disableActuators(context.Background())
			return ctx.Err()
		case <-t.C:
			if err := d.Tick(ctx); err != nil {
				return err
			}
		}
	}
}

// State is the current connectivity state.
func (d *Device) State() models.ConnectivityState { return d.conn.State() }

func (d *Device) connect(ctx context.Context) {
	switch d.conn.Connect(ctx) {
	case models.ConnectedNormal:
		d.deps.Portal.setActive(false)
		d.status = "Conectado a " + d.conn.NetworkName()
		d.show(hardware.Frame{Title: "WiFi", Lines: []string{d.status}})
	case models.ConfigPortalActive:
		d.deps.Portal.setActive(true)
		d.status = statusPortal
		d.show(hardware.Frame{Title: "WiFi", Lines: []string{
			statusPortal,
			"Red: " + d.cfg.Connectivity.APName,
			"IP: " + d.conn.PortalAddr(),
		}})
	}

	if d.conn.State() == models.Disconnected {
		d.reconnectAtMs = d.clock.NowMillis() + d.cfg.ReconnectBackoff.Milliseconds()
		d.log.Warnw("reconnect_backoff", "retry_in", d.cfg.ReconnectBackoff)
	} else {
		d.reconnectAtMs = 0
	}
	d.noteState(ctx)
	d.publish()
}

// servePortal handles at most one queued submission.
func (d *Device) servePortal(ctx context.Context) {
	if d.restartPending {
		return
	}
	req, ok := d.deps.Portal.next()
	if !ok {
		return
	}

	slot, err := d.conn.JoinFromPortal(ctx, req.rec)
	switch {
	case err == nil:
		d.restartPending = true
		d.restartAtMs = d.clock.NowMillis() + d.cfg.RestartDelay.Milliseconds()
		d.status = statusSaved
		d.record(ctx, models.EventCredentials, "Credentials saved from portal", map[string]any{
			"slot":    slot.String(),
			"network": req.rec.NetworkName,
		})
		d.deps.Board.PublishSlots(d.store.Summaries())
	case errors.Is(err, ErrJoinFailed):
		d.status = statusJoinFailed
		d.record(ctx, models.EventCredentials, "Portal join failed", map[string]any{"network": req.rec.NetworkName})
	default:
		d.status = statusSaveFailed
		d.log.Errorw("portal_submission_failed", "network", req.rec.NetworkName, "err", err)
		d.record(ctx, models.EventError, "Credential save failed", map[string]any{"err": err.Error()})
	}
	req.reply <- err

	if d.restartPending {
		d.deps.Portal.setActive(false)
	}
	d.show(hardware.Frame{Title: "WiFi", Lines: []string{d.status}})
	d.publish()
}

// sample is the periodic sensor task.
func (d *Device) sample(ctx context.Context) {
	r, faulted := NormalizeReading(d.deps.Sensors.Sample(), time.Now().UTC())
	if faulted != d.sensorFault {
		d.sensorFault = faulted
		if faulted {
			d.log.Warnw("sensor_fault")
			d.record(ctx, models.EventError, "Sensor fault; values replaced with 0", nil)
		} else {
			d.log.Infow("sensor_recovered")
		}
	}
	d.reading = &r

	d.apply(ctx, d.cfg.Policy.Decide(r, d.decision))

	lines := []string{}
	if faulted {
		lines = append(lines, statusSensorFault)
	}
	if d.decision != nil {
		lines = append(lines, d.decision.Message)
	}
	d.show(hardware.Frame{Title: "Lecturas", Reading: &r, Lines: lines})

	snap := d.publish()
	if d.deps.Telemetry != nil {
		if err := d.deps.Telemetry.Publish(ctx, snap); err != nil {
			d.log.Warnw("telemetry_publish_failed", "err", err)
		}
	}
}

// advise is the periodic advisory task. Only an accepted result replaces
// the held decision.
func (d *Device) advise(ctx context.Context) {
	if d.reading == nil {
		return
	}

	res := d.deps.Advisor.Request(ctx, *d.reading)
	meta := map[string]any{"outcome": res.Outcome.String()}
	if res.Accepted() {
		dec := res.Decision
		d.decision = &dec
		d.status = dec.Message
		meta["indicator"] = dec.IndicatorColor.String()
		meta["fan_on"] = dec.FanOn
		d.record(ctx, models.EventAdvisory, "Advisory decision accepted", meta)
		d.apply(ctx, d.cfg.Policy.Decide(*d.reading, d.decision))
	} else {
		d.status = res.Diagnostic
		if res.Err != nil {
			meta["err"] = res.Err.Error()
		}
		d.record(ctx, models.EventAdvisory, "Advisory request failed", meta)
	}

	d.show(hardware.Frame{Title: "Asistente", Lines: []string{d.status}})
	d.publish()
	if d.cfg.DisplayHold > 0 {
		_ = d.sleep(ctx, d.cfg.DisplayHold)
	}
}

// apply commands the actuators and logs an event when the command changes.
func (d *Device) apply(ctx context.Context, cmd models.ActuatorCommand) {
	if err := d.deps.Actuators.Apply(cmd); err != nil {
		d.log.Errorw("actuator_apply_failed", "err", err)
		d.record(ctx, models.EventError, "Actuator command failed", map[string]any{"err": err.Error()})
		return
	}
	if cmd == d.actuators {
		return
	}
	prev := d.actuators
	d.actuators = cmd
	d.record(ctx, models.EventActuation, "Actuator command changed", map[string]any{
		"from_indicator": prev.Indicator.String(),
		"to_indicator":   cmd.Indicator.String(),
		"fan_on":         cmd.FanOn,
		"source":         cmd.Source,
	})
}

func (d *Device) disableActuators(ctx context.Context) {
	if err := d.deps.Actuators.Off(); err != nil {
		d.log.Errorw("actuator_off_failed", "err", err)
		return
	}
	if d.actuators != DisabledCommand() {
		d.actuators = DisabledCommand()
		d.record(ctx, models.EventActuation, "Actuators disabled", nil)
	}
}

func (d *Device) show(f hardware.Frame) {
	if err := d.deps.Display.Show(f); err != nil {
		d.log.Debugw("display_failed", "err", err)
	}
}

// noteState records a CONNECTIVITY event when the state moved since the
// last call.
func (d *Device) noteState(ctx context.Context) {
	s := d.conn.State()
	if s == d.lastState {
		return
	}
	meta := map[string]any{"from": d.lastState.String(), "to": s.String()}
	if n := d.conn.NetworkName(); n != "" {
		meta["network"] = n
	}
	d.lastState = s
	d.record(ctx, models.EventConnectivity, "Connectivity changed to "+s.String(), meta)
}

// record appends an event; failures are logged only.
func (d *Device) record(ctx context.Context, typ, desc string, meta map[string]any) {
	e := models.DeviceEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  time.Now().UTC(),
		Type:        typ,
		Description: desc,
	}
	if meta != nil {
		e.Metadata = meta
	}
	if err := d.deps.Events.Append(ctx, e); err != nil {
		d.log.Warnw("event_append_failed", "type", typ, "err", err)
	}
}

// publish pushes the current snapshot to the board and returns it.
func (d *Device) publish() models.DeviceSnapshot {
	snap := models.DeviceSnapshot{
		Connectivity:  d.conn.State(),
		NetworkName:   d.conn.NetworkName(),
		Reading:       d.reading,
		Actuators:     d.actuators,
		Decision:      d.decision,
		StatusMessage: d.status,
		UpdatedAt:     time.Now().UTC(),
	}
	d.deps.Board.Publish(snap)
	return cloneSnapshot(snap)
}
