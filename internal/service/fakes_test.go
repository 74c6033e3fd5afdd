package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"weather_station/internal/hardware"
	"weather_station/internal/models"
	"weather_station/internal/repository"
)

// memNVRAM is an in-memory persistent region.
type memNVRAM struct {
	mu        sync.Mutex
	image     []byte
	loadErr   error
	commitErr error
	commits   int
}

func newMemNVRAM() *memNVRAM {
	return &memNVRAM{image: make([]byte, repository.RegionSize)}
}

func (n *memNVRAM) Load(ctx context.Context) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.loadErr != nil {
		return nil, n.loadErr
	}
	out := make([]byte, len(n.image))
	copy(out, n.image)
	return out, nil
}

func (n *memNVRAM) Commit(ctx context.Context, image []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.commitErr != nil {
		return n.commitErr
	}
	if len(image) != repository.RegionSize {
		return errors.New("bad image size")
	}
	n.image = append([]byte(nil), image...)
	n.commits++
	return nil
}

// fakeRadio joins networks listed in known. pollsToJoin delays success by
// that many Connected calls after Begin.
type fakeRadio struct {
	known       map[string]string
	pollsToJoin int
	beginErr    error
	apErr       error

	begins    []string
	joined    string
	pending   string
	polls     int
	apStarted int
	apRunning bool
}

func (r *fakeRadio) Begin(name, secret string) error {
	r.begins = append(r.begins, name)
	if r.beginErr != nil {
		return r.beginErr
	}
	r.joined, r.pending, r.polls = "", "", 0
	if want, ok := r.known[name]; ok && want == secret {
		r.pending = name
	}
	return nil
}

func (r *fakeRadio) Connected() bool {
	if r.joined != "" {
		return true
	}
	if r.pending == "" {
		return false
	}
	r.polls++
	if r.polls > r.pollsToJoin {
		r.joined, r.pending = r.pending, ""
		return true
	}
	return false
}

func (r *fakeRadio) Disconnect() { r.joined, r.pending = "", "" }

// drop simulates link loss.
func (r *fakeRadio) drop() { r.joined = "" }

func (r *fakeRadio) StartAccessPoint(name, pass string) (string, error) {
	if r.apErr != nil {
		return "", r.apErr
	}
	r.apStarted++
	r.apRunning = true
	return "192.168.4.1", nil
}

func (r *fakeRadio) StopAccessPoint() { r.apRunning = false }

type fakeSensors struct {
	next    hardware.RawSample
	samples int
}

func (s *fakeSensors) Sample() hardware.RawSample {
	s.samples++
	return s.next
}

type fakeActuators struct {
	applied []models.ActuatorCommand
	offs    int
	err     error
}

func (a *fakeActuators) Apply(cmd models.ActuatorCommand) error {
	if a.err != nil {
		return a.err
	}
	a.applied = append(a.applied, cmd)
	return nil
}

func (a *fakeActuators) Off() error {
	a.offs++
	return a.Apply(DisabledCommand())
}

func (a *fakeActuators) last() models.ActuatorCommand {
	if len(a.applied) == 0 {
		return models.ActuatorCommand{}
	}
	return a.applied[len(a.applied)-1]
}

type fakeDisplay struct {
	frames []hardware.Frame
}

func (d *fakeDisplay) Show(f hardware.Frame) error {
	d.frames = append(d.frames, f)
	return nil
}

// memEventRepo keeps appended events in memory.
type memEventRepo struct {
	mu     sync.Mutex
	events []models.DeviceEvent
}

func (r *memEventRepo) Append(ctx context.Context, e models.DeviceEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *memEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.DeviceEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DeviceEvent
	for _, e := range r.events {
		if typ == "" || e.Type == typ {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memEventRepo) count(typ string) int {
	evs, _ := r.List(context.Background(), time.Time{}, time.Time{}, typ)
	return len(evs)
}

// noSleep skips waits.
func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }
