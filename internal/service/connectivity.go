package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"weather_station/internal/hardware"
	"weather_station/internal/logger"
	"weather_station/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrJoinFailed         = errors.New("network join failed")
)

// JoinBudget bounds one join attempt: Attempts status checks, Interval apart.
type JoinBudget struct {
	Attempts int
	Interval time.Duration
}

// ConnectivityOptions configures a ConnectivityManager.
type ConnectivityOptions struct {
	Saved        JoinBudget
	Portal       JoinBudget
	APName       string
	APPassphrase string
}

// ConnectivityManager owns the radio and the connectivity state. It is not
// safe for concurrent use; the control loop is its only caller.
type ConnectivityManager struct {
	radio hardware.Radio
	store *CredentialStore
	opts  ConnectivityOptions
	sleep func(ctx context.Context, d time.Duration) error
	log   *logger.Logger

	state   models.ConnectivityState
	network string
	apAddr  string
}

func NewConnectivityManager(radio hardware.Radio, store *CredentialStore, opts ConnectivityOptions, log *logger.Logger) *ConnectivityManager {
	return &ConnectivityManager{
		radio: radio,
		store: store,
		opts:  opts,
		sleep: sleepCtx,
		log:   logger.OrNop(log),
		state: models.Disconnected,
	}
}

func (m *ConnectivityManager) State() models.ConnectivityState { return m.state }

// NetworkName is the joined network, empty unless ConnectedNormal.
func (m *ConnectivityManager) NetworkName() string { return m.network }

// PortalAddr is the access point address while the portal is up.
func (m *ConnectivityManager) PortalAddr() string { return m.apAddr }

func (m *ConnectivityManager) setState(s models.ConnectivityState) {
	if s == m.state {
		return
	}
	m.log.Infow("connectivity_state_changed", "from", m.state.String(), "to", s.String())
	m.state = s
}

// Connect tries the saved slots in order and stops at the first network
// that joins within the saved budget. If none does, it starts the access
// point and enters ConfigPortalActive.
func (m *ConnectivityManager) Connect(ctx context.Context) models.ConnectivityState {
	m.setState(models.ConnectingSaved)
	m.network = ""

	var joined string
	m.store.ForEachSlot(func(slot models.Slot, rec models.CredentialRecord) bool {
		if rec.Empty() {
			return true
		}
		m.log.Infow("saved_join_attempt", "slot", slot.String(), "network", rec.NetworkName)
		if m.join(ctx, rec, m.opts.Saved) {
			joined = rec.NetworkName
			return false
		}
		return ctx.Err() == nil
	})

	if joined != "" {
		m.network = joined
		m.setState(models.ConnectedNormal)
		return m.state
	}
	m.openPortal()
	return m.state
}

// Poll detects link loss. Only ConnectedNormal can move to Disconnected.
func (m *ConnectivityManager) Poll() models.ConnectivityState {
	if m.state == models.ConnectedNormal && !m.radio.Connected() {
		m.log.Warnw("link_lost", "network", m.network)
		m.network = ""
		m.setState(models.Disconnected)
	}
	return m.state
}

// JoinFromPortal validates rec, joins it with the portal budget and, on
// success, persists it. A join that does not complete returns ErrJoinFailed
// and leaves the stored slots untouched.
func (m *ConnectivityManager) JoinFromPortal(ctx context.Context, rec models.CredentialRecord) (models.Slot, error) {
	if err := ValidateCredentials(rec); err != nil {
		return 0, err
	}
	if !m.join(ctx, rec, m.opts.Portal) {
		return 0, ErrJoinFailed
	}
	slot, err := m.store.Save(ctx, rec)
	if err != nil {
		return slot, err
	}
	m.network = rec.NetworkName
	return slot, nil
}

// Reset drops the link and the access point, as a power cycle would.
func (m *ConnectivityManager) Reset() {
	m.radio.Disconnect()
	m.radio.StopAccessPoint()
	m.apAddr = ""
	m.network = ""
	m.setState(models.Disconnected)
}

// join begins a join and checks status up to budget.Attempts times.
func (m *ConnectivityManager) join(ctx context.Context, rec models.CredentialRecord, budget JoinBudget) bool {
	if err := m.radio.Begin(rec.NetworkName, rec.Secret); err != nil {
		m.log.Warnw("join_begin_failed", "network", rec.NetworkName, "err", err)
		return false
	}
	for attempt := 1; attempt <= budget.Attempts; attempt++ {
		if m.radio.Connected() {
			m.log.Infow("join_succeeded", "network", rec.NetworkName, "attempts", attempt)
			return true
		}
		if attempt == budget.Attempts {
			break
		}
		if err := m.sleep(ctx, budget.Interval); err != nil {
			break
		}
	}
	m.radio.Disconnect()
	m.log.Warnw("join_timed_out", "network", rec.NetworkName, "attempts", budget.Attempts)
	return false
}

func (m *ConnectivityManager) openPortal() {
	if m.apAddr == "" {
		addr, err := m.radio.StartAccessPoint(m.opts.APName, m.opts.APPassphrase)
		if err != nil {
			m.log.Errorw("access_point_failed", "ssid", m.opts.APName, "err", err)
			m.setState(models.Disconnected)
			return
		}
		m.apAddr = addr
		m.log.Infow("config_portal_started", "ssid", m.opts.APName, "addr", addr)
	}
	m.setState(models.ConfigPortalActive)
}

// ValidateCredentials enforces what a slot can hold: a non-empty network
// name, both fields within MaxCredentialLen bytes and free of NUL.
func ValidateCredentials(rec models.CredentialRecord) error {
	switch {
	case strings.TrimSpace(rec.NetworkName) == "":
		return fmt.Errorf("%w: network name is empty", ErrInvalidCredentials)
	case len(rec.NetworkName) > models.MaxCredentialLen:
		return fmt.Errorf("%w: network name exceeds %d bytes", ErrInvalidCredentials, models.MaxCredentialLen)
	case len(rec.Secret) > models.MaxCredentialLen:
		return fmt.Errorf("%w: secret exceeds %d bytes", ErrInvalidCredentials, models.MaxCredentialLen)
	case strings.ContainsRune(rec.NetworkName, 0) || strings.ContainsRune(rec.Secret, 0):
		return fmt.Errorf("%w: NUL byte not allowed", ErrInvalidCredentials)
	}
	return nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
