package service

import (
	"context"
	"errors"
	"sync"

	"weather_station/internal/models"
)

var (
	ErrPortalInactive = errors.New("configuration portal is not active")
	ErrPortalBusy     = errors.New("configuration portal is busy")
)

type portalRequest struct {
	rec   models.CredentialRecord
	reply chan error
}

// PortalGateway carries credential submissions from HTTP handlers to the
// control loop. It holds at most one submission and outlives any single
// Device so the server can keep one reference across restarts.
//
// A submission is either still pending, and can be withdrawn by its
// caller, or claimed by the control loop, after which the loop's verdict
// is the only answer the caller gets.
type PortalGateway struct {
	mu      sync.Mutex
	active  bool
	pending *portalRequest
}

func NewPortalGateway() *PortalGateway {
	return &PortalGateway{}
}

// Active reports whether submissions are being accepted.
func (g *PortalGateway) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// SubmitCredentials hands rec to the control loop and waits for its
// verdict. If ctx ends before the loop has picked rec up, the submission
// is withdrawn and never joined or saved. Once picked up it runs to
// completion, so the returned error always matches what happened to the
// stored credentials.
func (g *PortalGateway) SubmitCredentials(ctx context.Context, rec models.CredentialRecord) error {
	if err := ValidateCredentials(rec); err != nil {
		return err
	}

	req := &portalRequest{rec: rec, reply: make(chan error, 1)}

	g.mu.Lock()
	switch {
	case !g.active:
		g.mu.Unlock()
		return ErrPortalInactive
	case g.pending != nil:
		g.mu.Unlock()
		return ErrPortalBusy
	}
	g.pending = req
	g.mu.Unlock()

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
	}

	g.mu.Lock()
	if g.pending == req {
		g.pending = nil
		g.mu.Unlock()
		return ctx.Err()
	}
	g.mu.Unlock()

	// Claimed by the control loop or answered by setActive(false).
	return <-req.reply
}

// setActive opens or closes the gateway. Closing it answers a pending
// submission with ErrPortalInactive.
func (g *PortalGateway) setActive(active bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.active = active
	if active || g.pending == nil {
		return
	}
	g.pending.reply <- ErrPortalInactive
	g.pending = nil
}

// next claims the pending submission without blocking. The claimed
// request must be answered on its reply channel.
func (g *PortalGateway) next() (*portalRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	req := g.pending
	g.pending = nil
	return req, req != nil
}
