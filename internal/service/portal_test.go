package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"weather_station/internal/models"
)

var validRec = models.CredentialRecord{NetworkName: "casa", Secret: "pw"}

func TestPortalGateway_InactiveRejects(t *testing.T) {
	g := NewPortalGateway()
	if err := g.SubmitCredentials(context.Background(), validRec); !errors.Is(err, ErrPortalInactive) {
		t.Fatalf("err = %v, want ErrPortalInactive", err)
	}
}

func TestPortalGateway_ValidatesBeforeQueueing(t *testing.T) {
	g := NewPortalGateway()
	g.setActive(true)

	err := g.SubmitCredentials(context.Background(), models.CredentialRecord{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, ok := g.next(); ok {
		t.Fatalf("invalid submission must not be queued")
	}
}

// claimWithin polls next until a submission shows up.
func claimWithin(t *testing.T, g *PortalGateway, d time.Duration) *portalRequest {
	t.Helper()
	deadline := time.Now().Add(d)
	for {
		if req, ok := g.next(); ok {
			return req
		}
		if time.Now().After(deadline) {
			t.Fatalf("submission never queued")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPortalGateway_DeliversVerdict(t *testing.T) {
	g := NewPortalGateway()
	g.setActive(true)

	done := make(chan error, 1)
	go func() { done <- g.SubmitCredentials(context.Background(), validRec) }()

	req := claimWithin(t, g, 2*time.Second)
	if req.rec != validRec {
		t.Fatalf("queued record = %+v", req.rec)
	}

	want := errors.New("join failed")
	req.reply <- want
	if got := <-done; !errors.Is(got, want) {
		t.Fatalf("verdict = %v, want %v", got, want)
	}
}

func TestPortalGateway_Busy(t *testing.T) {
	g := NewPortalGateway()
	g.setActive(true)
	g.pending = &portalRequest{rec: validRec, reply: make(chan error, 1)}

	if err := g.SubmitCredentials(context.Background(), validRec); !errors.Is(err, ErrPortalBusy) {
		t.Fatalf("err = %v, want ErrPortalBusy", err)
	}
}

func TestPortalGateway_CloseAnswersPending(t *testing.T) {
	g := NewPortalGateway()
	g.setActive(true)

	pending := &portalRequest{rec: validRec, reply: make(chan error, 1)}
	g.pending = pending
	g.setActive(false)

	if err := <-pending.reply; !errors.Is(err, ErrPortalInactive) {
		t.Fatalf("pending reply = %v, want ErrPortalInactive", err)
	}
	if g.Active() {
		t.Fatalf("gateway should be inactive")
	}
	if _, ok := g.next(); ok {
		t.Fatalf("closed gateway still holds a submission")
	}
}

func TestPortalGateway_ExpiredCallerWithdrawsSubmission(t *testing.T) {
	g := NewPortalGateway()
	g.setActive(true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := g.SubmitCredentials(ctx, validRec); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}

	if req, ok := g.next(); ok {
		t.Fatalf("abandoned submission still reaches the control loop: %+v", req.rec)
	}

	// the slot is free again
	done := make(chan error, 1)
	go func() { done <- g.SubmitCredentials(context.Background(), validRec) }()
	req := claimWithin(t, g, 2*time.Second)
	req.reply <- nil
	if err := <-done; err != nil {
		t.Fatalf("follow-up submission: %v", err)
	}
}

func TestPortalGateway_ClaimedSubmissionWaitsForVerdict(t *testing.T) {
	g := NewPortalGateway()
	g.setActive(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.SubmitCredentials(ctx, validRec) }()

	req := claimWithin(t, g, 2*time.Second)
	cancel()

	select {
	case err := <-done:
		t.Fatalf("caller returned %v before the control loop answered", err)
	case <-time.After(20 * time.Millisecond):
	}

	req.reply <- nil
	if err := <-done; err != nil {
		t.Fatalf("verdict = %v, want the loop's success", err)
	}
}
