package service

import (
	"context"
	"sync"
	"time"

	"weather_station/internal/models"
)

// StateBoard holds the latest snapshot the control loop published. Readers
// get copies.
type StateBoard struct {
	mu        sync.RWMutex
	snap      models.DeviceSnapshot
	slots     []models.SlotSummary
	published bool
}

func NewStateBoard() *StateBoard {
	return &StateBoard{}
}

// Publish replaces the snapshot.
func (b *StateBoard) Publish(s models.DeviceSnapshot) {
	s = cloneSnapshot(s)
	b.mu.Lock()
	b.snap = s
	b.published = true
	b.mu.Unlock()
}

// PublishSlots replaces the saved network summaries.
func (b *StateBoard) PublishSlots(slots []models.SlotSummary) {
	cp := append([]models.SlotSummary(nil), slots...)
	b.mu.Lock()
	b.slots = cp
	b.mu.Unlock()
}

// GetState returns the latest snapshot, or a disconnected baseline before
// the first publish.
func (b *StateBoard) GetState(ctx context.Context) (models.DeviceSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.DeviceSnapshot{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.published {
		return baselineSnapshot(), nil
	}
	s := cloneSnapshot(b.snap)
	s.UpdatedAt = toUTC(s.UpdatedAt)
	return s, nil
}

// SavedNetworks returns the slot summaries, secrets excluded.
func (b *StateBoard) SavedNetworks(ctx context.Context) ([]models.SlotSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.SlotSummary(nil), b.slots...), nil
}

func baselineSnapshot() models.DeviceSnapshot {
	return models.DeviceSnapshot{
		Connectivity: models.Disconnected,
		Actuators:    DisabledCommand(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func cloneSnapshot(s models.DeviceSnapshot) models.DeviceSnapshot {
	if s.Reading != nil {
		r := *s.Reading
		s.Reading = &r
	}
	if s.Decision != nil {
		d := *s.Decision
		s.Decision = &d
	}
	return s
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
