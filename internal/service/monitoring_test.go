package service

import (
	"context"
	"testing"
	"time"

	"weather_station/internal/models"
)

func TestStateBoard_BaselineBeforePublish(t *testing.T) {
	t.Parallel()

	b := NewStateBoard()
	got, err := b.GetState(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Connectivity != models.Disconnected {
		t.Errorf("baseline connectivity = %s", got.Connectivity)
	}
	if got.Actuators != DisabledCommand() {
		t.Errorf("baseline actuators = %+v", got.Actuators)
	}
	if got.UpdatedAt.IsZero() || got.UpdatedAt.Location() != time.UTC {
		t.Errorf("baseline UpdatedAt must be set in UTC, got %v", got.UpdatedAt)
	}
}

func TestStateBoard_PublishIsCopied(t *testing.T) {
	t.Parallel()

	b := NewStateBoard()
	reading := &models.SensorReading{TemperatureC: 21}
	b.Publish(models.DeviceSnapshot{
		Connectivity: models.ConnectedNormal,
		Reading:      reading,
		UpdatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("X", -3*3600)),
	})
	reading.TemperatureC = 99

	got, err := b.GetState(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Reading == nil || got.Reading.TemperatureC != 21 {
		t.Fatalf("board shares the publisher's reading: %+v", got.Reading)
	}
	want := time.Date(2025, 1, 2, 6, 4, 5, 0, time.UTC)
	if !got.UpdatedAt.Equal(want) || got.UpdatedAt.Location() != time.UTC {
		t.Fatalf("UpdatedAt = %v, want %v", got.UpdatedAt, want)
	}

	got.Reading.TemperatureC = 50
	again, _ := b.GetState(context.Background())
	if again.Reading.TemperatureC != 21 {
		t.Fatalf("reader mutation leaked into the board")
	}
}

func TestStateBoard_SavedNetworks(t *testing.T) {
	t.Parallel()

	b := NewStateBoard()
	b.PublishSlots([]models.SlotSummary{{Slot: "A", NetworkName: "casa", LastWritten: true}, {Slot: "B"}})

	got, err := b.SavedNetworks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].NetworkName != "casa" {
		t.Fatalf("slots = %+v", got)
	}
}

func TestStateBoard_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewStateBoard().GetState(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestToUTC(t *testing.T) {
	t.Parallel()

	t.Run("zero time is preserved", func(t *testing.T) {
		t.Parallel()
		var z time.Time
		if got := toUTC(z); !got.IsZero() {
			t.Fatalf("expected zero time, got %v", got)
		}
	})

	t.Run("non-zero converted to UTC", func(t *testing.T) {
		t.Parallel()
		local := time.Date(2025, 2, 3, 10, 0, 0, 0, time.FixedZone("Z+2", 2*3600))
		got := toUTC(local)
		want := time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC)
		if got.Location() != time.UTC {
			t.Fatalf("expected UTC location, got %v", got.Location())
		}
		if !got.Equal(want) {
			t.Fatalf("want %v, got %v", want, got)
		}
	})
}
