package service

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"

	"weather_station/internal/logger"
	"weather_station/internal/models"
	"weather_station/internal/repository"
)

// Region layout. Each field holds up to MaxCredentialLen bytes plus a NUL.
const (
	fieldLen = models.MaxCredentialLen + 1

	offSlotAName   = 0
	offSlotASecret = offSlotAName + fieldLen
	offSlotBName   = offSlotASecret + fieldLen
	offSlotBSecret = offSlotBName + fieldLen
	offMarker      = offSlotBSecret + fieldLen

	markerA byte = 'a'
	markerB byte = 'b'
)

// CredentialStore keeps two credential slots in the persistent region and
// alternates between them on every save. The marker byte names the slot
// written last; any byte other than markerA reads as markerB, so a blank
// region sends the first save to slot A.
type CredentialStore struct {
	nvram repository.NVRAM
	image []byte
	log   *logger.Logger
}

// NewCredentialStore loads the region once. A failed load leaves the store
// with a blank image; it never fails.
func NewCredentialStore(ctx context.Context, nvram repository.NVRAM, log *logger.Logger) *CredentialStore {
	s := &CredentialStore{nvram: nvram, log: logger.OrNop(log)}

	img, err := nvram.Load(ctx)
	if err != nil || len(img) != repository.RegionSize {
		if err != nil {
			s.log.Warnw("nvram_load_failed", "err", err)
		}
		img = make([]byte, repository.RegionSize)
	}
	s.image = img
	return s
}

func slotOffsets(slot models.Slot) (name, secret int) {
	if slot == models.SlotA {
		return offSlotAName, offSlotASecret
	}
	return offSlotBName, offSlotBSecret
}

// LastWritten returns the slot the marker names.
func (s *CredentialStore) LastWritten() models.Slot {
	if s.image[offMarker] == markerA {
		return models.SlotA
	}
	return models.SlotB
}

// Load returns the record in slot. Unterminated or non-UTF-8 fields read
// as empty.
func (s *CredentialStore) Load(slot models.Slot) models.CredentialRecord {
	nameOff, secretOff := slotOffsets(slot)
	name, ok := readField(s.image, nameOff)
	if !ok || name == "" {
		return models.CredentialRecord{}
	}
	secret, ok := readField(s.image, secretOff)
	if !ok {
		return models.CredentialRecord{}
	}
	return models.CredentialRecord{NetworkName: name, Secret: secret}
}

// Save writes rec into the slot not written last, flips the marker and
// commits the region. The in-memory image only changes once the commit
// succeeds. Fields longer than MaxCredentialLen are truncated.
func (s *CredentialStore) Save(ctx context.Context, rec models.CredentialRecord) (models.Slot, error) {
	target := s.LastWritten().Other()
	nameOff, secretOff := slotOffsets(target)

	next := bytes.Clone(s.image)
	writeField(next, nameOff, rec.NetworkName)
	writeField(next, secretOff, rec.Secret)
	if target == models.SlotA {
		next[offMarker] = markerA
	} else {
		next[offMarker] = markerB
	}

	if err := s.nvram.Commit(ctx, next); err != nil {
		return target, fmt.Errorf("commit slot %s: %w", target, err)
	}
	s.image = next
	s.log.Infow("credentials_saved", "slot", target.String(), "network", truncate(rec.NetworkName))
	return target, nil
}

// ForEachSlot calls fn for slot A then slot B until fn returns false.
func (s *CredentialStore) ForEachSlot(fn func(slot models.Slot, rec models.CredentialRecord) bool) {
	for _, slot := range []models.Slot{models.SlotA, models.SlotB} {
		if !fn(slot, s.Load(slot)) {
			return
		}
	}
}

// Summaries lists both slots without secrets.
func (s *CredentialStore) Summaries() []models.SlotSummary {
	last := s.LastWritten()
	out := make([]models.SlotSummary, 0, 2)
	s.ForEachSlot(func(slot models.Slot, rec models.CredentialRecord) bool {
		out = append(out, models.SlotSummary{
			Slot:        slot.String(),
			NetworkName: rec.NetworkName,
			LastWritten: slot == last && !rec.Empty(),
		})
		return true
	})
	return out
}

func readField(img []byte, off int) (string, bool) {
	field := img[off : off+fieldLen]
	n := bytes.IndexByte(field, 0)
	if n < 0 || !utf8.Valid(field[:n]) {
		return "", false
	}
	return string(field[:n]), true
}

func writeField(img []byte, off int, v string) {
	field := img[off : off+fieldLen]
	clear(field)
	copy(field[:models.MaxCredentialLen], truncate(v))
}

// truncate cuts v to MaxCredentialLen bytes without splitting a rune.
func truncate(v string) string {
	if len(v) <= models.MaxCredentialLen {
		return v
	}
	cut := models.MaxCredentialLen
	for cut > 0 && !utf8.RuneStart(v[cut]) {
		cut--
	}
	return v[:cut]
}
