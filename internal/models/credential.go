package models

// MaxCredentialLen is the largest network name or secret a slot can hold,
// excluding the NUL terminator.
const MaxCredentialLen = 100

// Slot identifies one of the two persistent credential locations.
type Slot int

const (
	SlotA Slot = iota
	SlotB
)

// Other returns the complementary slot.
func (s Slot) Other() Slot {
	if s == SlotA {
		return SlotB
	}
	return SlotA
}

func (s Slot) String() string {
	if s == SlotA {
		return "A"
	}
	return "B"
}

// CredentialRecord is a network name and its secret.
type CredentialRecord struct {
	NetworkName string `json:"network_name"`
	Secret      string `json:"-"`
}

// Empty reports whether the record marks an unused slot.
func (r CredentialRecord) Empty() bool { return r.NetworkName == "" }

// SlotSummary describes a slot without its secret.
type SlotSummary struct {
	Slot        string `json:"slot"`
	NetworkName string `json:"network_name"`
	LastWritten bool   `json:"last_written"`
}
