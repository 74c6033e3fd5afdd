package models

import "time"

// ConnectivityState is the device's operating mode.
type ConnectivityState int

const (
	Disconnected ConnectivityState = iota
	ConnectingSaved
	ConnectedNormal
	ConfigPortalActive
)

func (s ConnectivityState) String() string {
	switch s {
	case ConnectingSaved:
		return "CONNECTING_SAVED"
	case ConnectedNormal:
		return "CONNECTED_NORMAL"
	case ConfigPortalActive:
		return "CONFIG_PORTAL_ACTIVE"
	default:
		return "DISCONNECTED"
	}
}

// MarshalText encodes the state by name.
func (s ConnectivityState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *ConnectivityState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "CONNECTING_SAVED":
		*s = ConnectingSaved
	case "CONNECTED_NORMAL":
		*s = ConnectedNormal
	case "CONFIG_PORTAL_ACTIVE":
		*s = ConfigPortalActive
	default:
		*s = Disconnected
	}
	return nil
}

// DeviceSnapshot is the externally visible state of the node.
type DeviceSnapshot struct {
	Connectivity  ConnectivityState `json:"connectivity"`
	NetworkName   string            `json:"network_name,omitempty"`
	Reading       *SensorReading    `json:"reading,omitempty"`
	Actuators     ActuatorCommand   `json:"actuators"`
	Decision      *AdvisoryDecision `json:"decision,omitempty"`
	StatusMessage string            `json:"status_message,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
