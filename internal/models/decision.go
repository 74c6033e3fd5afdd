package models

import (
	"fmt"
	"strings"
)

// IndicatorColor is the single status LED that is lit.
type IndicatorColor int

const (
	IndicatorNone IndicatorColor = iota
	IndicatorRed
	IndicatorGreen
	IndicatorBlue
)

func (c IndicatorColor) String() string {
	switch c {
	case IndicatorRed:
		return "RED"
	case IndicatorGreen:
		return "GREEN"
	case IndicatorBlue:
		return "BLUE"
	default:
		return "NONE"
	}
}

// MarshalText encodes the color by name so JSON and logs stay readable.
func (c IndicatorColor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (c *IndicatorColor) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "RED":
		*c = IndicatorRed
	case "GREEN":
		*c = IndicatorGreen
	case "BLUE":
		*c = IndicatorBlue
	case "NONE", "":
		*c = IndicatorNone
	default:
		return fmt.Errorf("unknown indicator color %q", string(b))
	}
	return nil
}

// AdvisoryDecision is a structured actuation recommendation.
type AdvisoryDecision struct {
	Message        string         `json:"message"`
	FanOn          bool           `json:"fan_on"`
	IndicatorColor IndicatorColor `json:"indicator_color"`
}

// ActuatorCommand is the commanded state of the indicators and the fan.
// IndicatorNone with FanOn=false is the disabled state.
type ActuatorCommand struct {
	Indicator IndicatorColor `json:"indicator"`
	FanOn     bool           `json:"fan_on"`
	Source    string         `json:"source"` // local | advisory | disabled
}

// Actuation sources.
const (
	SourceLocal    = "local"
	SourceAdvisory = "advisory"
	SourceDisabled = "disabled"
)
