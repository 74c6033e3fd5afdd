package advisory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"weather_station/internal/models"
)

// ErrMalformed marks any response that does not yield a complete decision.
var ErrMalformed = errors.New("malformed advisory payload")

// maxMessageLen keeps decision messages short enough for the screen.
const maxMessageLen = 64

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// decisionWire mirrors the payload the model is told to emit. Pointers
// tell a missing field apart from its zero value.
type decisionWire struct {
	Message *string `json:"message"`
	Fan     *bool   `json:"fan"`
	Led     *string `json:"led"`
}

func newGenerateRequest(prompt string) generateRequest {
	return generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}
}

// ExtractText returns the concatenated text parts of the first candidate.
func ExtractText(body []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: envelope: %v", ErrMalformed, err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrMalformed)
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: empty candidate text", ErrMalformed)
	}
	return sb.String(), nil
}

// ParseDecision turns model text into a fully populated decision. It
// accepts bare JSON, JSON wrapped in a fenced code block, and JSON
// embedded in surrounding prose.
func ParseDecision(text string) (models.AdvisoryDecision, error) {
	s := stripCodeFence(strings.TrimSpace(text))

	d, err := decodeDecision(s)
	if err == nil {
		return d, nil
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return models.AdvisoryDecision{}, err
	}
	return decodeDecision(s[start : end+1])
}

func decodeDecision(s string) (models.AdvisoryDecision, error) {
	var w decisionWire
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return models.AdvisoryDecision{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var missing []string
	if w.Message == nil {
		missing = append(missing, "message")
	}
	if w.Fan == nil {
		missing = append(missing, "fan")
	}
	if w.Led == nil {
		missing = append(missing, "led")
	}
	if len(missing) > 0 {
		return models.AdvisoryDecision{}, fmt.Errorf("%w: missing %s", ErrMalformed, strings.Join(missing, ", "))
	}

	color, err := parseLed(*w.Led)
	if err != nil {
		return models.AdvisoryDecision{}, err
	}

	msg := strings.TrimSpace(*w.Message)
	if r := []rune(msg); len(r) > maxMessageLen {
		msg = string(r[:maxMessageLen])
	}
	return models.AdvisoryDecision{
		Message:        msg,
		FanOn:          *w.Fan,
		IndicatorColor: color,
	}, nil
}

func parseLed(s string) (models.IndicatorColor, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ROJO":
		return models.IndicatorRed, nil
	case "VERDE":
		return models.IndicatorGreen, nil
	case "AZUL":
		return models.IndicatorBlue, nil
	default:
		return models.IndicatorNone, fmt.Errorf("%w: unknown led %q", ErrMalformed, s)
	}
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
