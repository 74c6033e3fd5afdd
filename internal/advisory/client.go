// Package advisory asks an external text-generation endpoint for an
// actuation recommendation. Every call returns a Result; failures are
// reported through its Outcome and never as a Go error.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"weather_station/internal/logger"
	"weather_station/internal/models"
)

// Outcome classifies a round trip.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeRateLimited
	OutcomeTransportError
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "malformed"
	}
}

// Display strings for the non-accepted outcomes.
const (
	MsgFormatError    = "Error Formato IA"
	MsgRateLimited    = "Limite IA, reintente luego"
	MsgTransportError = "Error Conexion IA"
)

// Result is the outcome of one Request. Decision is authoritative only when
// Outcome is OutcomeAccepted; otherwise it holds the degraded sentinel and
// callers must keep their previous decision.
type Result struct {
	Outcome    Outcome
	Decision   models.AdvisoryDecision
	Diagnostic string
	Err        error
}

// Accepted reports whether the decision may replace the held one.
func (r Result) Accepted() bool { return r.Outcome == OutcomeAccepted }

// Degraded is the placeholder decision attached to failed requests.
func Degraded() models.AdvisoryDecision {
	return models.AdvisoryDecision{
		Message:        MsgFormatError,
		FanOn:          false,
		IndicatorColor: models.IndicatorGreen,
	}
}

// Advisor is what the control loop needs from this package.
type Advisor interface {
	Request(ctx context.Context, reading models.SensorReading) Result
}

// Tuning for the outbound transport.
const (
	dialTimeout           = 10 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 15 * time.Second
	maxResponseBytes      = 64 << 10
	maxErrorBodyBytes     = 512
)

var ErrNoAPIKey = errors.New("advisory api key is empty")

// Client talks to a generateContent-style endpoint.
type Client struct {
	endpoint *url.URL
	apiKey   string
	http     *http.Client
	log      *logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New validates the endpoint and key. timeout bounds the whole request.
func New(endpoint, apiKey string, timeout time.Duration, log *logger.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid advisory endpoint %q", endpoint)
	}

	c := &Client{
		endpoint: u,
		apiKey:   apiKey,
		http:     newHTTPClient(timeout),
		log:      logger.OrNop(log),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: dialTimeout,
			}).DialContext,
			TLSHandshakeTimeout:   tlsHandshakeTimeout,
			ResponseHeaderTimeout: responseHeaderTimeout,
			MaxIdleConns:          2,
			IdleConnTimeout:       90 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}

// requestURL adds the key as a query parameter.
func (c *Client) requestURL() string {
	u := *c.endpoint
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// Request performs one POST for the reading.
func (c *Client) Request(ctx context.Context, reading models.SensorReading) Result {
	body, err := json.Marshal(newGenerateRequest(BuildPrompt(reading)))
	if err != nil {
		return c.fail(OutcomeMalformed, MsgFormatError, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), bytes.NewReader(body))
	if err != nil {
		return c.fail(OutcomeTransportError, MsgTransportError, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error carries the full URL, key included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return c.fail(OutcomeTransportError, MsgTransportError, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return c.fail(OutcomeRateLimited, MsgRateLimited, fmt.Errorf("upstream status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return c.fail(OutcomeTransportError, MsgTransportError,
			fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.fail(OutcomeTransportError, MsgTransportError, fmt.Errorf("read response: %w", err))
	}

	text, err := ExtractText(raw)
	if err != nil {
		return c.fail(OutcomeMalformed, MsgFormatError, err)
	}
	decision, err := ParseDecision(text)
	if err != nil {
		return c.fail(OutcomeMalformed, MsgFormatError, err)
	}

	c.log.Infow("advisory_accepted",
		"fan_on", decision.FanOn,
		"indicator", decision.IndicatorColor.String(),
		"message", decision.Message,
	)
	return Result{Outcome: OutcomeAccepted, Decision: decision, Diagnostic: decision.Message}
}

func (c *Client) fail(o Outcome, diagnostic string, err error) Result {
	c.log.Warnw("advisory_failed", "outcome", o.String(), "err", err)
	return Result{
		Outcome:    o,
		Decision:   Degraded(),
		Diagnostic: diagnostic,
		Err:        err,
	}
}
