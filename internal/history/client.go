// Package history talks to the storage-location tracking service, the provider
// of event records and demand history.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Kasha228/forecasting/internal/forecast"
	"github.com/Kasha228/forecasting/internal/pkg/logger"
	"github.com/Kasha228/forecasting/internal/pkg/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrInvalidResponse is returned when the provider answers with a body that is
// not the expected JSON shape.
var ErrInvalidResponse = errors.New("invalid history response")

// StatusError is a non-2xx provider response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("history provider returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("history provider returned %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

const maxErrorBody = 512

// Config configures the provider client.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

// Client is an HTTP forecast.HistorySource.
type Client struct {
	base        *url.URL
	http        *http.Client
	maxAttempts int
	limiter     *rate.Limiter
	breaker     *CircuitBreaker
	log         *zap.Logger
	sleep       func(time.Duration) <-chan time.Time
}

// NewClient validates cfg and builds a client with an instrumented transport.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("history base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("history base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}

	c := &Client{
		base: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxAttempts: attempts,
		breaker:     NewCircuitBreaker("history"),
		log:         log.Named("history"),
		sleep:       time.After,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// Breaker exposes the circuit breaker for health reporting.
func (c *Client) Breaker() *CircuitBreaker { return c.breaker }

// TransactionHistory fetches event records: GET {base}/ulRecords with the
// filter as JSON body.
func (c *Client) TransactionHistory(ctx context.Context, filter forecast.InputData) ([]forecast.EventRecord, error) {
	body, err := c.do(ctx, "transactions", http.MethodGet, c.endpoint("ulRecords", nil), filter)
	if err != nil {
		return nil, err
	}
	var records []forecast.EventRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of event records: %v", ErrInvalidResponse, err)
	}
	return records, nil
}

// DemandHistory fetches demand history by item_number, then item_id; with
// neither, the whole filter is POSTed.
func (c *Client) DemandHistory(ctx context.Context, filter forecast.InputData) (json.RawMessage, error) {
	var (
		method  = http.MethodGet
		target  string
		payload forecast.InputData
	)
	switch {
	case hasKey(filter, "item_number"):
		target = c.endpoint("", url.Values{"item_number": {queryValue(filter["item_number"])}})
	case hasKey(filter, "item_id"):
		target = c.endpoint("", url.Values{"item_id": {queryValue(filter["item_id"])}})
	default:
		method = http.MethodPost
		target = c.endpoint("", nil)
		payload = filter
		if payload == nil {
			payload = forecast.InputData{}
		}
	}
	body, err := c.do(ctx, "demand", method, target, payload)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: demand history is not JSON", ErrInvalidResponse)
	}
	return json.RawMessage(body), nil
}

// queryValue renders a filter value as written by the caller. Numbers decoded
// into float64 are printed without an exponent.
func queryValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func hasKey(m forecast.InputData, key string) bool {
	_, ok := m[key]
	return ok
}

// endpoint joins path onto the base URL. The empty path is the collection
// root and keeps its trailing slash.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, operation, method, target string, payload forecast.InputData) ([]byte, error) {
	var encoded []byte
	if payload != nil {
		var err error
		if encoded, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("encode history filter: %w", err)
		}
	}

	attempt := 0
	body, err := doWithRetryValue(ctx, c.maxAttempts, c.sleep, func() ([]byte, error) {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		var out []byte
		err := c.breaker.Execute(func() error {
			var err error
			out, err = c.roundTrip(ctx, method, target, encoded)
			return err
		})
		if err != nil && isRetryable(err) && attempt < c.maxAttempts {
			c.log.Warn("history request failed, retrying",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.String("request_id", logger.FromContext(ctx)),
				zap.Error(err),
			)
		}
		return out, err
	})

	outcome := "ok"
	switch {
	case errors.Is(err, ErrCircuitOpen):
		outcome = "circuit_open"
	case err != nil:
		outcome = "error"
	}
	metrics.HistoryRequestsTotal.WithLabelValues(operation, outcome).Inc()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logger.FromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

var _ forecast.HistorySource = (*Client)(nil)
