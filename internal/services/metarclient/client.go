// Package metarclient downloads METAR reports from aviationweather.gov.
package metarclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/bbernstein/ledsectional/internal/metar"
)

var (
	// ErrHTTPStatus is returned for non-2xx responses.
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrCircuitOpen is returned while the circuit breaker rejects requests.
	ErrCircuitOpen = errors.New("circuit breaker open")

	errInvalidBackoff = errors.New("invalid backoff configuration")
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 8 << 20

// BackoffConfig controls exponential backoff between attempts.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Config holds client configuration.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Backoff   BackoffConfig
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		BaseURL:   metar.DefaultBaseURL,
		Timeout:   15 * time.Second,
		UserAgent: "LED-Sectional-Go",
		Backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
}

// Client fetches raw METAR payloads.
type Client struct {
	cfg     Config
	http    *http.Client
	circuit *gobreaker.CircuitBreaker
}

// statusError carries a non-2xx status code.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrHTTPStatus, e.code)
}

func (e *statusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// retryable reports whether another attempt may succeed.
func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// New creates a client. A nil httpClient gets one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Backoff == (BackoffConfig{}) {
		cfg.Backoff = def.Backoff
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "aviationweather",
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// A 4xx is our request's fault, not the upstream's.
			var se *statusError
			if errors.As(err, &se) {
				return !se.retryable()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("🛫 METAR circuit %s: %s -> %s", name, from, to)
		},
	})

	return &Client{cfg: cfg, http: httpClient, circuit: cb}
}

// Fetch downloads the JSON report list for codes. An empty code list returns
// an empty JSON array without contacting the server.
func (c *Client) Fetch(ctx context.Context, codes []string) ([]byte, error) {
	if len(codes) == 0 {
		return []byte("[]"), nil
	}
	if c.cfg.Backoff.MaxRetries < 0 || c.cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidBackoff
	}

	url := metar.BuildURL(c.cfg.BaseURL, codes)

	var attempt int
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			return c.get(ctx, url)
		})
		if err == nil {
			body, ok := result.([]byte)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return body, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return nil, err
		}
		if attempt >= c.cfg.Backoff.MaxRetries {
			return nil, err
		}

		delay := c.cfg.Backoff.InitialInterval << attempt
		if c.cfg.Backoff.MaxInterval > 0 && delay > c.cfg.Backoff.MaxInterval {
			delay = c.cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		attempt++
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metar: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read metar response: %w", err)
	}
	// No report for any requested station comes back as 204 or an empty body.
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return []byte("[]"), nil
	}
	return body, nil
}

// State returns the circuit breaker state name.
func (c *Client) State() string {
	return c.circuit.State().String()
}
