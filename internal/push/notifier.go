// Package push delivers best-effort wake-up notifications to an opaque
// downstream push gateway keyed by a device's stored push token.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Notifier errors.
var (
	// ErrGatewayUnavailable is returned when the gateway circuit breaker
	// is open and no request was attempted.
	ErrGatewayUnavailable = errors.New("push gateway unavailable")
)

// Notifier sends a wake-up hint to a device. Implementations must be safe
// for concurrent use; delivery is best-effort and callers are expected to
// log and swallow errors.
type Notifier interface {
	Notify(ctx context.Context, pushToken, commandType string) error
}

// NopNotifier is a Notifier that does nothing. Used when no push gateway
// is configured.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, string, string) error { return nil }

// Config holds configuration for the HTTP notifier.
type Config struct {
	// GatewayURL is the endpoint wake-up messages are posted to.
	GatewayURL string

	// Timeout is the per-request timeout. Default: 5 seconds.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts on transient failures.
	// Default: 2.
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval. Default: 100ms.
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval. Default: 2 seconds.
	MaxInterval time.Duration
}

// HTTPNotifier posts wake-up messages to a push gateway with retry and
// circuit breaker protection, so a misbehaving gateway cannot slow down
// command creation.
type HTTPNotifier struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[struct{}]
	config     Config
}

// NewHTTPNotifier creates a new HTTP notifier.
func NewHTTPNotifier(cfg Config) *HTTPNotifier {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "push-gateway",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &HTTPNotifier{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		config:     cfg,
	}
}

// wakeupMessage is the gateway payload. The data map mirrors what the
// device-side push handler expects: a type hint telling it to poll.
type wakeupMessage struct {
	To   string            `json:"to"`
	Data map[string]string `json:"data"`
}

// Notify posts a wake-up message for the given push token. Transient
// failures (network errors, 5xx) are retried with exponential backoff.
func (n *HTTPNotifier) Notify(ctx context.Context, pushToken, commandType string) error {
	body, err := json.Marshal(wakeupMessage{
		To:   pushToken,
		Data: map[string]string{"type": commandType},
	})
	if err != nil {
		return fmt.Errorf("encoding wakeup message: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = n.config.InitialInterval
	bo.MaxInterval = n.config.MaxInterval
	bo.MaxElapsedTime = 0

	operation := func() error {
		_, err := n.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, n.post(ctx, body)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrGatewayUnavailable)
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, n.config.MaxRetries), ctx))
}

func (n *HTTPNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		// Client errors (bad token, bad payload) will not get better
		// with retries.
		return backoff.Permanent(fmt.Errorf("push gateway rejected message: %d", resp.StatusCode))
	}

	return nil
}

// Ensure both notifiers implement Notifier.
var (
	_ Notifier = (*HTTPNotifier)(nil)
	_ Notifier = NopNotifier{}
)
