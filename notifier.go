package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/sethvargo/go-retry"
)

// NotificationKind selects the confirmation flow a message belongs to. The
// kind doubles as the gateway path segment.
type NotificationKind string

const (
	KindActivation NotificationKind = "activation"
	KindReset      NotificationKind = "reset"
)

// DefaultAttemptTimeout bounds each individual delivery attempt.
const DefaultAttemptTimeout = 10 * time.Second

// GatewayNotifier delivers notifications by posting {email, link} to an
// external mail gateway. One call is one attempt; it never retries.
type GatewayNotifier struct {
	baseURL        string
	client         *http.Client
	attemptTimeout time.Duration
}

var _ Notifier = (*GatewayNotifier)(nil)

type GatewayOption func(*GatewayNotifier)

func WithGatewayClient(client *http.Client) GatewayOption {
	return func(n *GatewayNotifier) {
		if client != nil {
			n.client = client
		}
	}
}

func WithAttemptTimeout(timeout time.Duration) GatewayOption {
	return func(n *GatewayNotifier) {
		if timeout > 0 {
			n.attemptTimeout = timeout
		}
	}
}

func NewGatewayNotifier(baseURL string, opts ...GatewayOption) (*GatewayNotifier, error) {
	if baseURL == "" {
		return nil, errors.New("notification gateway URL is not configured", errors.CategoryInternal)
	}

	n := &GatewayNotifier{
		baseURL:        baseURL,
		client:         &http.Client{},
		attemptTimeout: DefaultAttemptTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}

	return n, nil
}

type gatewayPayload struct {
	Email string `json:"email"`
	Link  string `json:"link"`
}

// Deliver posts the message to <base>/<kind>. A non-2xx response counts as a
// failed attempt.
func (n *GatewayNotifier) Deliver(ctx context.Context, kind NotificationKind, email, link string) error {
	body, err := json.Marshal(gatewayPayload{Email: email, Link: link})
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode notification payload")
	}

	ctx, cancel := context.WithTimeout(ctx, n.attemptTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s", n.baseURL, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build notification request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "notification gateway request failed")
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.New("notification gateway rejected message", errors.CategoryOperation).
			WithMetadata(map[string]any{
				"status": resp.StatusCode,
				"kind":   string(kind),
			})
	}

	return nil
}

// DefaultDeliveryAttempts matches the original sender: two tries total.
const DefaultDeliveryAttempts = 2

// LinearBackoff waits attempt*unit between tries: 1 unit after the first
// failure, 2 after the second, and so on.
func LinearBackoff(unit time.Duration) func() retry.Backoff {
	return func() retry.Backoff {
		attempt := 0
		return retry.BackoffFunc(func() (time.Duration, bool) {
			attempt++
			return time.Duration(attempt) * unit, false
		})
	}
}

// RetryPolicy describes how RetryingNotifier spaces its attempts. Backoff is
// a factory because retry.Backoff values are stateful per delivery.
type RetryPolicy struct {
	Attempts int
	Backoff  func() retry.Backoff
}

// DefaultRetryPolicy is two attempts with linear one-second backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: DefaultDeliveryAttempts,
		Backoff:  LinearBackoff(time.Second),
	}
}

// RetryingNotifier wraps a Notifier with a fixed-attempt retry loop. It is
// the only component in the system with retry behavior, so callers can pick
// a compensating action on ultimate failure without duplicating backoff
// logic. Individual failures are logged; only exhaustion surfaces an error,
// carrying the last underlying failure.
type RetryingNotifier struct {
	next   Notifier
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
	logger Logger
}

var _ Notifier = (*RetryingNotifier)(nil)

type RetryingOption func(*RetryingNotifier)

func WithRetryPolicy(policy RetryPolicy) RetryingOption {
	return func(n *RetryingNotifier) {
		if policy.Attempts > 0 {
			n.policy.Attempts = policy.Attempts
		}
		if policy.Backoff != nil {
			n.policy.Backoff = policy.Backoff
		}
	}
}

func WithNotifierLogger(logger Logger) RetryingOption {
	return func(n *RetryingNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithSleeper overrides the inter-attempt wait. Tests inject a fake so the
// retry schedule is observable without real timers.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) RetryingOption {
	return func(n *RetryingNotifier) {
		if sleep != nil {
			n.sleep = sleep
		}
	}
}

func NewRetryingNotifier(next Notifier, opts ...RetryingOption) *RetryingNotifier {
	n := &RetryingNotifier{
		next:   next,
		policy: DefaultRetryPolicy(),
		sleep:  sleepContext,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}

	return n
}

// Deliver attempts delivery up to the policy's attempt budget. There is no
// wait after the final attempt.
func (n *RetryingNotifier) Deliver(ctx context.Context, kind NotificationKind, email, link string) error {
	backoff := n.policy.Backoff()

	var lastErr error
	for attempt := 1; attempt <= n.policy.Attempts; attempt++ {
		lastErr = n.next.Deliver(ctx, kind, email, link)
		if lastErr == nil {
			return nil
		}

		n.logger.Error("notification delivery failed",
			"kind", string(kind),
			"attempt", attempt,
			"attempts", n.policy.Attempts,
			"error", lastErr,
		)

		if attempt == n.policy.Attempts {
			break
		}

		delay, stop := backoff.Next()
		if stop {
			break
		}
		if err := n.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	return errors.Wrap(lastErr, errors.CategoryOperation, "notification delivery exhausted all attempts").
		WithTextCode(TextCodeDeliveryFailed).
		WithMetadata(map[string]any{
			"kind":     string(kind),
			"attempts": n.policy.Attempts,
		})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
