package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// httpAttemptTimeout bounds a single HTTP delivery attempt (spec.md §5
// "Cancellation & timeouts").
const httpAttemptTimeout = 10 * time.Second

// maxDeliveryAttempts and the backoff formula below are spec.md §4.7's
// delivery semantics verbatim: min(2^n · 500ms, 30s), up to 5 attempts.
const maxDeliveryAttempts = 5

// fixedDeliveryBackOff implements backoff.BackOff with the exact
// schedule spec.md §4.7 mandates, rather than
// backoff.NewExponentialBackOff's defaults (which use jitter and a
// different base/multiplier).
type fixedDeliveryBackOff struct {
	attempt int
}

func (b *fixedDeliveryBackOff) NextBackOff() time.Duration {
	b.attempt++
	if b.attempt > maxDeliveryAttempts-1 {
		return backoff.Stop
	}
	d := (1 << uint(b.attempt)) * 500 * time.Millisecond
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

func (b *fixedDeliveryBackOff) Reset() { b.attempt = 0 }

// ErrDeliveryExhausted wraps every error deliverHTTP returns: retries used
// up on a retryable failure, or a non-retryable failure (a 4xx status or a
// request that cannot be built), which ends delivery after one attempt.
var ErrDeliveryExhausted = errors.New("hook delivery exhausted all retry attempts")

// onRetry is invoked once per retry attempt (not the first try), letting
// the dispatcher bump a metrics counter.
func deliverHTTP(ctx context.Context, client *http.Client, action Action, body []byte, onRetry func()) error {
	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, httpAttemptTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, action.Method, action.URL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "building hook delivery request"))
		}
		req.Header.Set("Content-Type", "application/json")
		if action.AuthorizationHeader != "" {
			req.Header.Set("Authorization", action.AuthorizationHeader)
		}

		resp, err := client.Do(req)
		if err != nil {
			return errors.Wrap(err, "hook delivery request failed")
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return errors.Errorf("hook delivery received retryable status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(errors.Errorf("hook delivery received non-retryable status %d", resp.StatusCode))
		}
		return nil
	}

	bo := &fixedDeliveryBackOff{}
	notify := func(err error, d time.Duration) {
		if onRetry != nil {
			onRetry()
		}
	}
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		return errors.Wrap(ErrDeliveryExhausted, err.Error())
	}
	return nil
}

// deliverFile appends the JSON payload followed by a newline to path,
// creating it if absent. The file is opened and closed per delivery
// (spec.md §9 "Resource scopes": no long-lived open file descriptor per
// hook) and synced before close so the append is durable.
func deliverFile(path string, body []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "opening hook delivery file")
	}
	defer f.Close()

	if _, err := f.Write(append(body, '\n')); err != nil {
		return errors.Wrap(err, "writing hook delivery file")
	}
	return f.Sync()
}

// Deliver executes action against the given occurrence. onRetry is
// called once per HTTP retry attempt (nil is fine for File/Noop). For
// ActionNoop it simply returns the occurrence via noopSink so tests and
// embedders can observe it.
func Deliver(ctx context.Context, client *http.Client, action Action, occurrence Occurrence, onRetry func(), noopSink func(Occurrence)) error {
	body, err := json.Marshal(occurrence)
	if err != nil {
		return errors.Wrap(err, "marshaling occurrence payload")
	}

	switch action.Kind {
	case ActionHttpPost:
		return deliverHTTP(ctx, client, action, body, onRetry)
	case ActionFileAppend:
		return deliverFile(action.Path, body)
	case ActionNoop:
		if noopSink != nil {
			noopSink(occurrence)
		}
		return nil
	}
	return errors.Errorf("unrecognized action kind %q", action.Kind)
}
