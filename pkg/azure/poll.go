package azure

import (
	"context"
	"errors"
	"fmt"
	"time"

	dserrors "github.com/systmms/azadapter/internal/errors"
	"github.com/systmms/azadapter/pkg/canonical"
)

// ErrPollExhausted is returned when a poll runs out of attempts.
var ErrPollExhausted = errors.New("poll retries exhausted")

// Poll repeats GetAs[T] on path until done accepts the result, waiting
// interval between attempts. It makes at most Settings.PollRetries
// attempts (at least one) and returns the last result with
// ErrPollExhausted when done never accepts. Transient transport failures
// (timeouts, resets, throttling) use up an attempt; any other request
// error ends the poll immediately. A nil done accepts the first result.
func Poll[T any](ctx context.Context, c *Connection, path string, params *canonical.QueryParams, interval time.Duration, done func(T) bool) (T, error) {
	attempts := c.settings.PollRetries
	if attempts < 1 {
		attempts = 1
	}
	if done == nil {
		done = func(T) bool { return true }
	}

	var last T
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := GetAs[T](c, path, params).Await(ctx)
		switch {
		case err == nil:
			last = v
			if done(v) {
				c.metrics.RecordPoll(attempt)
				return v, nil
			}
			c.logger.Debug("poll %s: attempt %d of %d not complete", path, attempt, attempts)
		case transient(err) && attempt < attempts:
			c.logger.Warn("poll %s: attempt %d of %d failed: %v", path, attempt, attempts, err)
		default:
			return v, err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(interval):
		}
	}

	return last, fmt.Errorf("%w: %s after %d attempts", ErrPollExhausted, path, attempts)
}

func transient(err error) bool {
	var transport *TransportError
	return errors.As(err, &transport) && dserrors.IsRetryable(err)
}
