package azure

import (
	"context"
	"errors"

	"github.com/systmms/azadapter/internal/metrics"
)

// Outcome classifies how a request finished.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeServiceError
	OutcomeDecodeError
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSuccess:
		return metrics.OutcomeSuccess
	case OutcomeServiceError:
		return metrics.OutcomeServiceError
	case OutcomeDecodeError:
		return metrics.OutcomeDecodeError
	default:
		return metrics.OutcomeFailure
	}
}

func outcomeOf(err error) Outcome {
	var se *ServiceError
	var de *DecodeError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &se):
		return OutcomeServiceError
	case errors.As(err, &de):
		return OutcomeDecodeError
	default:
		return OutcomeFailure
	}
}

// Future is the eventual result of one request. It completes exactly once.
type Future[T any] struct {
	done    chan struct{}
	value   T
	err     error
	outcome Outcome
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future that already holds v.
func Completed[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.complete(v, nil)
	return f
}

// Failed returns a future that already holds err.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.complete(zero, err)
	return f
}

func (f *Future[T]) complete(v T, err error) {
	f.value = v
	f.err = err
	f.outcome = outcomeOf(err)
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx is done. Giving up on
// the wait does not cancel the request.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Outcome reports the result class, or OutcomePending while in flight.
func (f *Future[T]) Outcome() Outcome {
	select {
	case <-f.done:
		return f.outcome
	default:
		return OutcomePending
	}
}
