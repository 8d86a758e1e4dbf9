package azure_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/azadapter/pkg/azure"
)

func TestFutureCompleted(t *testing.T) {
	t.Parallel()

	f := azure.Completed("done")
	select {
	case <-f.Done():
	default:
		t.Fatal("completed future should be done")
	}

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, azure.OutcomeSuccess, f.Outcome())
}

func TestFutureFailedOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want azure.Outcome
	}{
		{err: &azure.ServiceError{Err: ManagementError{Code: "X"}}, want: azure.OutcomeServiceError},
		{err: fmt.Errorf("wrapped: %w", &azure.DecodeError{Message: "bad"}), want: azure.OutcomeDecodeError},
		{err: &azure.TransportError{Method: "GET", URI: "https://x", Err: errors.New("refused")}, want: azure.OutcomeFailure},
		{err: &azure.RequestError{Method: "GET", URI: "::", Err: errors.New("bad uri")}, want: azure.OutcomeFailure},
	}

	for _, tt := range tests {
		f := azure.Failed[int](tt.err)
		v, err := f.Await(context.Background())
		assert.Zero(t, v)
		assert.Equal(t, tt.err, err)
		assert.Equal(t, tt.want, f.Outcome(), "%T", tt.err)
	}
}

func TestFutureAwaitHonoursContext(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	e, err := azure.NewEndpoint[ManagementError](reg, "sub", "v", nsManagement, azure.WithAddress("http://127.0.0.1:1/"))
	require.NoError(t, err)

	block := make(chan struct{})
	defer close(block)
	conn := newTestConnection(t, e, blockingTransport(block))

	f := conn.Get("services", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, azure.OutcomePending, f.Outcome())
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pending", azure.OutcomePending.String())
	assert.Equal(t, "success", azure.OutcomeSuccess.String())
	assert.Equal(t, "service_error", azure.OutcomeServiceError.String())
	assert.Equal(t, "decode_error", azure.OutcomeDecodeError.String())
	assert.Equal(t, "failure", azure.OutcomeFailure.String())
}
