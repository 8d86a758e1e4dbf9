package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	// Default registers with the global registry exactly once
	m := Default()
	require.NotNil(t, m)
	assert.Same(t, m, Default())
}

func TestRecordRequest(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordRequest("GET", OutcomeSuccess, 20*time.Millisecond)
	m.RecordRequest("GET", OutcomeSuccess, 30*time.Millisecond)
	m.RecordRequest("POST", OutcomeServiceError, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", OutcomeServiceError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("PUT", OutcomeFailure)))

	assert.Equal(t, 2, testutil.CollectAndCount(m.requestDuration))
}

func TestRecordSignatureAndPoll(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordSignature(true)
	m.RecordSignature(false)
	m.RecordSignature(true)
	m.RecordPoll(3)

	expected := `
# HELP azadapter_signatures_total Total number of shared key signatures computed
# TYPE azadapter_signatures_total counter
azadapter_signatures_total{status="failure"} 1
azadapter_signatures_total{status="success"} 2
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "azadapter_signatures_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(m.pollAttempts))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("GET", OutcomeFailure, time.Second)
		m.RecordSignature(false)
		m.RecordPoll(1)
	})
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
