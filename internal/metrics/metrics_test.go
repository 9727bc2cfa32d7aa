package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncOTPIssued("demat-freeze")
	m.IncOTPIssued("demat-freeze")
	m.IncOTPVerification("demat-freeze", ResultFailure)
	m.IncMutation("demat-freeze", ResultSuccess)
	m.IncSweepRow("withdrawal", ResultSkipped)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OTPIssued.WithLabelValues("demat-freeze")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OTPVerifications.WithLabelValues("demat-freeze", ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("demat-freeze", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepRows.WithLabelValues("withdrawal", ResultSkipped)))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncOTPIssued("x")
		m.IncOTPVerification("x", ResultSuccess)
		m.IncMutation("x", ResultNoop)
		m.IncSweepRow("x", ResultFailure)
	})
}
