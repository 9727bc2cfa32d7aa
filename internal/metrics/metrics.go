package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
	ResultNoop     = "noop"
	ResultSkipped  = "skipped"
)

// Metrics holds the service counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	OTPIssued        *prometheus.CounterVec
	OTPVerifications *prometheus.CounterVec
	Mutations        *prometheus.CounterVec
	SweepRows        *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OTPIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Name:      "otp_issued_total",
			Help:      "One-time codes issued, by context.",
		}, []string{"context"}),
		OTPVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Name:      "otp_verifications_total",
			Help:      "One-time code verifications, by context and result.",
		}, []string{"context", "result"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Name:      "mutations_total",
			Help:      "Verified mutation outcomes, by feature and result.",
		}, []string{"feature", "result"}),
		SweepRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Name:      "sweep_rows_total",
			Help:      "Rows visited by sweeps, by kind and result.",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(m.OTPIssued, m.OTPVerifications, m.Mutations, m.SweepRows)
	return m
}

func (m *Metrics) IncOTPIssued(otpContext string) {
	if m == nil {
		return
	}
	m.OTPIssued.WithLabelValues(otpContext).Inc()
}

func (m *Metrics) IncOTPVerification(otpContext, result string) {
	if m == nil {
		return
	}
	m.OTPVerifications.WithLabelValues(otpContext, result).Inc()
}

func (m *Metrics) IncMutation(feature, result string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(feature, result).Inc()
}

func (m *Metrics) IncSweepRow(kind, result string) {
	if m == nil {
		return
	}
	m.SweepRows.WithLabelValues(kind, result).Inc()
}
