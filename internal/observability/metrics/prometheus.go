package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/target/ghsession/internal/ports"
)

// PrometheusRecorder implements ports.SessionMetrics with Prometheus collectors.
type PrometheusRecorder struct {
	restores       *prometheus.CounterVec
	signIns        *prometheus.CounterVec
	signInDuration *prometheus.HistogramVec
	signOuts       *prometheus.CounterVec
	signedIn       prometheus.Gauge
}

var _ ports.SessionMetrics = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates the collectors and registers them with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ghsession_restore_total",
			Help: "Session restores at startup by outcome.",
		}, []string{"result"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ghsession_signin_total",
			Help: "Sign-in attempts by result and failure kind.",
		}, []string{"result", "kind"}),
		signInDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ghsession_signin_duration_seconds",
			Help:    "Wall time of sign-in attempts, including time spent in the browser.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"result"}),
		signOuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ghsession_signout_total",
			Help: "Sign-outs by result.",
		}, []string{"result"}),
		signedIn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ghsession_signed_in",
			Help: "1 while a user is signed in, 0 otherwise.",
		}),
	}

	reg.MustRegister(r.restores, r.signIns, r.signInDuration, r.signOuts, r.signedIn)
	return r
}

// RecordRestore counts a restore and sets the signed-in gauge.
func (r *PrometheusRecorder) RecordRestore(result string) {
	r.restores.WithLabelValues(result).Inc()
	if result == "signed_in" {
		r.signedIn.Set(1)
	} else {
		r.signedIn.Set(0)
	}
}

// RecordSignIn counts an attempt and observes its duration.
func (r *PrometheusRecorder) RecordSignIn(in ports.SignInMetric) {
	r.signIns.WithLabelValues(in.Result, string(in.Kind)).Inc()
	if in.Duration > 0 {
		r.signInDuration.WithLabelValues(in.Result).Observe(in.Duration.Seconds())
	}
	if in.Result == ResultSuccess {
		r.signedIn.Set(1)
	}
}

// RecordSignOut counts a sign-out. Memory is cleared even when removal fails.
func (r *PrometheusRecorder) RecordSignOut(err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	r.signOuts.WithLabelValues(result).Inc()
	r.signedIn.Set(0)
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
