// Package metrics turns session lifecycle events into StatsD or Prometheus metrics.
package metrics

import (
	"github.com/target/ghsession/internal/ports"
	obserrors "github.com/target/ghsession/internal/observability/errors"
	"github.com/target/ghsession/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// StatsdRecorder implements ports.SessionMetrics over a statsd.Sink.
type StatsdRecorder struct {
	sink statsd.Sink
}

var _ ports.SessionMetrics = (*StatsdRecorder)(nil)

// NewStatsdRecorder wraps sink; a nil sink drops every metric.
func NewStatsdRecorder(sink statsd.Sink) *StatsdRecorder {
	return &StatsdRecorder{sink: sink}
}

// RecordRestore counts startup restores by outcome.
func (r *StatsdRecorder) RecordRestore(result string) {
	if r == nil || r.sink == nil {
		return
	}
	r.sink.Count("session.restore", 1, map[string]string{"result": result})
}

// RecordSignIn emits a counter and a duration per sign-in attempt.
func (r *StatsdRecorder) RecordSignIn(in ports.SignInMetric) {
	if r == nil || r.sink == nil {
		return
	}

	tags := map[string]string{"result": in.Result}
	if in.Kind != "" {
		tags["kind"] = string(in.Kind)
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	r.sink.Count("session.signin", 1, tags)

	if in.Duration > 0 {
		r.sink.Timing("session.signin.duration", in.Duration, CloneTags(tags))
	}
}

// RecordSignOut counts sign-outs; a failed key removal is tagged as an error.
func (r *StatsdRecorder) RecordSignOut(err error) {
	if r == nil || r.sink == nil {
		return
	}
	tags := map[string]string{"result": ResultSuccess}
	if err != nil {
		tags["result"] = ResultError
		tags["error_class"] = obserrors.Classify(err)
	}
	r.sink.Count("session.signout", 1, tags)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
