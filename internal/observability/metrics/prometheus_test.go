package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/ghsession/internal/domain/auth"
	"github.com/target/ghsession/internal/ports"
)

func TestPrometheusRecorder_Lifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.RecordRestore("signed_out")
	assert.Equal(t, float64(1), promtest.ToFloat64(rec.restores.WithLabelValues("signed_out")))
	assert.Equal(t, float64(0), promtest.ToFloat64(rec.signedIn))

	rec.RecordSignIn(ports.SignInMetric{Result: "denied", Kind: domainauth.ErrKindDenied, Duration: time.Second})
	assert.Equal(t, float64(1), promtest.ToFloat64(rec.signIns.WithLabelValues("denied", "denied")))
	assert.Equal(t, float64(0), promtest.ToFloat64(rec.signedIn))

	rec.RecordSignIn(ports.SignInMetric{Result: ResultSuccess, Duration: 2 * time.Second})
	assert.Equal(t, float64(1), promtest.ToFloat64(rec.signIns.WithLabelValues("success", "")))
	assert.Equal(t, float64(1), promtest.ToFloat64(rec.signedIn))

	rec.RecordSignOut(errors.New("remove failed"))
	assert.Equal(t, float64(1), promtest.ToFloat64(rec.signOuts.WithLabelValues("error")))
	assert.Equal(t, float64(0), promtest.ToFloat64(rec.signedIn))
}

func TestPrometheusRecorder_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusRecorder(reg)
	assert.Panics(t, func() { NewPrometheusRecorder(reg) })
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)
	rec.RecordRestore("signed_in")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `ghsession_restore_total{result="signed_in"} 1`)
	assert.Contains(t, string(body), "ghsession_signed_in 1")
}
