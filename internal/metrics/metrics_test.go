package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TokenIssued("password")
	m.TokenIssued("password")
	m.TokenIssued("google")
	m.RefreshResult("ok")
	m.RevocationRejected()
	m.Logout("all")
	m.FederatedResult("assertion", "accepted")
	m.SessionsPurged(3)
	m.ObserveHTTP("POST", "/login", "200", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.tokensIssued.WithLabelValues("password")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tokensIssued.WithLabelValues("google")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshResults.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.revocationRejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logouts.WithLabelValues("all")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.federatedResults.WithLabelValues("assertion", "accepted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sessionsPurged))

	n, err := testutil.GatherAndCount(reg, "auth_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) })
}
