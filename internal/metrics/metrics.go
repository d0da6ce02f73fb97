package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth holds the counters and histograms of the auth service.
type Auth struct {
	tokensIssued       *prometheus.CounterVec
	refreshResults     *prometheus.CounterVec
	revocationRejected prometheus.Counter
	logouts            *prometheus.CounterVec
	federatedResults   *prometheus.CounterVec
	sessionsPurged     prometheus.Counter
	httpDuration       *prometheus.HistogramVec
}

// New registers auth metrics with reg.
func New(reg prometheus.Registerer) *Auth {
	f := promauto.With(reg)
	return &Auth{
		tokensIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_tokens_issued_total", Help: "Token pairs issued, by flow",
		}, []string{"flow"}),
		refreshResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_total", Help: "Refresh attempts, by result",
		}, []string{"result"}),
		revocationRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "auth_revocation_rejected_total", Help: "Access tokens rejected as revoked",
		}),
		logouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logouts_total", Help: "Logouts, by scope",
		}, []string{"scope"}),
		federatedResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_federated_verifications_total", Help: "Google credential verifications, by path and outcome",
		}, []string{"path", "outcome"}),
		sessionsPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "auth_sessions_purged_total", Help: "Stale sessions deleted by the janitor",
		}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "auth_http_request_duration_seconds", Help: "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (a *Auth) TokenIssued(flow string) {
	a.tokensIssued.WithLabelValues(flow).Inc()
}

func (a *Auth) RefreshResult(result string) {
	a.refreshResults.WithLabelValues(result).Inc()
}

func (a *Auth) RevocationRejected() {
	a.revocationRejected.Inc()
}

func (a *Auth) Logout(scope string) {
	a.logouts.WithLabelValues(scope).Inc()
}

func (a *Auth) FederatedResult(path, outcome string) {
	a.federatedResults.WithLabelValues(path, outcome).Inc()
}

func (a *Auth) SessionsPurged(n int64) {
	a.sessionsPurged.Add(float64(n))
}

func (a *Auth) ObserveHTTP(method, route, status string, d time.Duration) {
	a.httpDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
