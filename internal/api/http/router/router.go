package router

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dtroode/coursemarket-auth/internal/api/http/handler"
	"github.com/dtroode/coursemarket-auth/internal/api/http/middleware"
	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/metrics"
	"github.com/dtroode/coursemarket-auth/internal/model"
)

const healthTimeout = 500 * time.Millisecond

// Deps holds the collaborators of the HTTP API.
type Deps struct {
	AuthService       handler.AuthService
	TokenService      handler.TokenService
	LogoutService     handler.LogoutService
	RevocationChecker middleware.RevocationChecker
	Codec             model.TokenCodec
	ContextManager    model.ContextManager
	Pinger            model.Pinger
	Gatherer          prometheus.Gatherer
	Metrics           *metrics.Auth
	TrustProxy        bool
	Logger            *logger.Logger
}

// Router wires handlers and middleware into the public HTTP API.
type Router struct {
	deps Deps
}

// New creates a new Router instance.
func New(deps Deps) *Router {
	return &Router{deps: deps}
}

// Register builds the HTTP handler. Refresh and the sign-in routes bypass the
// authentication chain; logout routes pass Authenticate then Revocation.
func (r *Router) Register() http.Handler {
	d := r.deps
	authHandler := handler.NewAuth(d.AuthService, d.TokenService, d.LogoutService, d.ContextManager, d.TrustProxy, d.Logger)
	healthHandler := handler.NewHealth(d.Pinger, healthTimeout)

	authenticate := middleware.NewAuthenticate(d.Codec, d.ContextManager, d.Logger)
	revocation := middleware.NewRevocation(d.RevocationChecker, d.Codec, d.ContextManager, d.Logger)
	logging := middleware.NewLogging(d.Logger, d.Metrics)

	protected := func(h http.HandlerFunc) http.Handler {
		return authenticate.Handle(revocation.Handle(h))
	}

	mux := http.NewServeMux()
	routes := make(map[string]bool)
	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, h)
		routes[pattern] = true
	}

	handle("POST /login", http.HandlerFunc(authHandler.Login))
	handle("POST /register", http.HandlerFunc(authHandler.Register))
	handle("POST /login/google", http.HandlerFunc(authHandler.LoginWithGoogle))
	handle("POST /refresh", http.HandlerFunc(authHandler.Refresh))
	handle("POST /logout", protected(authHandler.Logout))
	handle("POST /logout-all", protected(authHandler.LogoutAll))
	handle("GET /healthz", http.HandlerFunc(healthHandler.Check))
	handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	return otelhttp.NewHandler(logging.Handle(mux), "coursemarket-auth",
		otelhttp.WithSpanNameFormatter(routeSpanName(mux, routes)),
	)
}

// routeSpanName names a span after the route the request will match. The span
// starts before routing, so the pattern is looked up on the mux. Anything that
// is not a registered route shares one name.
func routeSpanName(mux *http.ServeMux, routes map[string]bool) func(string, *http.Request) string {
	return func(_ string, req *http.Request) string {
		if _, pattern := mux.Handler(req); routes[pattern] {
			return pattern
		}
		return "unmatched"
	}
}
