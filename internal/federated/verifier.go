package federated

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/metrics"
	"github.com/dtroode/coursemarket-auth/internal/model"
)

// Path names one of the two verification attempts.
type Path string

const (
	PathAssertion     Path = "assertion"
	PathIntrospection Path = "introspection"
)

var errWrongAudience = errors.New("audience not allowed")

// PathVerifier checks a credential along a single path.
type PathVerifier interface {
	Verify(ctx context.Context, credential string) (model.FederatedIdentity, error)
}

// Result is the outcome of one path. Err is kept for operators and never
// returned to clients.
type Result struct {
	Identity model.FederatedIdentity
	Path     Path
	Err      error
}

// Verifier tries the identity assertion path first and falls back to token
// introspection when it fails for any reason, including key fetch errors and
// timeouts. Each path gets its own deadline.
type Verifier struct {
	assertion     PathVerifier
	introspection PathVerifier
	timeout       time.Duration
	metrics       *metrics.Auth
	logger        *logger.Logger
}

var _ model.FederatedVerifier = (*Verifier)(nil)

func NewVerifier(assertion, introspection PathVerifier, timeout time.Duration, metrics *metrics.Auth, logger *logger.Logger) *Verifier {
	return &Verifier{
		assertion:     assertion,
		introspection: introspection,
		timeout:       timeout,
		metrics:       metrics,
		logger:        logger,
	}
}

func (v *Verifier) Verify(ctx context.Context, credential string) (model.FederatedIdentity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return model.FederatedIdentity{}, model.ErrInvalidFederatedToken
	}

	first := v.run(ctx, PathAssertion, v.assertion, credential)
	if first.Err == nil {
		return first.Identity, nil
	}

	second := v.run(ctx, PathIntrospection, v.introspection, credential)
	if second.Err == nil {
		v.logger.Debug("Federated verifier: accepted by introspection",
			"assertion_error", first.Err.Error())
		return second.Identity, nil
	}

	v.logger.Warn("Federated verifier: credential rejected",
		"assertion_error", first.Err.Error(),
		"introspection_error", second.Err.Error())
	return model.FederatedIdentity{}, model.ErrInvalidFederatedToken
}

func (v *Verifier) run(ctx context.Context, path Path, pv PathVerifier, credential string) Result {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	identity, err := pv.Verify(ctx, credential)
	if err == nil && identity.Subject == "" {
		err = errors.New("missing subject")
	}

	outcome := "accepted"
	if err != nil {
		outcome = "rejected"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
	}
	v.metrics.FederatedResult(string(path), outcome)

	return Result{Identity: identity, Path: path, Err: err}
}

func audienceAllowed(allowed []string, candidates ...string) (string, bool) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, a := range allowed {
			if c == a {
				return c, true
			}
		}
	}
	return "", false
}
