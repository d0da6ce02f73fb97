package federated

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/coursemarket-auth/internal/metrics"
	"github.com/dtroode/coursemarket-auth/internal/mocks"
	"github.com/dtroode/coursemarket-auth/internal/model"
	"github.com/dtroode/coursemarket-auth/internal/testutil"
)

func newTestVerifier(t *testing.T, f *googleFixture) *Verifier {
	t.Helper()
	return NewVerifier(
		NewAssertionVerifier(f.jwks.URL, http.DefaultClient, testClientIDs),
		NewTokenInfoVerifier(f.tokeninfo.URL, http.DefaultClient, testClientIDs),
		time.Second,
		metrics.New(prometheus.NewRegistry()),
		testutil.MakeNoopLogger(),
	)
}

func TestVerifier_AcceptsAssertion(t *testing.T) {
	f := newGoogleFixture(t)
	v := newTestVerifier(t, f)

	identity, err := v.Verify(context.Background(), f.idToken(t, idTokenOpts{}))
	require.NoError(t, err)
	assert.Equal(t, "google-subject-1", identity.Subject)
}

func TestVerifier_FallsBackToIntrospection(t *testing.T) {
	f := newGoogleFixture(t)
	f.tokens["ya29.access"] = tokenInfoResponse{Audience: webClientID, UserID: "42", ExpiresIn: 100, Email: "a@example.com", VerifiedEmail: true}
	v := newTestVerifier(t, f)

	identity, err := v.Verify(context.Background(), "ya29.access")
	require.NoError(t, err)
	assert.Equal(t, "42", identity.Subject)
}

func TestVerifier_WrongAudienceAssertionNotRescued(t *testing.T) {
	f := newGoogleFixture(t)
	v := newTestVerifier(t, f)

	_, err := v.Verify(context.Background(), f.idToken(t, idTokenOpts{audience: "attacker.apps.googleusercontent.com"}))
	require.ErrorIs(t, err, model.ErrInvalidFederatedToken)
}

func TestVerifier_EmptyCredential(t *testing.T) {
	f := newGoogleFixture(t)
	v := newTestVerifier(t, f)

	_, err := v.Verify(context.Background(), "   ")
	require.ErrorIs(t, err, model.ErrInvalidFederatedToken)
	assert.Equal(t, int32(0), f.jwksHits.Load())
}

func TestVerifier_KeyFetchFailureFallsThrough(t *testing.T) {
	f := newGoogleFixture(t)
	f.tokens["ya29.access"] = tokenInfoResponse{Audience: mobileClientID, UserID: "42", ExpiresIn: 100}

	v := NewVerifier(
		NewAssertionVerifier("http://127.0.0.1:1/certs", http.DefaultClient, testClientIDs),
		NewTokenInfoVerifier(f.tokeninfo.URL, http.DefaultClient, testClientIDs),
		time.Second,
		metrics.New(prometheus.NewRegistry()),
		testutil.MakeNoopLogger(),
	)

	identity, err := v.Verify(context.Background(), "ya29.access")
	require.NoError(t, err)
	assert.Equal(t, "42", identity.Subject)
}

func TestVerifier_PathTimeouts(t *testing.T) {
	blocking := mocks.NewFederatedVerifier(t)
	blocking.On("Verify", mock.Anything, "cred").
		Return(func(ctx context.Context, _ string) (model.FederatedIdentity, error) {
			<-ctx.Done()
			return model.FederatedIdentity{}, ctx.Err()
		}).Twice()

	v := NewVerifier(blocking, blocking, 20*time.Millisecond, metrics.New(prometheus.NewRegistry()), testutil.MakeNoopLogger())

	start := time.Now()
	_, err := v.Verify(context.Background(), "cred")
	require.ErrorIs(t, err, model.ErrInvalidFederatedToken)
	assert.Less(t, time.Since(start), time.Second)
}

func TestVerifier_MissingSubjectRejected(t *testing.T) {
	noSubject := mocks.NewFederatedVerifier(t)
	noSubject.On("Verify", mock.Anything, "cred").Return(model.FederatedIdentity{Email: "a@example.com"}, nil).Twice()

	v := NewVerifier(noSubject, noSubject, time.Second, metrics.New(prometheus.NewRegistry()), testutil.MakeNoopLogger())

	_, err := v.Verify(context.Background(), "cred")
	require.ErrorIs(t, err, model.ErrInvalidFederatedToken)
}
