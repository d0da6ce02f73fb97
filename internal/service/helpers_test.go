package service

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/coursemarket-auth/internal/events"
	"github.com/dtroode/coursemarket-auth/internal/metrics"
	"github.com/dtroode/coursemarket-auth/internal/mocks"
	"github.com/dtroode/coursemarket-auth/internal/repository/memory"
	"github.com/dtroode/coursemarket-auth/internal/security"
	"github.com/dtroode/coursemarket-auth/internal/testutil"
	"github.com/dtroode/coursemarket-auth/internal/token"
)

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 30 * 24 * time.Hour
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fixture wires the services over the in-memory store and the real codec.
type fixture struct {
	clock      *testClock
	store      *memory.Store
	codec      *token.JWT
	verifier   *mocks.FederatedVerifier
	tokens     *TokenService
	auth       *Auth
	logout     *Logout
	revocation *Revocation
	janitor    *Janitor
}

func newFixture(t *testing.T, purge bool) *fixture {
	t.Helper()

	clock := newTestClock()
	store := memory.NewStore(security.NewHasher(bcrypt.MinCost))
	codec := token.NewJWT("test-secret", "coursemarket-auth", "coursemarket-api", token.WithClock(clock.Now))
	m := metrics.New(prometheus.NewRegistry())
	log := testutil.MakeNoopLogger()
	verifier := mocks.NewFederatedVerifier(t)

	tokens := NewTokenService(store.Sessions(), store.Users(), codec, events.NoopPublisher{}, m, log, testAccessTTL, testRefreshTTL)
	tokens.now = clock.Now

	logout := NewLogout(store.Sessions(), store.Users(), nil, store, events.NoopPublisher{}, m, log, purge)
	logout.now = clock.Now

	janitor := NewJanitor(store.Sessions(), time.Hour, m, log)
	janitor.now = clock.Now

	return &fixture{
		clock:      clock,
		store:      store,
		codec:      codec,
		verifier:   verifier,
		tokens:     tokens,
		auth:       NewAuth(store.Users(), verifier, tokens, log),
		logout:     logout,
		revocation: NewRevocation(store.Users(), m, log),
		janitor:    janitor,
	}
}
