package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/coursemarket-auth/internal/metrics"
	"github.com/dtroode/coursemarket-auth/internal/mocks"
	"github.com/dtroode/coursemarket-auth/internal/model"
	"github.com/dtroode/coursemarket-auth/internal/testutil"
)

func TestLogout_ResolveSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	pair, err := f.auth.Register(ctx, "student@example.com", "secret", "")
	require.NoError(t, err)

	session, err := f.logout.ResolveSession(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, pair.SessionID, session.ID)

	_, err = f.logout.ResolveSession(ctx, "unknown-access-token")
	assert.ErrorIs(t, err, model.ErrTokenRevoked)
}

func TestLogout_CurrentDevice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	a, err := f.auth.Register(ctx, "student@example.com", "secret", "")
	require.NoError(t, err)
	b, err := f.auth.Login(ctx, "student@example.com", "secret", "")
	require.NoError(t, err)

	require.NoError(t, f.logout.LogoutCurrentDevice(ctx, a.SessionID))
	// idempotent
	require.NoError(t, f.logout.LogoutCurrentDevice(ctx, a.SessionID))

	_, err = f.tokens.Refresh(ctx, a.RefreshToken, "")
	assert.ErrorIs(t, err, model.ErrRefreshTokenNotFound)

	_, err = f.logout.ResolveSession(ctx, a.AccessToken)
	assert.ErrorIs(t, err, model.ErrTokenRevoked)

	_, err = f.tokens.Refresh(ctx, b.RefreshToken, "")
	assert.NoError(t, err)
}

func TestLogout_AllDevices_Purge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	a, err := f.auth.Register(ctx, "student@example.com", "secret", "")
	require.NoError(t, err)
	b, err := f.auth.Login(ctx, "student@example.com", "secret", "")
	require.NoError(t, err)
	claims, err := f.codec.Parse(a.AccessToken)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	require.NoError(t, f.logout.LogoutAllDevices(ctx, claims.UserID))

	for _, refresh := range []string{a.RefreshToken, b.RefreshToken} {
		_, err = f.tokens.Refresh(ctx, refresh, "")
		assert.ErrorIs(t, err, model.ErrRefreshTokenNotFound)
	}
	assert.ErrorIs(t, f.revocation.Check(ctx, claims), model.ErrTokenRevoked)
}

func TestLogout_AllDevices_Monotonic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	pair, err := f.auth.Register(ctx, "student@example.com", "secret", "")
	require.NoError(t, err)
	claims, err := f.codec.Parse(pair.AccessToken)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	require.NoError(t, f.logout.LogoutAllDevices(ctx, claims.UserID))
	later := f.clock.Now()

	f.clock.Advance(-30 * time.Minute)
	require.NoError(t, f.logout.LogoutAllDevices(ctx, claims.UserID))

	revokedAt, err := f.store.Users().LastRevokedAt(ctx, claims.UserID)
	require.NoError(t, err)
	require.NotNil(t, revokedAt)
	assert.True(t, revokedAt.Equal(later))
}

func TestLogout_AllDevices_BumpFailureRollsBack(t *testing.T) {
	sessions := mocks.NewSessionStore(t)
	revocations := mocks.NewRevocationStore(t)
	recorder := mocks.NewRevocationRecorder(t)
	tx := mocks.NewTransactor(t)
	events := mocks.NewEventPublisher(t)

	l := NewLogout(sessions, revocations, recorder, tx, events, metrics.New(prometheus.NewRegistry()), testutil.MakeNoopLogger(), true)

	userID := uuid.New()
	tx.On("WithTx", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }).Once()
	revocations.On("BumpRevocation", mock.Anything, userID, mock.Anything).Return(model.ErrStoreUnavailable).Once()

	err := l.LogoutAllDevices(context.Background(), userID)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestLogout_AllDevices_PublishesEvent(t *testing.T) {
	sessions := mocks.NewSessionStore(t)
	revocations := mocks.NewRevocationStore(t)
	recorder := mocks.NewRevocationRecorder(t)
	tx := mocks.NewTransactor(t)
	events := mocks.NewEventPublisher(t)

	l := NewLogout(sessions, revocations, recorder, tx, events, metrics.New(prometheus.NewRegistry()), testutil.MakeNoopLogger(), false)

	userID := uuid.New()
	tx.On("WithTx", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }).Once()
	revocations.On("BumpRevocation", mock.Anything, userID, mock.Anything).Return(nil).Once()
	recorder.On("Record", mock.Anything, userID, mock.Anything).Return(nil).Once()
	events.On("Publish", mock.Anything, mock.MatchedBy(func(e model.AuthEvent) bool {
		return e.Type == model.AuthEventUserRevoked && e.UserID == userID
	})).Return(nil).Once()

	require.NoError(t, l.LogoutAllDevices(context.Background(), userID))
}

func TestLogout_AllDevices_RecordsAfterCommit(t *testing.T) {
	sessions := mocks.NewSessionStore(t)
	revocations := mocks.NewRevocationStore(t)
	recorder := mocks.NewRevocationRecorder(t)
	tx := mocks.NewTransactor(t)
	events := mocks.NewEventPublisher(t)

	l := NewLogout(sessions, revocations, recorder, tx, events, metrics.New(prometheus.NewRegistry()), testutil.MakeNoopLogger(), false)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	userID := uuid.New()
	committed := false
	tx.On("WithTx", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, fn func(context.Context) error) error {
			if err := fn(ctx); err != nil {
				return err
			}
			committed = true
			return nil
		}).Once()
	revocations.On("BumpRevocation", mock.Anything, userID, now).Return(nil).Once()
	recorder.On("Record", mock.Anything, userID, now).
		Run(func(mock.Arguments) { assert.True(t, committed, "recorded before commit") }).
		Return(nil).Once()
	events.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	require.NoError(t, l.LogoutAllDevices(context.Background(), userID))
}

func TestLogout_AllDevices_RecordFailure(t *testing.T) {
	sessions := mocks.NewSessionStore(t)
	revocations := mocks.NewRevocationStore(t)
	recorder := mocks.NewRevocationRecorder(t)
	tx := mocks.NewTransactor(t)
	events := mocks.NewEventPublisher(t)

	l := NewLogout(sessions, revocations, recorder, tx, events, metrics.New(prometheus.NewRegistry()), testutil.MakeNoopLogger(), false)

	userID := uuid.New()
	tx.On("WithTx", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }).Once()
	revocations.On("BumpRevocation", mock.Anything, userID, mock.Anything).Return(nil).Once()
	recorder.On("Record", mock.Anything, userID, mock.Anything).Return(model.ErrStoreUnavailable).Once()

	err := l.LogoutAllDevices(context.Background(), userID)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}
