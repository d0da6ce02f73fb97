//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/coursemarket-auth/internal/model"
	repo "github.com/dtroode/coursemarket-auth/internal/repository/postgres"
	"github.com/dtroode/coursemarket-auth/internal/security"
	"github.com/dtroode/coursemarket-auth/internal/testutil"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "coursemarket_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/coursemarket_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func connect(t *testing.T) *repo.Connection {
	t.Helper()
	conn, err := repo.NewConnection(context.Background(), dsn, 3*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func uniqueEmail() string {
	return uuid.NewString() + "@example.com"
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	ur := repo.NewUserRepository(connect(t), security.NewHasher(bcrypt.MinCost))

	t.Run("create and authenticate", func(t *testing.T) {
		email := uniqueEmail()
		u, err := ur.Create(ctx, email, "s3cret")
		require.NoError(t, err)
		assert.Empty(t, u.Roles)
		assert.Nil(t, u.LastRevokedAt)

		got, err := ur.Authenticate(ctx, email, "s3cret")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = ur.Authenticate(ctx, email, "wrong")
		require.ErrorIs(t, err, model.ErrInvalidCredentials)

		_, err = ur.Authenticate(ctx, uniqueEmail(), "s3cret")
		require.ErrorIs(t, err, model.ErrInvalidCredentials)

		_, err = ur.Create(ctx, email, "other")
		require.ErrorIs(t, err, model.ErrEmailTaken)
	})

	t.Run("federated link and create", func(t *testing.T) {
		email := uniqueEmail()
		pw, err := ur.Create(ctx, email, "s3cret")
		require.NoError(t, err)

		subject := uuid.NewString()
		linked, err := ur.GetOrCreateFederated(ctx, subject, email)
		require.NoError(t, err)
		assert.Equal(t, pw.ID, linked.ID)
		require.NotNil(t, linked.GoogleSubject)
		assert.Equal(t, subject, *linked.GoogleSubject)

		again, err := ur.GetOrCreateFederated(ctx, subject, email)
		require.NoError(t, err)
		assert.Equal(t, pw.ID, again.ID)

		_, err = ur.GetOrCreateFederated(ctx, uuid.NewString(), email)
		require.ErrorIs(t, err, model.ErrInvalidFederatedToken)

		fresh, err := ur.GetOrCreateFederated(ctx, uuid.NewString(), uniqueEmail())
		require.NoError(t, err)
		assert.NotEqual(t, pw.ID, fresh.ID)

		_, err = ur.Authenticate(ctx, fresh.Email, "")
		require.ErrorIs(t, err, model.ErrInvalidCredentials)
	})

	t.Run("revocation is monotonic", func(t *testing.T) {
		u, err := ur.Create(ctx, uniqueEmail(), "s3cret")
		require.NoError(t, err)

		at := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, ur.BumpRevocation(ctx, u.ID, at))
		require.NoError(t, ur.BumpRevocation(ctx, u.ID, at.Add(-time.Hour)))

		got, err := ur.LastRevokedAt(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Equal(at))

		require.ErrorIs(t, ur.BumpRevocation(ctx, uuid.New(), at), model.ErrNotFound)
		_, err = ur.LastRevokedAt(ctx, uuid.New())
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	conn := connect(t)
	ur := repo.NewUserRepository(conn, security.NewHasher(bcrypt.MinCost))
	sr := repo.NewSessionRepository(conn)

	user, err := ur.Create(ctx, uniqueEmail(), "s3cret")
	require.NoError(t, err)

	now := time.Now().UTC()
	newSession := func() model.Session {
		return model.Session{
			UserID:                 user.ID,
			AccessTokenFingerprint: model.Fingerprint(uuid.NewString()),
			RefreshTokenHash:       model.Fingerprint(uuid.NewString()),
			IssuedAt:               now,
			ExpiresAt:              now.Add(time.Hour),
			CreatedByIP:            "10.0.0.1",
		}
	}

	t.Run("create and lookup", func(t *testing.T) {
		s, err := sr.Create(ctx, newSession())
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, s.ID)

		byRefresh, err := sr.GetByRefreshToken(ctx, s.RefreshTokenHash)
		require.NoError(t, err)
		assert.Equal(t, s.ID, byRefresh.ID)

		byAccess, err := sr.GetByAccessFingerprint(ctx, s.AccessTokenFingerprint)
		require.NoError(t, err)
		assert.Equal(t, s.ID, byAccess.ID)

		dup := newSession()
		dup.RefreshTokenHash = s.RefreshTokenHash
		_, err = sr.Create(ctx, dup)
		require.ErrorIs(t, err, model.ErrDuplicateToken)

		_, err = sr.GetByRefreshToken(ctx, "missing")
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("rotate has exactly one winner", func(t *testing.T) {
		s, err := sr.Create(ctx, newSession())
		require.NoError(t, err)

		const racers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := sr.Rotate(ctx, model.RotateParams{
					SessionID:              s.ID,
					OldRefreshHash:         s.RefreshTokenHash,
					AccessTokenFingerprint: model.Fingerprint(uuid.NewString()),
					RefreshTokenHash:       model.Fingerprint(uuid.NewString()),
					IssuedAt:               now,
					ExpiresAt:              now.Add(time.Hour),
				})
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, model.ErrNotFound)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)

		_, err = sr.GetByRefreshToken(ctx, s.RefreshTokenHash)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("transaction rolls back", func(t *testing.T) {
		tx := repo.NewTransactor(conn, testutil.MakeNoopLogger())
		s := newSession()

		err := tx.WithTx(ctx, func(ctx context.Context) error {
			if _, err := sr.Create(ctx, s); err != nil {
				return err
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		_, err = sr.GetByRefreshToken(ctx, s.RefreshTokenHash)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("delete stale", func(t *testing.T) {
		other, err := ur.Create(ctx, uniqueEmail(), "s3cret")
		require.NoError(t, err)

		expired := newSession()
		expired.UserID = other.ID
		expired.ExpiresAt = now.Add(-time.Minute)
		_, err = sr.Create(ctx, expired)
		require.NoError(t, err)

		live := newSession()
		live.UserID = other.ID
		live, err = sr.Create(ctx, live)
		require.NoError(t, err)

		n, err := sr.DeleteStale(ctx, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		_, err = sr.GetByRefreshToken(ctx, live.RefreshTokenHash)
		require.NoError(t, err)

		require.NoError(t, ur.BumpRevocation(ctx, other.ID, now))
		_, err = sr.DeleteStale(ctx, now)
		require.NoError(t, err)
		_, err = sr.GetByRefreshToken(ctx, live.RefreshTokenHash)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("delete all for user", func(t *testing.T) {
		owner, err := ur.Create(ctx, uniqueEmail(), "s3cret")
		require.NoError(t, err)
		for range 3 {
			s := newSession()
			s.UserID = owner.ID
			_, err := sr.Create(ctx, s)
			require.NoError(t, err)
		}

		n, err := sr.DeleteAllForUser(ctx, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}
