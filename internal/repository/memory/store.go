package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/coursemarket-auth/internal/model"
)

var (
	_ model.Transactor = (*Store)(nil)
	_ model.Pinger     = (*Store)(nil)
)

// Store keeps users and sessions in process memory. It backs tests and
// DATABASE_DRIVER=memory.
type Store struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]model.User
	sessions map[uuid.UUID]model.Session

	// txMu is held for the whole of WithTx and by every write made outside
	// it, so a rollback only ever discards the transaction's own writes.
	txMu   sync.Mutex
	hasher model.PasswordHasher
	now    func() time.Time
}

func NewStore(hasher model.PasswordHasher) *Store {
	return &Store{
		users:    make(map[uuid.UUID]model.User),
		sessions: make(map[uuid.UUID]model.Session),
		hasher:   hasher,
		now:      time.Now,
	}
}

// Users returns the model.UserStore view of the store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

// Sessions returns the model.SessionStore view of the store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{store: s}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lockWrite takes the write lock and returns its release. Writes outside a
// transaction wait for any open transaction to finish first.
func (s *Store) lockWrite(ctx context.Context) func() {
	if s.inTx(ctx) {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

// WithTx runs fn and restores the previous contents of the store if fn fails.
// A nested call joins the enclosing transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, s)

	s.mu.RLock()
	users := maps.Clone(s.users)
	sessions := maps.Clone(s.sessions)
	s.mu.RUnlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.users = users
		s.sessions = sessions
		s.mu.Unlock()
		return err
	}
	return nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Ping reports the store reachable unless ctx is done.
func (s *Store) Ping(ctx context.Context) error {
	return checkContext(ctx)
}
