package memory

import (
	"context"
	"sync"
	"time"

	"peerbridge-backend/application/ports"
	"peerbridge-backend/domain/core/valueobjects"
)

// PairLocker serializes pair transitions with one mutex per pair id.
// Blocking on the mutex gives the same ordering guarantee the
// conditional-write lock gives in production storage.
type PairLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPairLocker creates an in-memory pair locker.
func NewPairLocker() *PairLocker {
	return &PairLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *PairLocker) Acquire(ctx context.Context, pair valueobjects.PairID, owner string, ttl time.Duration) (ports.PairLock, error) {
	l.mu.Lock()
	lock, ok := l.locks[pair.String()]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[pair.String()] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return &pairLock{mu: lock}, nil
}

type pairLock struct {
	mu   *sync.Mutex
	once sync.Once
}

func (l *pairLock) Release(ctx context.Context) error {
	l.once.Do(l.mu.Unlock)
	return nil
}
