package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerbridge-backend/domain/core/valueobjects"
)

func TestPairLocker_SerializesPerPair(t *testing.T) {
	locker := NewPairLocker()
	ctx := context.Background()

	a, err := valueobjects.NewUserID("alice")
	require.NoError(t, err)
	b, err := valueobjects.NewUserID("bob")
	require.NoError(t, err)
	pair, err := valueobjects.NewPairID(a, b)
	require.NoError(t, err)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, err := locker.Acquire(ctx, pair, "worker", time.Second)
			assert.NoError(t, err)
			counter++
			assert.NoError(t, lock.Release(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestPairLocker_ReleaseIsIdempotent(t *testing.T) {
	locker := NewPairLocker()
	ctx := context.Background()

	a, err := valueobjects.NewUserID("alice")
	require.NoError(t, err)
	b, err := valueobjects.NewUserID("bob")
	require.NoError(t, err)
	pair, err := valueobjects.NewPairID(a, b)
	require.NoError(t, err)

	lock, err := locker.Acquire(ctx, pair, "alice", time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx))
	require.NoError(t, lock.Release(ctx))

	// The pair is free for the next holder.
	lock, err = locker.Acquire(ctx, pair, "bob", time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx))
}
