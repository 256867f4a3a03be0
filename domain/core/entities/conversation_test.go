package entities

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerbridge-backend/domain/core/valueobjects"
	pkgerrors "peerbridge-backend/pkg/errors"
)

func testPair(t *testing.T, a, b string) valueobjects.PairID {
	t.Helper()
	pair, err := valueobjects.NewPairID(testUser(t, a), testUser(t, b))
	require.NoError(t, err)
	return pair
}

func testBody(t *testing.T, text string) valueobjects.MessageBody {
	t.Helper()
	body, err := valueobjects.NewMessageBody(text)
	require.NoError(t, err)
	return body
}

func TestNewConversation(t *testing.T) {
	conv, err := NewConversation(testPair(t, "alice", "bob"))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), conv.NextSeq())
	assert.Equal(t, uint64(0), conv.LastSeq())
	assert.False(t, conv.CreatedAt().IsZero())
}

func TestConversation_AppendAssignsGaplessSequence(t *testing.T) {
	alice := testUser(t, "alice")
	bob := testUser(t, "bob")
	conv, err := NewConversation(testPair(t, "alice", "bob"))
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		sender := alice
		if i%2 == 0 {
			sender = bob
		}
		msg, err := conv.Append(sender, testBody(t, fmt.Sprintf("message %d", i)))
		require.NoError(t, err)
		assert.Equal(t, uint64(i), msg.Sequence())
		assert.Equal(t, sender, msg.Sender())
	}

	assert.Equal(t, uint64(5), conv.LastSeq())
	assert.Equal(t, uint64(6), conv.NextSeq())
}

func TestConversation_AppendRejectsOutsider(t *testing.T) {
	conv, err := NewConversation(testPair(t, "alice", "bob"))
	require.NoError(t, err)

	_, err = conv.Append(testUser(t, "carol"), testBody(t, "hi"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPermission(err))
	assert.Equal(t, uint64(0), conv.LastSeq())
}

func TestConversation_MarkRead(t *testing.T) {
	alice := testUser(t, "alice")
	conv, err := NewConversation(testPair(t, "alice", "bob"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := conv.Append(alice, testBody(t, "hello"))
		require.NoError(t, err)
	}

	require.NoError(t, conv.MarkRead(alice, 2))
	assert.Equal(t, uint64(2), conv.ReadMarker(alice))

	// Markers are monotonic: lower values are ignored.
	require.NoError(t, conv.MarkRead(alice, 1))
	assert.Equal(t, uint64(2), conv.ReadMarker(alice))

	// Re-marking the same value is a no-op.
	require.NoError(t, conv.MarkRead(alice, 2))
	assert.Equal(t, uint64(2), conv.ReadMarker(alice))

	require.NoError(t, conv.MarkRead(alice, 3))
	assert.Equal(t, uint64(3), conv.ReadMarker(alice))
}

func TestConversation_MarkReadRejectsOutsider(t *testing.T) {
	conv, err := NewConversation(testPair(t, "alice", "bob"))
	require.NoError(t, err)

	err = conv.MarkRead(testUser(t, "carol"), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPermission(err))
}

func TestReconstructConversation(t *testing.T) {
	pair := testPair(t, "alice", "bob")
	markers := map[string]uint64{"alice": 4}
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	conv, err := ReconstructConversation(pair, 7, markers, createdAt)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), conv.NextSeq())
	assert.Equal(t, uint64(6), conv.LastSeq())
	assert.Equal(t, uint64(4), conv.ReadMarker(testUser(t, "alice")))
	assert.Equal(t, uint64(0), conv.ReadMarker(testUser(t, "bob")))

	// Zero next sequence from legacy data normalizes to 1.
	conv, err = ReconstructConversation(pair, 0, nil, createdAt)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), conv.NextSeq())
}
