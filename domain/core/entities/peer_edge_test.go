package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPeerEdge(t *testing.T) {
	pair := testPair(t, "alice", "bob")

	edge, err := NewPeerEdge(pair)
	require.NoError(t, err)
	assert.True(t, edge.Pair().Equals(pair))
	assert.False(t, edge.CreatedAt().IsZero())

	low, high := edge.Users()
	assert.Equal(t, "alice", low.String())
	assert.Equal(t, "bob", high.String())

	peer, ok := edge.PeerOf(testUser(t, "alice"))
	require.True(t, ok)
	assert.Equal(t, "bob", peer.String())

	_, ok = edge.PeerOf(testUser(t, "carol"))
	assert.False(t, ok)
}
