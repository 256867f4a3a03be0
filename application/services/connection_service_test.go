package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerbridge-backend/domain/core/entities"
	pkgerrors "peerbridge-backend/pkg/errors"
)

func TestConnectionService_SendRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	request, err := env.connections.SendRequest(ctx, uid(t, "alice"), uid(t, "bob"))
	require.NoError(t, err)
	assert.Equal(t, entities.RequestPending, request.Status())
	assert.Equal(t, "alice", request.Requester().String())
	assert.Equal(t, "bob", request.Recipient().String())

	assert.Equal(t, []string{"request.sent"}, env.publisher.EventTypes())
}

func TestConnectionService_SendRequest_DuplicatePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.connections.SendRequest(ctx, uid(t, "alice"), uid(t, "bob"))
	require.NoError(t, err)

	_, err = env.connections.SendRequest(ctx, uid(t, "alice"), uid(t, "bob"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestConnectionService_SendRequest_ToSelf(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.connections.SendRequest(context.Background(), uid(t, "alice"), uid(t, "alice"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestConnectionService_SendRequest_AlreadyConnected(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, "alice", "bob")

	_, err := env.connections.SendRequest(context.Background(), uid(t, "alice"), uid(t, "bob"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))

	// Direction does not matter for an unordered pair.
	_, err = env.connections.SendRequest(context.Background(), uid(t, "bob"), uid(t, "alice"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestConnectionService_CrossingRequestsBecomeMutualAccept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.connections.SendRequest(ctx, uid(t, "alice"), uid(t, "bob"))
	require.NoError(t, err)

	// Bob sends toward Alice before responding; the pending request is
	// accepted instead of a second one being created.
	second, err := env.connections.SendRequest(ctx, uid(t, "bob"), uid(t, "alice"))
	require.NoError(t, err)
	assert.True(t, first.ID().Equals(second.ID()))
	assert.Equal(t, entities.RequestAccepted, second.Status())

	connected, err := env.peers.HasEdge(ctx, pid(t, "alice", "bob"))
	require.NoError(t, err)
	assert.True(t, connected)

	// The conversation exists and is empty.
	conv, err := env.conversations.GetByID(ctx, pid(t, "alice", "bob"))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), conv.LastSeq())

	assert.Equal(t,
		[]string{"request.sent", "request.accepted", "peer.edge_created"},
		env.publisher.EventTypes())
}

func TestConnectionService_Respond_Accept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	request, err := env.connections.SendRequest(ctx, uid(t, "alice"), uid(t, "bob"))
	require.NoError(t, err)

	resolved, err := env.connections.Respond(ctx, request.ID(), uid(t, "bob"), true)
	require.NoError(t, err)
	assert.Equal(t, entities.RequestAccepted, resolved.Status())

	connected, err := env.peers.HasEdge(ctx, pid(t, "alice", "bob"))
	require.NoError(t, err)
	assert.True(t, connected)

	// The pending slot is free again but a new request is blocked by the
	// existing edge.
	_, err = env.requests.GetPendingByPair(ctx, pid(t, "alice", "bob"))
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestConnectionService_Respond_Reject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	request, err := env.connections.SendRequest(ctx, uid(t, "alice"), uid(t, "bob"))
	require.NoError(t, err)

	resolved, err := env.connections.Respond(ctx, request.ID(), uid(t, "bob"), false)
	require.NoError(t, err)
	assert.Equal(t, entities.RequestRejected, resolved.Status())

	connected, err := env.peers.HasEdge(ctx, pid(t, "alice", "bob"))
	require.NoError(t, err)
	assert.False(t, connected)

	// Rejection frees the pair: a fresh request goes through.
	again, err := env.connections.SendRequest(ctx, uid(t, "alice"), uid(t, "bob"))
	require.NoError(t, err)
	assert.Equal(t, entities.RequestPending, again.Status())
	assert.False(t, again.ID().Equals(request.ID()))
}

func TestConnectionService_Respond_OnlyRecipient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	request, err := env.connections.SendRequest(ctx, uid(t, "alice"), uid(t, "bob"))
	require.NoError(t, err)

	_, err = env.connections.Respond(ctx, request.ID(), uid(t, "alice"), true)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPermission(err))

	_, err = env.connections.Respond(ctx, request.ID(), uid(t, "carol"), true)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPermission(err))
}

func TestConnectionService_Respond_AlreadyResolved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	request, err := env.connections.SendRequest(ctx, uid(t, "alice"), uid(t, "bob"))
	require.NoError(t, err)
	_, err = env.connections.Respond(ctx, request.ID(), uid(t, "bob"), false)
	require.NoError(t, err)

	// A resolved request cannot be responded to again.
	_, err = env.connections.Respond(ctx, request.ID(), uid(t, "bob"), true)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestConnectionService_RemovePeer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "alice", "bob")

	require.NoError(t, env.connections.RemovePeer(ctx, uid(t, "alice"), uid(t, "bob")))

	connected, err := env.peers.HasEdge(ctx, pid(t, "alice", "bob"))
	require.NoError(t, err)
	assert.False(t, connected)

	// History is preserved after removal.
	_, err = env.conversations.GetByID(ctx, pid(t, "alice", "bob"))
	assert.NoError(t, err)

	// Removing an absent edge is NotFound.
	err = env.connections.RemovePeer(ctx, uid(t, "alice"), uid(t, "bob"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestConnectionService_ListPeers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "alice", "bob")
	env.connect(t, "alice", "carol")
	env.connect(t, "dave", "alice")

	edges, err := env.connections.ListPeers(ctx, uid(t, "alice"))
	require.NoError(t, err)
	require.Len(t, edges, 3)

	// Newest connection first.
	for i := 1; i < len(edges); i++ {
		assert.False(t, edges[i-1].CreatedAt().Before(edges[i].CreatedAt()))
	}

	edges, err = env.connections.ListPeers(ctx, uid(t, "bob"))
	require.NoError(t, err)
	require.Len(t, edges, 1)
	peer, ok := edges[0].PeerOf(uid(t, "bob"))
	require.True(t, ok)
	assert.Equal(t, "alice", peer.String())
}

func TestConnectionService_ListPendingRequests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.connections.SendRequest(ctx, uid(t, "bob"), uid(t, "alice"))
	require.NoError(t, err)
	_, err = env.connections.SendRequest(ctx, uid(t, "carol"), uid(t, "alice"))
	require.NoError(t, err)
	_, err = env.connections.SendRequest(ctx, uid(t, "alice"), uid(t, "dave"))
	require.NoError(t, err)

	// Only incoming requests show up, newest first.
	incoming, err := env.connections.ListPendingRequests(ctx, uid(t, "alice"))
	require.NoError(t, err)
	require.Len(t, incoming, 2)
	assert.Equal(t, "carol", incoming[0].Requester().String())
	assert.Equal(t, "bob", incoming[1].Requester().String())

	incoming, err = env.connections.ListPendingRequests(ctx, uid(t, "dave"))
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "alice", incoming[0].Requester().String())
}
