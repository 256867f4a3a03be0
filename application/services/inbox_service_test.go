package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerbridge-backend/application/ports"
	pkgerrors "peerbridge-backend/pkg/errors"
)

func TestInboxService_UnreadCountExcludesOwnMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "alice", "bob")
	conv := pid(t, "alice", "bob")

	_, err := env.messaging.Send(ctx, uid(t, "alice"), conv, "one")
	require.NoError(t, err)
	_, err = env.messaging.Send(ctx, uid(t, "alice"), conv, "two")
	require.NoError(t, err)
	_, err = env.messaging.Send(ctx, uid(t, "bob"), conv, "three")
	require.NoError(t, err)

	// Bob has two unread from Alice; his own message does not count.
	unread, err := env.inbox.UnreadCount(ctx, uid(t, "bob"), conv)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	// Alice has one unread from Bob.
	unread, err = env.inbox.UnreadCount(ctx, uid(t, "alice"), conv)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestInboxService_MarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "alice", "bob")
	conv := pid(t, "alice", "bob")

	for _, body := range []string{"one", "two", "three"} {
		_, err := env.messaging.Send(ctx, uid(t, "alice"), conv, body)
		require.NoError(t, err)
	}

	require.NoError(t, env.inbox.MarkRead(ctx, uid(t, "bob"), conv, 2))
	unread, err := env.inbox.UnreadCount(ctx, uid(t, "bob"), conv)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	// Markers only move forward; re-reading a prefix changes nothing.
	require.NoError(t, env.inbox.MarkRead(ctx, uid(t, "bob"), conv, 1))
	unread, err = env.inbox.UnreadCount(ctx, uid(t, "bob"), conv)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	require.NoError(t, env.inbox.MarkRead(ctx, uid(t, "bob"), conv, 3))
	unread, err = env.inbox.UnreadCount(ctx, uid(t, "bob"), conv)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	// One marker per viewer: Alice's state is untouched.
	unread, err = env.inbox.UnreadCount(ctx, uid(t, "alice"), conv)
	require.NoError(t, err)
	assert.Equal(t, 0, unread) // all three are her own messages
}

func TestInboxService_MarkRead_PastTail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "alice", "bob")
	conv := pid(t, "alice", "bob")

	_, err := env.messaging.Send(ctx, uid(t, "alice"), conv, "one")
	require.NoError(t, err)

	// A marker past the tail is accepted; unread can never go negative.
	require.NoError(t, env.inbox.MarkRead(ctx, uid(t, "bob"), conv, 99))
	unread, err := env.inbox.UnreadCount(ctx, uid(t, "bob"), conv)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	_, err = env.messaging.Send(ctx, uid(t, "alice"), conv, "two")
	require.NoError(t, err)
	unread, err = env.inbox.UnreadCount(ctx, uid(t, "bob"), conv)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
}

func TestInboxService_MarkRead_Guards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "alice", "bob")
	conv := pid(t, "alice", "bob")

	err := env.inbox.MarkRead(ctx, uid(t, "carol"), conv, 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPermission(err))

	err = env.inbox.MarkRead(ctx, uid(t, "alice"), pid(t, "alice", "carol"), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestInboxService_ListInbox(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "alice", "bob")
	env.connect(t, "alice", "carol")
	env.connect(t, "alice", "dave")

	// Traffic: bob first, then carol. Dave's conversation stays empty.
	_, err := env.messaging.Send(ctx, uid(t, "bob"), pid(t, "alice", "bob"), "from bob")
	require.NoError(t, err)
	_, err = env.messaging.Send(ctx, uid(t, "carol"), pid(t, "alice", "carol"), "from carol")
	require.NoError(t, err)
	_, err = env.messaging.Send(ctx, uid(t, "carol"), pid(t, "alice", "carol"), "again")
	require.NoError(t, err)

	env.profiles.Seed(&ports.Profile{UserID: uid(t, "carol"), Username: "carol", DisplayName: "Carol"})

	summaries, err := env.inbox.ListInbox(ctx, uid(t, "alice"))
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	// Most recent activity first; empty conversations last.
	assert.Equal(t, "carol", summaries[0].PeerID.String())
	assert.Equal(t, "again", summaries[0].LastBody)
	assert.Equal(t, uint64(2), summaries[0].LastSequence)
	assert.Equal(t, 2, summaries[0].UnreadCount)
	require.NotNil(t, summaries[0].PeerProfile)
	assert.Equal(t, "Carol", summaries[0].PeerProfile.DisplayName)

	assert.Equal(t, "bob", summaries[1].PeerID.String())
	assert.Equal(t, 1, summaries[1].UnreadCount)

	assert.Equal(t, "dave", summaries[2].PeerID.String())
	assert.Equal(t, uint64(0), summaries[2].LastSequence)
	assert.Equal(t, 0, summaries[2].UnreadCount)

	// Reading Carol's conversation clears its unread count.
	require.NoError(t, env.inbox.MarkRead(ctx, uid(t, "alice"), pid(t, "alice", "carol"), 2))
	summaries, err = env.inbox.ListInbox(ctx, uid(t, "alice"))
	require.NoError(t, err)
	assert.Equal(t, 0, summaries[0].UnreadCount)
}

func TestInboxService_ListInbox_SurvivesEdgeRemoval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "alice", "bob")

	_, err := env.messaging.Send(ctx, uid(t, "bob"), pid(t, "alice", "bob"), "hello")
	require.NoError(t, err)
	require.NoError(t, env.connections.RemovePeer(ctx, uid(t, "alice"), uid(t, "bob")))

	summaries, err := env.inbox.ListInbox(ctx, uid(t, "alice"))
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "hello", summaries[0].LastBody)
	assert.Equal(t, 1, summaries[0].UnreadCount)
}

func TestInboxService_ListInbox_Empty(t *testing.T) {
	env := newTestEnv(t)

	summaries, err := env.inbox.ListInbox(context.Background(), uid(t, "alice"))
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
