package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerbridge-backend/application/ports"
	pkgerrors "peerbridge-backend/pkg/errors"
)

func setTags(t *testing.T, env *testEnv, user string, tags ...string) {
	t.Helper()
	require.NoError(t, env.matching.ReplaceTags(context.Background(), uid(t, user), tags))
}

func TestMatchingService_Tags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := uid(t, "alice")

	require.NoError(t, env.matching.AddTag(ctx, alice, "Anxiety"))
	require.NoError(t, env.matching.AddTag(ctx, alice, "  grief "))
	require.NoError(t, env.matching.AddTag(ctx, alice, "anxiety")) // duplicate after normalization

	tags, err := env.matching.TagsOf(ctx, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"anxiety", "grief"}, tags)

	require.NoError(t, env.matching.RemoveTag(ctx, alice, "GRIEF"))
	tags, err = env.matching.TagsOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"anxiety"}, tags)
}

func TestMatchingService_TagValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := uid(t, "alice")

	err := env.matching.AddTag(ctx, alice, "   ")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	err = env.matching.AddTag(ctx, alice, strings.Repeat("a", 65))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	over := make([]string, 26)
	for i := range over {
		over[i] = fmt.Sprintf("tag%d", i)
	}
	err = env.matching.ReplaceTags(ctx, alice, over)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestMatchingService_CandidatesFor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	setTags(t, env, "alice", "anxiety", "grief", "insomnia")
	setTags(t, env, "bob", "anxiety", "grief")
	setTags(t, env, "carol", "grief")
	setTags(t, env, "dave", "burnout")

	candidates, err := env.matching.CandidatesFor(ctx, uid(t, "alice"))
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// Largest overlap first.
	assert.Equal(t, "bob", candidates[0].UserID.String())
	assert.Equal(t, []string{"anxiety", "grief"}, candidates[0].SharedTags)
	assert.Equal(t, "carol", candidates[1].UserID.String())
	assert.Equal(t, []string{"grief"}, candidates[1].SharedTags)
}

func TestMatchingService_CandidatesFor_NoTags(t *testing.T) {
	env := newTestEnv(t)

	candidates, err := env.matching.CandidatesFor(context.Background(), uid(t, "alice"))
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestMatchingService_CandidatesFor_ExcludesPeersAndPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	setTags(t, env, "alice", "anxiety")
	setTags(t, env, "bob", "anxiety")
	setTags(t, env, "carol", "anxiety")
	setTags(t, env, "dave", "anxiety")

	// Bob is already a peer.
	env.connect(t, "alice", "bob")

	// Carol has a pending request toward Alice.
	_, err := env.connections.SendRequest(ctx, uid(t, "carol"), uid(t, "alice"))
	require.NoError(t, err)

	candidates, err := env.matching.CandidatesFor(ctx, uid(t, "alice"))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "dave", candidates[0].UserID.String())

	// Removing the edge puts Bob back in the candidate pool.
	require.NoError(t, env.connections.RemovePeer(ctx, uid(t, "alice"), uid(t, "bob")))
	candidates, err = env.matching.CandidatesFor(ctx, uid(t, "alice"))
	require.NoError(t, err)

	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.UserID.String())
	}
	assert.ElementsMatch(t, []string{"bob", "dave"}, names)
}

func TestMatchingService_CandidatesFor_ProfileDecoration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	setTags(t, env, "alice", "anxiety")
	setTags(t, env, "bob", "anxiety")
	env.profiles.Seed(&ports.Profile{
		UserID:      uid(t, "bob"),
		Username:    "bob",
		DisplayName: "Bob",
	})

	candidates, err := env.matching.CandidatesFor(ctx, uid(t, "alice"))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.NotNil(t, candidates[0].Profile)
	assert.Equal(t, "Bob", candidates[0].Profile.DisplayName)
}
