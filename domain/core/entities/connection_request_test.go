package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerbridge-backend/domain/core/valueobjects"
	pkgerrors "peerbridge-backend/pkg/errors"
)

func testUser(t *testing.T, s string) valueobjects.UserID {
	t.Helper()
	id, err := valueobjects.NewUserID(s)
	require.NoError(t, err)
	return id
}

func TestNewConnectionRequest(t *testing.T) {
	alice := testUser(t, "alice")
	bob := testUser(t, "bob")

	req, err := NewConnectionRequest(alice, bob)
	require.NoError(t, err)

	assert.False(t, req.ID().IsZero())
	assert.Equal(t, RequestPending, req.Status())
	assert.True(t, req.IsPending())
	assert.Equal(t, alice, req.Requester())
	assert.Equal(t, bob, req.Recipient())
	assert.Equal(t, "alice#bob", req.Pair().String())
	assert.True(t, req.RespondedAt().IsZero())

	events := req.GetUncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "request.sent", events[0].GetEventType())
}

func TestNewConnectionRequest_SelfRequest(t *testing.T) {
	alice := testUser(t, "alice")

	_, err := NewConnectionRequest(alice, alice)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestConnectionRequest_Accept(t *testing.T) {
	alice := testUser(t, "alice")
	bob := testUser(t, "bob")

	req, err := NewConnectionRequest(alice, bob)
	require.NoError(t, err)
	req.MarkEventsAsCommitted()

	require.NoError(t, req.Accept(bob))
	assert.Equal(t, RequestAccepted, req.Status())
	assert.False(t, req.IsPending())
	assert.False(t, req.RespondedAt().IsZero())

	events := req.GetUncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "request.accepted", events[0].GetEventType())
}

func TestConnectionRequest_RequesterCannotRespond(t *testing.T) {
	alice := testUser(t, "alice")
	bob := testUser(t, "bob")

	req, err := NewConnectionRequest(alice, bob)
	require.NoError(t, err)

	err = req.Accept(alice)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPermission(err))
	assert.True(t, req.IsPending())

	err = req.Reject(alice)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPermission(err))
}

func TestConnectionRequest_OutsiderCannotRespond(t *testing.T) {
	alice := testUser(t, "alice")
	bob := testUser(t, "bob")
	carol := testUser(t, "carol")

	req, err := NewConnectionRequest(alice, bob)
	require.NoError(t, err)

	err = req.Accept(carol)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPermission(err))
}

func TestConnectionRequest_TerminalStatesAreFinal(t *testing.T) {
	alice := testUser(t, "alice")
	bob := testUser(t, "bob")

	t.Run("accepted stays accepted", func(t *testing.T) {
		req, err := NewConnectionRequest(alice, bob)
		require.NoError(t, err)
		require.NoError(t, req.Accept(bob))

		err = req.Reject(bob)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsConflict(err))
		assert.Equal(t, RequestAccepted, req.Status())
	})

	t.Run("rejected stays rejected", func(t *testing.T) {
		req, err := NewConnectionRequest(alice, bob)
		require.NoError(t, err)
		require.NoError(t, req.Reject(bob))

		err = req.Accept(bob)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsConflict(err))
		assert.Equal(t, RequestRejected, req.Status())
	})
}
