package entities

import (
	"time"

	"peerbridge-backend/domain/core/valueobjects"
	pkgerrors "peerbridge-backend/pkg/errors"
)

// PeerEdge is the undirected, mutually-accepted connection between two
// users. Exactly one edge exists per pair while the connection is
// active; its identity is the PairID. Removing the edge does not touch
// the conversation history that was written while it existed.
type PeerEdge struct {
	pair      valueobjects.PairID
	createdAt time.Time
}

// NewPeerEdge creates an edge for the given pair.
func NewPeerEdge(pair valueobjects.PairID) (*PeerEdge, error) {
	if pair.IsZero() {
		return nil, pkgerrors.NewValidationError("pair is required")
	}
	return &PeerEdge{
		pair:      pair,
		createdAt: time.Now(),
	}, nil
}

// ReconstructPeerEdge rebuilds an edge from repository data with its
// original creation time.
func ReconstructPeerEdge(pair valueobjects.PairID, createdAt time.Time) (*PeerEdge, error) {
	if pair.IsZero() {
		return nil, pkgerrors.NewValidationError("pair is required")
	}
	return &PeerEdge{
		pair:      pair,
		createdAt: createdAt,
	}, nil
}

// Pair returns the edge's identity.
func (e *PeerEdge) Pair() valueobjects.PairID {
	return e.pair
}

// Users returns both endpoints in canonical order.
func (e *PeerEdge) Users() (valueobjects.UserID, valueobjects.UserID) {
	return e.pair.Users()
}

// PeerOf returns the endpoint opposite the given user.
func (e *PeerEdge) PeerOf(u valueobjects.UserID) (valueobjects.UserID, bool) {
	return e.pair.Other(u)
}

// CreatedAt returns when the edge was created.
func (e *PeerEdge) CreatedAt() time.Time {
	return e.createdAt
}
