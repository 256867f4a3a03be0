package entities

import (
	"time"

	"peerbridge-backend/domain/core/valueobjects"
	"peerbridge-backend/domain/events"
	pkgerrors "peerbridge-backend/pkg/errors"
)

// RequestStatus represents the state of a connection request
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// IsTerminal reports whether the status permits no further transitions.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestAccepted || s == RequestRejected
}

// ConnectionRequest is the entity governing how two users become peers.
// A request is created by the requester, and only the recipient may move
// it to a terminal state. At most one pending request exists per pair;
// that invariant is enforced by the connection service under the pair
// lock, not here.
type ConnectionRequest struct {
	id          valueobjects.RequestID
	pair        valueobjects.PairID
	requester   valueobjects.UserID
	recipient   valueobjects.UserID
	status      RequestStatus
	createdAt   time.Time
	respondedAt time.Time

	// Domain events that occurred during this entity's lifetime
	events []events.DomainEvent
}

// NewConnectionRequest creates a pending request from requester to recipient.
func NewConnectionRequest(requester, recipient valueobjects.UserID) (*ConnectionRequest, error) {
	if requester.IsZero() || recipient.IsZero() {
		return nil, pkgerrors.NewValidationError("requester and recipient are required")
	}
	if requester.Equals(recipient) {
		return nil, pkgerrors.NewValidationError("cannot send a connection request to yourself")
	}

	pair, err := valueobjects.NewPairID(requester, recipient)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	now := time.Now()
	r := &ConnectionRequest{
		id:        valueobjects.NewRequestID(),
		pair:      pair,
		requester: requester,
		recipient: recipient,
		status:    RequestPending,
		createdAt: now,
		events:    []events.DomainEvent{},
	}

	r.addEvent(events.NewRequestSent(r.id, pair, requester, recipient, now))

	return r, nil
}

// ReconstructConnectionRequest rebuilds a request from repository data.
func ReconstructConnectionRequest(
	id valueobjects.RequestID,
	requester, recipient valueobjects.UserID,
	status RequestStatus,
	createdAt, respondedAt time.Time,
) (*ConnectionRequest, error) {
	pair, err := valueobjects.NewPairID(requester, recipient)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	return &ConnectionRequest{
		id:          id,
		pair:        pair,
		requester:   requester,
		recipient:   recipient,
		status:      status,
		createdAt:   createdAt,
		respondedAt: respondedAt,
		events:      []events.DomainEvent{},
	}, nil
}

// ID returns the request's unique identifier.
func (r *ConnectionRequest) ID() valueobjects.RequestID {
	return r.id
}

// Pair returns the unordered pair the request belongs to.
func (r *ConnectionRequest) Pair() valueobjects.PairID {
	return r.pair
}

// Requester returns the user who sent the request.
func (r *ConnectionRequest) Requester() valueobjects.UserID {
	return r.requester
}

// Recipient returns the user the request is addressed to.
func (r *ConnectionRequest) Recipient() valueobjects.UserID {
	return r.recipient
}

// Status returns the request's current status.
func (r *ConnectionRequest) Status() RequestStatus {
	return r.status
}

// IsPending reports whether the request is still awaiting a response.
func (r *ConnectionRequest) IsPending() bool {
	return r.status == RequestPending
}

// CreatedAt returns when the request was sent.
func (r *ConnectionRequest) CreatedAt() time.Time {
	return r.createdAt
}

// RespondedAt returns when the request reached a terminal state.
// Zero while the request is pending.
func (r *ConnectionRequest) RespondedAt() time.Time {
	return r.respondedAt
}

// Accept transitions the request to accepted. Only the recipient may
// accept, and only while the request is pending. Terminal states are
// final; the caller creates the peer edge as a separate step.
func (r *ConnectionRequest) Accept(by valueobjects.UserID) error {
	if err := r.guardResponse(by); err != nil {
		return err
	}

	r.status = RequestAccepted
	r.respondedAt = time.Now()

	r.addEvent(events.NewRequestAccepted(r.id, r.pair, r.requester, r.recipient, r.respondedAt))

	return nil
}

// Reject transitions the request to rejected. The pair returns to its
// implicit initial state: a fresh request may be sent immediately.
func (r *ConnectionRequest) Reject(by valueobjects.UserID) error {
	if err := r.guardResponse(by); err != nil {
		return err
	}

	r.status = RequestRejected
	r.respondedAt = time.Now()

	r.addEvent(events.NewRequestRejected(r.id, r.pair, r.requester, r.recipient, r.respondedAt))

	return nil
}

// guardResponse checks the shared preconditions for accept and reject.
func (r *ConnectionRequest) guardResponse(by valueobjects.UserID) error {
	if !r.recipient.Equals(by) {
		return pkgerrors.NewPermissionError("only the recipient can respond to a connection request")
	}
	if r.status.IsTerminal() {
		return pkgerrors.NewConflictError("connection request already resolved")
	}
	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (r *ConnectionRequest) GetUncommittedEvents() []events.DomainEvent {
	return r.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (r *ConnectionRequest) MarkEventsAsCommitted() {
	r.events = []events.DomainEvent{}
}

func (r *ConnectionRequest) addEvent(event events.DomainEvent) {
	r.events = append(r.events, event)
}
