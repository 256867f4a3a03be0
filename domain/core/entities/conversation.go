package entities

import (
	"time"

	"peerbridge-backend/domain/core/valueobjects"
	pkgerrors "peerbridge-backend/pkg/errors"
)

// Conversation is the ordered message log belonging to one peer edge.
// It is created eagerly when the edge is created and survives edge
// removal as read-only history. The entity owns sequence assignment:
// Append hands out strictly increasing, gapless sequence numbers. The
// DynamoDB repository enforces the same rule with a conditional write
// instead of loading the whole entity.
type Conversation struct {
	id          valueobjects.PairID
	nextSeq     uint64
	readMarkers map[string]uint64 // user id -> highest sequence read
	createdAt   time.Time
}

// NewConversation creates an empty conversation for a pair.
func NewConversation(pair valueobjects.PairID) (*Conversation, error) {
	if pair.IsZero() {
		return nil, pkgerrors.NewValidationError("pair is required")
	}
	return &Conversation{
		id:          pair,
		nextSeq:     1,
		readMarkers: make(map[string]uint64),
		createdAt:   time.Now(),
	}, nil
}

// ReconstructConversation rebuilds a conversation from repository data.
func ReconstructConversation(
	pair valueobjects.PairID,
	nextSeq uint64,
	readMarkers map[string]uint64,
	createdAt time.Time,
) (*Conversation, error) {
	if pair.IsZero() {
		return nil, pkgerrors.NewValidationError("pair is required")
	}
	if nextSeq == 0 {
		nextSeq = 1
	}
	if readMarkers == nil {
		readMarkers = make(map[string]uint64)
	}
	return &Conversation{
		id:          pair,
		nextSeq:     nextSeq,
		readMarkers: readMarkers,
		createdAt:   createdAt,
	}, nil
}

// ID returns the conversation's identity, which is the pair id of the
// peer edge it belongs to.
func (c *Conversation) ID() valueobjects.PairID {
	return c.id
}

// NextSeq returns the sequence number the next appended message will get.
func (c *Conversation) NextSeq() uint64 {
	return c.nextSeq
}

// LastSeq returns the highest sequence number assigned so far, 0 when
// the conversation is empty.
func (c *Conversation) LastSeq() uint64 {
	return c.nextSeq - 1
}

// CreatedAt returns when the conversation was created.
func (c *Conversation) CreatedAt() time.Time {
	return c.createdAt
}

// Append assigns the next sequence number to a new message from sender.
// Membership of the sender in the pair must already have been checked by
// the caller; the conversation only guards ordering.
func (c *Conversation) Append(sender valueobjects.UserID, body valueobjects.MessageBody) (*Message, error) {
	if !c.id.Contains(sender) {
		return nil, pkgerrors.NewPermissionError("sender is not part of this conversation")
	}

	msg, err := ReconstructMessage(c.id, sender, body, c.nextSeq, time.Now())
	if err != nil {
		return nil, err
	}

	c.nextSeq++
	return msg, nil
}

// MarkRead records that the user has read through the given sequence
// number. The marker is monotonic: a lower value than the current marker
// is ignored, which keeps the operation idempotent under retries.
func (c *Conversation) MarkRead(user valueobjects.UserID, throughSeq uint64) error {
	if !c.id.Contains(user) {
		return pkgerrors.NewPermissionError("user is not part of this conversation")
	}
	if throughSeq > c.readMarkers[user.String()] {
		c.readMarkers[user.String()] = throughSeq
	}
	return nil
}

// ReadMarker returns the highest sequence the user has read, 0 when
// nothing has been marked.
func (c *Conversation) ReadMarker(user valueobjects.UserID) uint64 {
	return c.readMarkers[user.String()]
}

// ReadMarkers returns a copy of all read markers keyed by user id.
func (c *Conversation) ReadMarkers() map[string]uint64 {
	out := make(map[string]uint64, len(c.readMarkers))
	for k, v := range c.readMarkers {
		out[k] = v
	}
	return out
}
