package events

import (
	"time"

	"peerbridge-backend/domain/core/valueobjects"
)

// SourceBackend identifies this service as the source of outbound events.
const SourceBackend = "peerbridge.backend"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Connection request events

// RequestSent is raised when a connection request is created
type RequestSent struct {
	BaseEvent
	RequestID valueobjects.RequestID `json:"request_id"`
	PairID    valueobjects.PairID    `json:"pair_id"`
	Requester valueobjects.UserID    `json:"requester"`
	Recipient valueobjects.UserID    `json:"recipient"`
}

// NewRequestSent creates a RequestSent event
func NewRequestSent(requestID valueobjects.RequestID, pairID valueobjects.PairID, requester, recipient valueobjects.UserID, timestamp time.Time) RequestSent {
	return RequestSent{
		BaseEvent: BaseEvent{
			AggregateID: pairID.String(),
			EventType:   "request.sent",
			Timestamp:   timestamp,
			Version:     1,
		},
		RequestID: requestID,
		PairID:    pairID,
		Requester: requester,
		Recipient: recipient,
	}
}

// RequestAccepted is raised when the recipient accepts a connection request
type RequestAccepted struct {
	BaseEvent
	RequestID valueobjects.RequestID `json:"request_id"`
	PairID    valueobjects.PairID    `json:"pair_id"`
	Requester valueobjects.UserID    `json:"requester"`
	Recipient valueobjects.UserID    `json:"recipient"`
}

// NewRequestAccepted creates a RequestAccepted event
func NewRequestAccepted(requestID valueobjects.RequestID, pairID valueobjects.PairID, requester, recipient valueobjects.UserID, timestamp time.Time) RequestAccepted {
	return RequestAccepted{
		BaseEvent: BaseEvent{
			AggregateID: pairID.String(),
			EventType:   "request.accepted",
			Timestamp:   timestamp,
			Version:     1,
		},
		RequestID: requestID,
		PairID:    pairID,
		Requester: requester,
		Recipient: recipient,
	}
}

// RequestRejected is raised when the recipient rejects a connection request
type RequestRejected struct {
	BaseEvent
	RequestID valueobjects.RequestID `json:"request_id"`
	PairID    valueobjects.PairID    `json:"pair_id"`
	Requester valueobjects.UserID    `json:"requester"`
	Recipient valueobjects.UserID    `json:"recipient"`
}

// NewRequestRejected creates a RequestRejected event
func NewRequestRejected(requestID valueobjects.RequestID, pairID valueobjects.PairID, requester, recipient valueobjects.UserID, timestamp time.Time) RequestRejected {
	return RequestRejected{
		BaseEvent: BaseEvent{
			AggregateID: pairID.String(),
			EventType:   "request.rejected",
			Timestamp:   timestamp,
			Version:     1,
		},
		RequestID: requestID,
		PairID:    pairID,
		Requester: requester,
		Recipient: recipient,
	}
}

// Peer edge events

// PeerEdgeCreated is raised when two users become peers
type PeerEdgeCreated struct {
	BaseEvent
	PairID valueobjects.PairID `json:"pair_id"`
}

// NewPeerEdgeCreated creates a PeerEdgeCreated event
func NewPeerEdgeCreated(pairID valueobjects.PairID, timestamp time.Time) PeerEdgeCreated {
	return PeerEdgeCreated{
		BaseEvent: BaseEvent{
			AggregateID: pairID.String(),
			EventType:   "peer.edge_created",
			Timestamp:   timestamp,
			Version:     1,
		},
		PairID: pairID,
	}
}

// PeerEdgeRemoved is raised when a peer edge is removed. Conversation
// history is retained; only the edge goes away.
type PeerEdgeRemoved struct {
	BaseEvent
	PairID    valueobjects.PairID `json:"pair_id"`
	RemovedBy valueobjects.UserID `json:"removed_by"`
}

// NewPeerEdgeRemoved creates a PeerEdgeRemoved event
func NewPeerEdgeRemoved(pairID valueobjects.PairID, removedBy valueobjects.UserID, timestamp time.Time) PeerEdgeRemoved {
	return PeerEdgeRemoved{
		BaseEvent: BaseEvent{
			AggregateID: pairID.String(),
			EventType:   "peer.edge_removed",
			Timestamp:   timestamp,
			Version:     1,
		},
		PairID:    pairID,
		RemovedBy: removedBy,
	}
}

// Messaging events

// MessageSent is raised when a message is appended to a conversation
type MessageSent struct {
	BaseEvent
	ConversationID valueobjects.PairID `json:"conversation_id"`
	Sender         valueobjects.UserID `json:"sender"`
	Recipient      valueobjects.UserID `json:"recipient"`
	Sequence       uint64              `json:"sequence"`
}

// NewMessageSent creates a MessageSent event
func NewMessageSent(conversationID valueobjects.PairID, sender, recipient valueobjects.UserID, sequence uint64, timestamp time.Time) MessageSent {
	return MessageSent{
		BaseEvent: BaseEvent{
			AggregateID: conversationID.String(),
			EventType:   "message.sent",
			Timestamp:   timestamp,
			Version:     1,
		},
		ConversationID: conversationID,
		Sender:         sender,
		Recipient:      recipient,
		Sequence:       sequence,
	}
}

// ConversationRead is raised when a user advances their read marker
type ConversationRead struct {
	BaseEvent
	ConversationID valueobjects.PairID `json:"conversation_id"`
	Reader         valueobjects.UserID `json:"reader"`
	ThroughSeq     uint64              `json:"through_sequence"`
}

// NewConversationRead creates a ConversationRead event
func NewConversationRead(conversationID valueobjects.PairID, reader valueobjects.UserID, throughSeq uint64, timestamp time.Time) ConversationRead {
	return ConversationRead{
		BaseEvent: BaseEvent{
			AggregateID: conversationID.String(),
			EventType:   "conversation.read",
			Timestamp:   timestamp,
			Version:     1,
		},
		ConversationID: conversationID,
		Reader:         reader,
		ThroughSeq:     throughSeq,
	}
}
