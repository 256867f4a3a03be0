package entities

import (
	"time"

	"peerbridge-backend/domain/core/valueobjects"
	pkgerrors "peerbridge-backend/pkg/errors"
)

// Message is one immutable entry in a conversation's log. Sequence
// numbers are assigned by the conversation at append time — never by the
// client — so ordering does not depend on sender clocks. Read state
// lives on the conversation as per-user markers, not on the message.
type Message struct {
	conversationID valueobjects.PairID
	sender         valueobjects.UserID
	body           valueobjects.MessageBody
	sequence       uint64
	sentAt         time.Time
}

// ReconstructMessage rebuilds a message from repository data. New
// messages are only ever created through Conversation.Append, which owns
// sequence assignment.
func ReconstructMessage(
	conversationID valueobjects.PairID,
	sender valueobjects.UserID,
	body valueobjects.MessageBody,
	sequence uint64,
	sentAt time.Time,
) (*Message, error) {
	if sequence == 0 {
		return nil, pkgerrors.NewValidationError("message sequence starts at 1")
	}
	if sender.IsZero() || body.IsZero() {
		return nil, pkgerrors.NewValidationError("message requires a sender and a body")
	}
	return &Message{
		conversationID: conversationID,
		sender:         sender,
		body:           body,
		sequence:       sequence,
		sentAt:         sentAt,
	}, nil
}

// ConversationID returns the conversation the message belongs to.
func (m *Message) ConversationID() valueobjects.PairID {
	return m.conversationID
}

// Sender returns the user who sent the message.
func (m *Message) Sender() valueobjects.UserID {
	return m.sender
}

// Body returns the message text.
func (m *Message) Body() valueobjects.MessageBody {
	return m.body
}

// Sequence returns the message's position in the conversation, starting
// at 1 with no gaps.
func (m *Message) Sequence() uint64 {
	return m.sequence
}

// SentAt returns when the message was appended.
func (m *Message) SentAt() time.Time {
	return m.sentAt
}
