package services

import (
	"context"

	"go.uber.org/zap"

	"peerbridge-backend/application/ports"
	"peerbridge-backend/domain/core/entities"
	"peerbridge-backend/domain/core/valueobjects"
	"peerbridge-backend/domain/events"
	pkgerrors "peerbridge-backend/pkg/errors"
	"peerbridge-backend/pkg/observability"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// MessagingService appends messages and reads conversation history.
// Sending requires a live peer edge; reading does not, so history stays
// available after an edge is removed.
type MessagingService struct {
	conversations ports.ConversationRepository
	peers         ports.PeerRepository
	publisher     ports.EventPublisher
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewMessagingService creates a messaging service.
func NewMessagingService(
	conversations ports.ConversationRepository,
	peers ports.PeerRepository,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *MessagingService {
	return &MessagingService{
		conversations: conversations,
		peers:         peers,
		publisher:     publisher,
		metrics:       metrics,
		logger:        logger.Named("messaging_service"),
	}
}

// Send appends a message to the conversation. The sender must be a
// party to the conversation, and the pair's edge must still exist at
// call time.
func (s *MessagingService) Send(ctx context.Context, actor valueobjects.UserID, conversationID valueobjects.PairID, bodyText string) (*entities.Message, error) {
	body, err := valueobjects.NewMessageBody(bodyText)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	if !conversationID.Contains(actor) {
		return nil, pkgerrors.NewPermissionError("user is not a party to this conversation")
	}

	connected, err := s.peers.HasEdge(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, pkgerrors.NewNotFoundError("no active connection for this conversation")
	}

	message, err := s.conversations.Append(ctx, conversationID, actor, body)
	if err != nil {
		return nil, err
	}

	recipient, _ := conversationID.Other(actor)
	if err := s.publisher.Publish(ctx, events.NewMessageSent(conversationID, actor, recipient, message.Sequence(), message.SentAt())); err != nil {
		s.logger.Warn("failed to publish message event", zap.Error(err))
	}

	s.metrics.MessagesSent.Inc()
	s.logger.Debug("message sent",
		zap.String("conversationId", conversationID.String()),
		zap.Uint64("sequence", message.Sequence()))
	return message, nil
}

// ListConversation returns messages with sequence greater than afterSeq
// in ascending order, up to limit. A zero or negative limit falls back
// to the default page size.
func (s *MessagingService) ListConversation(ctx context.Context, actor valueobjects.UserID, conversationID valueobjects.PairID, afterSeq uint64, limit int) ([]*entities.Message, error) {
	if !conversationID.Contains(actor) {
		return nil, pkgerrors.NewPermissionError("user is not a party to this conversation")
	}
	if _, err := s.conversations.GetByID(ctx, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.conversations.ListMessages(ctx, conversationID, afterSeq, limit)
}
