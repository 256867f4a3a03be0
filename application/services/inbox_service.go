package services

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"peerbridge-backend/application/ports"
	"peerbridge-backend/domain/core/valueobjects"
	"peerbridge-backend/domain/events"
	pkgerrors "peerbridge-backend/pkg/errors"
)

// ConversationSummary is one inbox row: the conversation, its
// counterparty, the latest message, and how many messages the viewer
// has not read yet.
type ConversationSummary struct {
	ConversationID valueobjects.PairID `json:"conversation_id"`
	PeerID         valueobjects.UserID `json:"peer_id"`
	PeerProfile    *ports.Profile      `json:"peer_profile,omitempty"`
	LastBody       string              `json:"last_body,omitempty"`
	LastSequence   uint64              `json:"last_sequence"`
	LastSender     valueobjects.UserID `json:"last_sender,omitempty"`
	LastActivity   time.Time           `json:"last_activity"`
	UnreadCount    int                 `json:"unread_count"`
}

// InboxService derives per-viewer read state from conversation logs and
// read markers. It never mutates message history.
type InboxService struct {
	conversations ports.ConversationRepository
	profiles      ports.ProfileRepository
	publisher     ports.EventPublisher
	logger        *zap.Logger
}

// NewInboxService creates an inbox service.
func NewInboxService(
	conversations ports.ConversationRepository,
	profiles ports.ProfileRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *InboxService {
	return &InboxService{
		conversations: conversations,
		profiles:      profiles,
		publisher:     publisher,
		logger:        logger.Named("inbox_service"),
	}
}

// MarkRead records that the viewer has read the conversation through
// throughSeq. Markers only move forward; marking an already-read prefix
// again is a no-op. A marker past the current tail is stored as given,
// since unread counts derive from messages newer than the marker it can
// never go negative.
func (s *InboxService) MarkRead(ctx context.Context, actor valueobjects.UserID, conversationID valueobjects.PairID, throughSeq uint64) error {
	if !conversationID.Contains(actor) {
		return pkgerrors.NewPermissionError("user is not a party to this conversation")
	}
	if _, err := s.conversations.GetByID(ctx, conversationID); err != nil {
		return err
	}
	if err := s.conversations.SetReadMarker(ctx, conversationID, actor, throughSeq); err != nil {
		return err
	}

	if err := s.publisher.Publish(ctx, events.NewConversationRead(conversationID, actor, throughSeq, time.Now())); err != nil {
		s.logger.Warn("failed to publish read event", zap.Error(err))
	}
	return nil
}

// UnreadCount returns how many messages in the conversation the viewer
// has not read, excluding the viewer's own messages.
func (s *InboxService) UnreadCount(ctx context.Context, actor valueobjects.UserID, conversationID valueobjects.PairID) (int, error) {
	if !conversationID.Contains(actor) {
		return 0, pkgerrors.NewPermissionError("user is not a party to this conversation")
	}
	if _, err := s.conversations.GetByID(ctx, conversationID); err != nil {
		return 0, err
	}
	marker, err := s.conversations.ReadMarker(ctx, conversationID, actor)
	if err != nil {
		return 0, err
	}
	return s.conversations.CountSince(ctx, conversationID, marker, actor)
}

// ListInbox returns the viewer's conversations, most recent activity
// first. Conversations with no messages yet sort by creation time, after
// everything with traffic.
func (s *InboxService) ListInbox(ctx context.Context, actor valueobjects.UserID) ([]ConversationSummary, error) {
	conversations, err := s.conversations.ListForUser(ctx, actor)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	peerIDs := make([]valueobjects.UserID, 0, len(conversations))
	for _, conversation := range conversations {
		peer, ok := conversation.ID().Other(actor)
		if !ok {
			continue
		}
		peerIDs = append(peerIDs, peer)

		summary := ConversationSummary{
			ConversationID: conversation.ID(),
			PeerID:         peer,
			LastActivity:   conversation.CreatedAt(),
		}

		latest, err := s.conversations.LatestMessage(ctx, conversation.ID())
		if err != nil {
			return nil, err
		}
		if latest != nil {
			summary.LastBody = latest.Body().String()
			summary.LastSequence = latest.Sequence()
			summary.LastSender = latest.Sender()
			summary.LastActivity = latest.SentAt()
		}

		marker, err := s.conversations.ReadMarker(ctx, conversation.ID(), actor)
		if err != nil {
			return nil, err
		}
		unread, err := s.conversations.CountSince(ctx, conversation.ID(), marker, actor)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread
		summaries = append(summaries, summary)
	}

	if len(peerIDs) > 0 {
		profiles, err := s.profiles.GetBatch(ctx, peerIDs)
		if err != nil {
			s.logger.Warn("profile lookup failed, returning undecorated inbox", zap.Error(err))
		} else {
			for i := range summaries {
				summaries[i].PeerProfile = profiles[summaries[i].PeerID.String()]
			}
		}
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].LastSequence == 0 || summaries[j].LastSequence == 0 {
			if (summaries[i].LastSequence == 0) != (summaries[j].LastSequence == 0) {
				return summaries[j].LastSequence == 0
			}
		}
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})
	return summaries, nil
}
