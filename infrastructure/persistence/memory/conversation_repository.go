package memory

import (
	"context"
	"sort"
	"sync"

	"peerbridge-backend/domain/core/entities"
	"peerbridge-backend/domain/core/valueobjects"
	pkgerrors "peerbridge-backend/pkg/errors"
)

type conversationRecord struct {
	mu           sync.Mutex
	conversation *entities.Conversation
	messages     []*entities.Message
}

// ConversationRepository is an in-memory conversation store. A
// per-conversation mutex serializes appends, so sequence numbers stay
// gapless under concurrent senders.
type ConversationRepository struct {
	mu      sync.RWMutex
	records map[string]*conversationRecord
}

// NewConversationRepository creates an empty in-memory conversation store.
func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{records: make(map[string]*conversationRecord)}
}

func (r *ConversationRepository) Create(ctx context.Context, conversation *entities.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[conversation.ID().String()]; exists {
		return nil
	}
	r.records[conversation.ID().String()] = &conversationRecord{conversation: conversation}
	return nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id valueobjects.PairID) (*entities.Conversation, error) {
	record, err := r.record(id)
	if err != nil {
		return nil, err
	}
	record.mu.Lock()
	defer record.mu.Unlock()
	return entities.ReconstructConversation(
		record.conversation.ID(),
		record.conversation.NextSeq(),
		record.conversation.ReadMarkers(),
		record.conversation.CreatedAt(),
	)
}

func (r *ConversationRepository) ListForUser(ctx context.Context, user valueobjects.UserID) ([]*entities.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conversations := make([]*entities.Conversation, 0)
	for _, record := range r.records {
		record.mu.Lock()
		if record.conversation.ID().Contains(user) {
			copied, err := entities.ReconstructConversation(
				record.conversation.ID(),
				record.conversation.NextSeq(),
				record.conversation.ReadMarkers(),
				record.conversation.CreatedAt(),
			)
			if err != nil {
				record.mu.Unlock()
				return nil, err
			}
			conversations = append(conversations, copied)
		}
		record.mu.Unlock()
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].CreatedAt().After(conversations[j].CreatedAt())
	})
	return conversations, nil
}

func (r *ConversationRepository) Append(ctx context.Context, id valueobjects.PairID, sender valueobjects.UserID, body valueobjects.MessageBody) (*entities.Message, error) {
	record, err := r.record(id)
	if err != nil {
		return nil, err
	}
	record.mu.Lock()
	defer record.mu.Unlock()

	message, err := record.conversation.Append(sender, body)
	if err != nil {
		return nil, err
	}
	record.messages = append(record.messages, message)
	return message, nil
}

func (r *ConversationRepository) ListMessages(ctx context.Context, id valueobjects.PairID, afterSeq uint64, limit int) ([]*entities.Message, error) {
	record, err := r.record(id)
	if err != nil {
		return nil, err
	}
	record.mu.Lock()
	defer record.mu.Unlock()

	messages := make([]*entities.Message, 0, limit)
	for _, message := range record.messages {
		if message.Sequence() <= afterSeq {
			continue
		}
		messages = append(messages, message)
		if limit > 0 && len(messages) == limit {
			break
		}
	}
	return messages, nil
}

func (r *ConversationRepository) LatestMessage(ctx context.Context, id valueobjects.PairID) (*entities.Message, error) {
	record, err := r.record(id)
	if err != nil {
		return nil, err
	}
	record.mu.Lock()
	defer record.mu.Unlock()
	if len(record.messages) == 0 {
		return nil, nil
	}
	return record.messages[len(record.messages)-1], nil
}

func (r *ConversationRepository) CountSince(ctx context.Context, id valueobjects.PairID, afterSeq uint64, excludeSender valueobjects.UserID) (int, error) {
	record, err := r.record(id)
	if err != nil {
		return 0, err
	}
	record.mu.Lock()
	defer record.mu.Unlock()

	count := 0
	for _, message := range record.messages {
		if message.Sequence() > afterSeq && !message.Sender().Equals(excludeSender) {
			count++
		}
	}
	return count, nil
}

func (r *ConversationRepository) SetReadMarker(ctx context.Context, id valueobjects.PairID, user valueobjects.UserID, throughSeq uint64) error {
	record, err := r.record(id)
	if err != nil {
		return err
	}
	record.mu.Lock()
	defer record.mu.Unlock()
	return record.conversation.MarkRead(user, throughSeq)
}

func (r *ConversationRepository) ReadMarker(ctx context.Context, id valueobjects.PairID, user valueobjects.UserID) (uint64, error) {
	record, err := r.record(id)
	if err != nil {
		return 0, err
	}
	record.mu.Lock()
	defer record.mu.Unlock()
	return record.conversation.ReadMarker(user), nil
}

func (r *ConversationRepository) record(id valueobjects.PairID) (*conversationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("conversation not found")
	}
	return record, nil
}
