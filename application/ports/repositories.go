package ports

import (
	"context"
	"time"

	"peerbridge-backend/domain/core/entities"
	"peerbridge-backend/domain/core/valueobjects"
	"peerbridge-backend/domain/events"
)

// TagRepository is the inverted index from tag to the users holding it.
// The profile subsystem owns tag edits; this service both applies them
// and reads the index for candidate matching.
type TagRepository interface {
	// AddTag adds a tag to a user's set. Adding a tag the user already
	// holds is a no-op.
	AddTag(ctx context.Context, user valueobjects.UserID, tag string) error

	// RemoveTag removes a tag from a user's set.
	RemoveTag(ctx context.Context, user valueobjects.UserID, tag string) error

	// ReplaceTags replaces the user's full tag set.
	ReplaceTags(ctx context.Context, user valueobjects.UserID, tags []string) error

	// TagsOf returns the user's current tags.
	TagsOf(ctx context.Context, user valueobjects.UserID) ([]string, error)

	// UsersWithAnyTag returns the de-duplicated union of the user
	// buckets for the given tags.
	UsersWithAnyTag(ctx context.Context, tags []string) ([]valueobjects.UserID, error)
}

// RequestRepository persists connection requests. The pending-uniqueness
// invariant (at most one pending request per pair) is maintained by the
// connection service under the pair lock; the repository only stores.
type RequestRepository interface {
	// Save persists a request (create or update).
	Save(ctx context.Context, request *entities.ConnectionRequest) error

	// GetByID retrieves a request by its ID.
	GetByID(ctx context.Context, id valueobjects.RequestID) (*entities.ConnectionRequest, error)

	// GetPendingByPair retrieves the pending request for a pair, or a
	// NotFound error when the pair has none.
	GetPendingByPair(ctx context.Context, pair valueobjects.PairID) (*entities.ConnectionRequest, error)

	// ListPendingInvolving retrieves all pending requests the user is a
	// party to, in either direction.
	ListPendingInvolving(ctx context.Context, user valueobjects.UserID) ([]*entities.ConnectionRequest, error)
}

// PeerRepository persists the set of accepted peer edges.
type PeerRepository interface {
	// Save persists an edge. Saving an edge for a pair that already has
	// one is a no-op, never a duplicate.
	Save(ctx context.Context, edge *entities.PeerEdge) error

	// Delete removes an edge; NotFound when the pair has none.
	Delete(ctx context.Context, pair valueobjects.PairID) error

	// GetByPair retrieves the edge for a pair.
	GetByPair(ctx context.Context, pair valueobjects.PairID) (*entities.PeerEdge, error)

	// HasEdge reports whether an edge exists for the pair.
	HasEdge(ctx context.Context, pair valueobjects.PairID) (bool, error)

	// ListByUser retrieves the user's edges, most recently created first.
	ListByUser(ctx context.Context, user valueobjects.UserID) ([]*entities.PeerEdge, error)
}

// ConversationRepository persists conversations and their message logs.
// Append owns atomic sequence assignment: implementations must guarantee
// strictly increasing, gapless sequence numbers per conversation under
// concurrent senders.
type ConversationRepository interface {
	// Create persists an empty conversation. Creating one that already
	// exists is a no-op.
	Create(ctx context.Context, conversation *entities.Conversation) error

	// GetByID retrieves a conversation by its pair id.
	GetByID(ctx context.Context, id valueobjects.PairID) (*entities.Conversation, error)

	// ListForUser retrieves all conversations the user is a party to.
	ListForUser(ctx context.Context, user valueobjects.UserID) ([]*entities.Conversation, error)

	// Append assigns the next sequence number and stores the message,
	// atomically. NotFound when the conversation does not exist.
	Append(ctx context.Context, id valueobjects.PairID, sender valueobjects.UserID, body valueobjects.MessageBody) (*entities.Message, error)

	// ListMessages retrieves messages with sequence > afterSeq, ascending,
	// at most limit entries.
	ListMessages(ctx context.Context, id valueobjects.PairID, afterSeq uint64, limit int) ([]*entities.Message, error)

	// LatestMessage retrieves the newest message, or nil when the
	// conversation is empty.
	LatestMessage(ctx context.Context, id valueobjects.PairID) (*entities.Message, error)

	// CountSince counts messages with sequence > afterSeq not sent by
	// excludeSender.
	CountSince(ctx context.Context, id valueobjects.PairID, afterSeq uint64, excludeSender valueobjects.UserID) (int, error)

	// SetReadMarker records the user's read high-water mark. Markers are
	// monotonic: a value below the stored one is ignored.
	SetReadMarker(ctx context.Context, id valueobjects.PairID, user valueobjects.UserID, throughSeq uint64) error

	// ReadMarker retrieves the user's read high-water mark, 0 when unset.
	ReadMarker(ctx context.Context, id valueobjects.PairID, user valueobjects.UserID) (uint64, error)
}

// Profile is a read-only snapshot of a user record owned by the external
// profile subsystem, denormalized onto candidate, peer, and inbox
// listings.
type Profile struct {
	UserID       valueobjects.UserID `json:"user_id"`
	Username     string              `json:"username"`
	DisplayName  string              `json:"display_name,omitempty"`
	Pronouns     string              `json:"pronouns,omitempty"`
	ProfileLink  string              `json:"profile_link,omitempty"`
	ProfileImage string              `json:"profile_image,omitempty"`
	AboutMe      string              `json:"about_me,omitempty"`
}

// ProfileRepository reads user profiles. This service never writes them.
type ProfileRepository interface {
	// GetByID retrieves one profile.
	GetByID(ctx context.Context, user valueobjects.UserID) (*Profile, error)

	// GetBatch retrieves profiles for several users, keyed by user id.
	// Missing users are simply absent from the result.
	GetBatch(ctx context.Context, users []valueobjects.UserID) (map[string]*Profile, error)
}

// PairLock is an acquired lock over one unordered pair.
type PairLock interface {
	// Release releases the lock.
	Release(ctx context.Context) error
}

// PairLocker serializes all state transitions for a pair: request
// sends and responses, including the crossing-request resolution, run
// under this lock so their guards are race-free.
type PairLocker interface {
	// Acquire acquires the lock for a pair, waiting up to the
	// implementation's timeout under contention.
	Acquire(ctx context.Context, pair valueobjects.PairID, owner string, ttl time.Duration) (PairLock, error)
}

// EventPublisher delivers domain events to the outbound notification
// channel after a successful core operation. Delivery is fire-and-forget:
// failures are logged and never roll back the operation.
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
