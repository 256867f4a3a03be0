package services

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"peerbridge-backend/domain/core/valueobjects"
	"peerbridge-backend/infrastructure/persistence/memory"
	"peerbridge-backend/pkg/observability"
)

// testEnv wires all services against the in-memory persistence layer.
type testEnv struct {
	tags          *memory.TagRepository
	requests      *memory.RequestRepository
	peers         *memory.PeerRepository
	conversations *memory.ConversationRepository
	profiles      *memory.ProfileRepository
	publisher     *memory.EventPublisher

	connections *ConnectionService
	matching    *MatchingService
	messaging   *MessagingService
	inbox       *InboxService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		tags:          memory.NewTagRepository(),
		requests:      memory.NewRequestRepository(),
		peers:         memory.NewPeerRepository(),
		conversations: memory.NewConversationRepository(),
		profiles:      memory.NewProfileRepository(),
		publisher:     memory.NewEventPublisher(),
	}

	logger := zap.NewNop()
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	env.connections = NewConnectionService(
		env.requests, env.peers, env.conversations,
		memory.NewPairLocker(), env.publisher, metrics, logger,
	)
	env.matching = NewMatchingService(env.tags, env.peers, env.requests, env.profiles, logger)
	env.messaging = NewMessagingService(env.conversations, env.peers, env.publisher, metrics, logger)
	env.inbox = NewInboxService(env.conversations, env.profiles, env.publisher, logger)

	return env
}

func uid(t *testing.T, s string) valueobjects.UserID {
	t.Helper()
	id, err := valueobjects.NewUserID(s)
	require.NoError(t, err)
	return id
}

func pid(t *testing.T, a, b string) valueobjects.PairID {
	t.Helper()
	pair, err := valueobjects.NewPairID(uid(t, a), uid(t, b))
	require.NoError(t, err)
	return pair
}

// connect runs the full request/accept flow so the two users end up with
// an edge and an empty conversation.
func (env *testEnv) connect(t *testing.T, from, to string) {
	t.Helper()
	ctx := context.Background()

	request, err := env.connections.SendRequest(ctx, uid(t, from), uid(t, to))
	require.NoError(t, err)
	_, err = env.connections.Respond(ctx, request.ID(), uid(t, to), true)
	require.NoError(t, err)
}
