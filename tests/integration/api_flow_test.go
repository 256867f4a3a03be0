package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"peerbridge-backend/application/services"
	"peerbridge-backend/infrastructure/config"
	"peerbridge-backend/infrastructure/persistence/memory"
	"peerbridge-backend/interfaces/http/rest"
	"peerbridge-backend/pkg/auth"
	"peerbridge-backend/pkg/common"
	"peerbridge-backend/pkg/observability"
)

// newTestServer builds the full HTTP stack on the in-memory persistence
// layer. Lambda mode is enabled so requests authenticate with the
// X-User-ID header the gateway authorizer would forward.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Environment:        "development",
		IsLambda:           true,
		RateLimitPerMinute: 10000,
		EnableMetrics:      true,
		EnableCORS:         false,
	}

	logger := zap.NewNop()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	requests := memory.NewRequestRepository()
	peers := memory.NewPeerRepository()
	conversations := memory.NewConversationRepository()
	tags := memory.NewTagRepository()
	profiles := memory.NewProfileRepository()
	publisher := memory.NewEventPublisher()
	locker := memory.NewPairLocker()

	connections := services.NewConnectionService(requests, peers, conversations, locker, publisher, metrics, logger)
	matching := services.NewMatchingService(tags, peers, requests, profiles, logger)
	messaging := services.NewMessagingService(conversations, peers, publisher, metrics, logger)
	inbox := services.NewInboxService(conversations, profiles, publisher, logger)

	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: "test-secret"})
	require.NoError(t, err)

	router := rest.NewRouter(cfg, connections, matching, messaging, inbox, validator, metrics, registry, logger)
	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, server *httptest.Server, user, method, path string, body interface{}) (*http.Response, common.APIResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope common.APIResponse
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	}
	return resp, envelope
}

func decodeData(t *testing.T, envelope common.APIResponse, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestAPI_RequiresIdentity(t *testing.T) {
	server := newTestServer(t)

	resp, envelope := doJSON(t, server, "", "GET", "/api/v1/inbox", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, envelope.Success)
}

func TestAPI_ConnectionAndMessagingFlow(t *testing.T) {
	server := newTestServer(t)

	// Alice sends Bob a connection request.
	resp, envelope := doJSON(t, server, "alice", "POST", "/api/v1/requests",
		map[string]string{"to": "bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var request struct {
		RequestID string `json:"request_id"`
		PairID    string `json:"pair_id"`
		Status    string `json:"status"`
	}
	decodeData(t, envelope, &request)
	assert.Equal(t, "pending", request.Status)
	assert.Equal(t, "alice#bob", request.PairID)

	// A duplicate request conflicts.
	resp, _ = doJSON(t, server, "alice", "POST", "/api/v1/requests",
		map[string]string{"to": "bob"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Bob sees the incoming request.
	resp, envelope = doJSON(t, server, "bob", "GET", "/api/v1/requests", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var incoming []struct {
		RequestID string `json:"request_id"`
		Requester string `json:"requester"`
	}
	decodeData(t, envelope, &incoming)
	require.Len(t, incoming, 1)
	assert.Equal(t, "alice", incoming[0].Requester)

	// Alice cannot accept her own request.
	resp, _ = doJSON(t, server, "alice", "POST",
		fmt.Sprintf("/api/v1/requests/%s/respond", request.RequestID),
		map[string]string{"action": "accept"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Bob accepts.
	resp, envelope = doJSON(t, server, "bob", "POST",
		fmt.Sprintf("/api/v1/requests/%s/respond", request.RequestID),
		map[string]string{"action": "accept"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, envelope, &request)
	assert.Equal(t, "accepted", request.Status)

	// Both sides see the edge.
	resp, envelope = doJSON(t, server, "alice", "GET", "/api/v1/peers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var peers []struct {
		PairID string `json:"pair_id"`
		PeerID string `json:"peer_id"`
	}
	decodeData(t, envelope, &peers)
	require.Len(t, peers, 1)
	assert.Equal(t, "bob", peers[0].PeerID)

	// Messages flow both ways with gapless sequences.
	convPath := "/api/v1/conversations/alice%23bob"
	resp, envelope = doJSON(t, server, "alice", "POST", convPath+"/messages",
		map[string]string{"body": "hi bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var message struct {
		Sequence uint64 `json:"sequence"`
		Sender   string `json:"sender"`
	}
	decodeData(t, envelope, &message)
	assert.Equal(t, uint64(1), message.Sequence)

	resp, envelope = doJSON(t, server, "bob", "POST", convPath+"/messages",
		map[string]string{"body": "hi alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeData(t, envelope, &message)
	assert.Equal(t, uint64(2), message.Sequence)

	// Carol is not a party to the conversation.
	resp, _ = doJSON(t, server, "carol", "POST", convPath+"/messages",
		map[string]string{"body": "intruding"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Bob's inbox shows one unread message from Alice.
	resp, envelope = doJSON(t, server, "bob", "GET", "/api/v1/inbox", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summaries []struct {
		ConversationID string `json:"conversation_id"`
		PeerID         string `json:"peer_id"`
		UnreadCount    int    `json:"unread_count"`
	}
	decodeData(t, envelope, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, "alice", summaries[0].PeerID)
	assert.Equal(t, 1, summaries[0].UnreadCount)

	// Bob marks the conversation read.
	resp, envelope = doJSON(t, server, "bob", "POST", convPath+"/read",
		map[string]uint64{"through_seq": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var readState struct {
		UnreadCount int `json:"unread_count"`
	}
	decodeData(t, envelope, &readState)
	assert.Equal(t, 0, readState.UnreadCount)

	// Alice removes the peer; sending stops but history survives.
	resp, _ = doJSON(t, server, "alice", "DELETE", "/api/v1/peers/bob", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, server, "alice", "POST", convPath+"/messages",
		map[string]string{"body": "too late"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, envelope = doJSON(t, server, "bob", "GET", convPath+"/messages", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []struct {
		Body     string `json:"body"`
		Sequence uint64 `json:"sequence"`
	}
	decodeData(t, envelope, &history)
	require.Len(t, history, 2)
	assert.Equal(t, "hi bob", history[0].Body)
	assert.Equal(t, "hi alice", history[1].Body)
}

func TestAPI_CrossingRequests(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doJSON(t, server, "alice", "POST", "/api/v1/requests",
		map[string]string{"to": "bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Bob's own request toward Alice resolves the pending one instead of
	// stacking a second, and the response says so.
	resp, envelope := doJSON(t, server, "bob", "POST", "/api/v1/requests",
		map[string]string{"to": "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var request struct {
		Status string `json:"status"`
	}
	decodeData(t, envelope, &request)
	assert.Equal(t, "accepted", request.Status)

	resp, envelope = doJSON(t, server, "alice", "GET", "/api/v1/peers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var peers []struct {
		PeerID string `json:"peer_id"`
	}
	decodeData(t, envelope, &peers)
	require.Len(t, peers, 1)
	assert.Equal(t, "bob", peers[0].PeerID)
}

func TestAPI_MatchingFlow(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doJSON(t, server, "alice", "PUT", "/api/v1/tags",
		map[string][]string{"tags": {"anxiety", "grief"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, server, "bob", "PUT", "/api/v1/tags",
		map[string][]string{"tags": {"Anxiety"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, envelope := doJSON(t, server, "alice", "GET", "/api/v1/matches", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var candidates []struct {
		UserID     string   `json:"user_id"`
		SharedTags []string `json:"shared_tags"`
	}
	decodeData(t, envelope, &candidates)
	require.Len(t, candidates, 1)
	assert.Equal(t, "bob", candidates[0].UserID)
	assert.Equal(t, []string{"anxiety"}, candidates[0].SharedTags)

	// Connecting removes Bob from Alice's candidates.
	resp, envelope = doJSON(t, server, "alice", "POST", "/api/v1/requests",
		map[string]string{"to": "bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, envelope = doJSON(t, server, "alice", "GET", "/api/v1/matches", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, envelope, &candidates)
	assert.Empty(t, candidates)
}
