package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"peerbridge-backend/application/services"
	"peerbridge-backend/domain/core/entities"
	"peerbridge-backend/domain/core/valueobjects"
	"peerbridge-backend/pkg/auth"
	"peerbridge-backend/pkg/common"
	pkgerrors "peerbridge-backend/pkg/errors"
)

// MessageHandler handles conversation message endpoints.
type MessageHandler struct {
	messaging *services.MessagingService
	logger    *zap.Logger
}

// NewMessageHandler creates a message handler.
func NewMessageHandler(messaging *services.MessagingService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messaging: messaging, logger: logger}
}

// SendMessageBody is the request body for sending a message.
type SendMessageBody struct {
	Body string `json:"body"`
}

// MessageResponse is the wire shape of one message.
type MessageResponse struct {
	ConversationID string `json:"conversation_id"`
	Sender         string `json:"sender"`
	Body           string `json:"body"`
	Sequence       uint64 `json:"sequence"`
	SentAt         string `json:"sent_at"`
}

// Send handles POST /api/v1/conversations/{conversationID}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	actor, conversationID, ok := h.actorAndConversation(w, r)
	if !ok {
		return
	}

	var body SendMessageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	message, err := h.messaging.Send(r.Context(), actor, conversationID, body.Body)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, messageToResponse(message))
}

// List handles GET /api/v1/conversations/{conversationID}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, conversationID, ok := h.actorAndConversation(w, r)
	if !ok {
		return
	}

	params := common.ExtractCursorParams(r)
	messages, err := h.messaging.ListConversation(r.Context(), actor, conversationID, params.After, params.Limit)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}

	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, messageToResponse(message))
	}

	meta := &common.MetaInfo{
		Pagination: &common.CursorInfo{
			HasMore: len(messages) == params.Limit,
			Count:   len(messages),
		},
	}
	if len(messages) > 0 {
		meta.Pagination.NextCursor = messages[len(messages)-1].Sequence()
	}
	common.RespondJSONWithMeta(w, http.StatusOK, out, meta)
}

func (h *MessageHandler) actorAndConversation(w http.ResponseWriter, r *http.Request) (valueobjects.UserID, valueobjects.PairID, bool) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return valueobjects.UserID{}, valueobjects.PairID{}, false
	}
	actor, err := valueobjects.NewUserID(userCtx.UserID)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return valueobjects.UserID{}, valueobjects.PairID{}, false
	}
	conversationID, err := valueobjects.ParsePairID(chi.URLParam(r, "conversationID"))
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return valueobjects.UserID{}, valueobjects.PairID{}, false
	}
	return actor, conversationID, true
}

func messageToResponse(message *entities.Message) MessageResponse {
	return MessageResponse{
		ConversationID: message.ConversationID().String(),
		Sender:         message.Sender().String(),
		Body:           message.Body().String(),
		Sequence:       message.Sequence(),
		SentAt:         message.SentAt().Format(time.RFC3339Nano),
	}
}
