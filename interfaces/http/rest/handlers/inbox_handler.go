package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"peerbridge-backend/application/services"
	"peerbridge-backend/domain/core/valueobjects"
	"peerbridge-backend/pkg/auth"
	"peerbridge-backend/pkg/common"
	pkgerrors "peerbridge-backend/pkg/errors"
)

// InboxHandler handles inbox and read marker endpoints.
type InboxHandler struct {
	inbox  *services.InboxService
	logger *zap.Logger
}

// NewInboxHandler creates an inbox handler.
func NewInboxHandler(inbox *services.InboxService, logger *zap.Logger) *InboxHandler {
	return &InboxHandler{inbox: inbox, logger: logger}
}

// MarkReadBody is the request body for marking a conversation read.
type MarkReadBody struct {
	ThroughSeq uint64 `json:"through_seq"`
}

// ListInbox handles GET /api/v1/inbox
func (h *InboxHandler) ListInbox(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}
	actor, err := valueobjects.NewUserID(userCtx.UserID)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}

	summaries, err := h.inbox.ListInbox(r.Context(), actor)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, summaries)
}

// MarkRead handles POST /api/v1/conversations/{conversationID}/read
func (h *InboxHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}
	actor, err := valueobjects.NewUserID(userCtx.UserID)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}
	conversationID, err := valueobjects.ParsePairID(chi.URLParam(r, "conversationID"))
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}

	var body MarkReadBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	if err := h.inbox.MarkRead(r.Context(), actor, conversationID, body.ThroughSeq); err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}

	unread, err := h.inbox.UnreadCount(r.Context(), actor, conversationID)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conversationID.String(),
		"unread_count":    unread,
	})
}
