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
	"peerbridge-backend/pkg/utils"
)

// ConnectionHandler handles connection request and peer endpoints.
type ConnectionHandler struct {
	connections *services.ConnectionService
	logger      *zap.Logger
}

// NewConnectionHandler creates a connection handler.
func NewConnectionHandler(connections *services.ConnectionService, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{connections: connections, logger: logger}
}

// SendRequestBody is the request body for sending a connection request.
type SendRequestBody struct {
	To string `json:"to" validate:"required,max=128"`
}

// RespondBody is the request body for responding to a request.
type RespondBody struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

// RequestResponse is the wire shape of a connection request.
type RequestResponse struct {
	RequestID   string `json:"request_id"`
	PairID      string `json:"pair_id"`
	Requester   string `json:"requester"`
	Recipient   string `json:"recipient"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	RespondedAt string `json:"responded_at,omitempty"`
}

// PeerResponse is the wire shape of a peer edge, from the caller's side.
type PeerResponse struct {
	PairID      string `json:"pair_id"`
	PeerID      string `json:"peer_id"`
	ConnectedAt string `json:"connected_at"`
}

// SendRequest handles POST /api/v1/requests
func (h *ConnectionHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	var body SendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	from, err := valueobjects.NewUserID(userCtx.UserID)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}
	to, err := valueobjects.NewUserID(body.To)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}

	request, err := h.connections.SendRequest(r.Context(), from, to)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}

	// A crossing request comes back already accepted.
	status := http.StatusCreated
	if request.Status() != entities.RequestPending {
		status = http.StatusOK
	}
	common.RespondJSON(w, status, requestToResponse(request))
}

// Respond handles POST /api/v1/requests/{requestID}/respond
func (h *ConnectionHandler) Respond(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	requestID, err := valueobjects.NewRequestIDFromString(chi.URLParam(r, "requestID"))
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}

	var body RespondBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	actor, err := valueobjects.NewUserID(userCtx.UserID)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}

	request, err := h.connections.Respond(r.Context(), requestID, actor, body.Action == "accept")
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, requestToResponse(request))
}

// ListRequests handles GET /api/v1/requests
func (h *ConnectionHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
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

	requests, err := h.connections.ListPendingRequests(r.Context(), actor)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}

	out := make([]RequestResponse, 0, len(requests))
	for _, request := range requests {
		out = append(out, requestToResponse(request))
	}
	common.RespondJSON(w, http.StatusOK, out)
}

// ListPeers handles GET /api/v1/peers
func (h *ConnectionHandler) ListPeers(w http.ResponseWriter, r *http.Request) {
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

	edges, err := h.connections.ListPeers(r.Context(), actor)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}

	out := make([]PeerResponse, 0, len(edges))
	for _, edge := range edges {
		peer, ok := edge.PeerOf(actor)
		if !ok {
			continue
		}
		out = append(out, PeerResponse{
			PairID:      edge.Pair().String(),
			PeerID:      peer.String(),
			ConnectedAt: edge.CreatedAt().Format(time.RFC3339),
		})
	}
	common.RespondJSON(w, http.StatusOK, out)
}

// RemovePeer handles DELETE /api/v1/peers/{peerID}
func (h *ConnectionHandler) RemovePeer(w http.ResponseWriter, r *http.Request) {
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
	peer, err := valueobjects.NewUserID(chi.URLParam(r, "peerID"))
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}

	if err := h.connections.RemovePeer(r.Context(), actor, peer); err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requestToResponse(request *entities.ConnectionRequest) RequestResponse {
	out := RequestResponse{
		RequestID: request.ID().String(),
		PairID:    request.Pair().String(),
		Requester: request.Requester().String(),
		Recipient: request.Recipient().String(),
		Status:    string(request.Status()),
		CreatedAt: request.CreatedAt().Format(time.RFC3339),
	}
	if !request.RespondedAt().IsZero() {
		out.RespondedAt = request.RespondedAt().Format(time.RFC3339)
	}
	return out
}
