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
	"peerbridge-backend/pkg/utils"
)

// MatchingHandler handles candidate matching and tag endpoints.
type MatchingHandler struct {
	matching *services.MatchingService
	logger   *zap.Logger
}

// NewMatchingHandler creates a matching handler.
func NewMatchingHandler(matching *services.MatchingService, logger *zap.Logger) *MatchingHandler {
	return &MatchingHandler{matching: matching, logger: logger}
}

// TagBody is the request body for adding a tag.
type TagBody struct {
	Tag string `json:"tag" validate:"required,max=64"`
}

// ReplaceTagsBody is the request body for replacing the tag set.
type ReplaceTagsBody struct {
	Tags []string `json:"tags" validate:"required,max=25,dive,required,max=64"`
}

// ListMatches handles GET /api/v1/matches
func (h *MatchingHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	candidates, err := h.matching.CandidatesFor(r.Context(), actor)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, candidates)
}

// ListTags handles GET /api/v1/tags
func (h *MatchingHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	tags, err := h.matching.TagsOf(r.Context(), actor)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, tags)
}

// AddTag handles POST /api/v1/tags
func (h *MatchingHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var body TagBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	if err := h.matching.AddTag(r.Context(), actor, body.Tag); err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveTag handles DELETE /api/v1/tags/{tag}
func (h *MatchingHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	if err := h.matching.RemoveTag(r.Context(), actor, chi.URLParam(r, "tag")); err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReplaceTags handles PUT /api/v1/tags
func (h *MatchingHandler) ReplaceTags(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var body ReplaceTagsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	if err := h.matching.ReplaceTags(r.Context(), actor, body.Tags); err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchingHandler) actor(w http.ResponseWriter, r *http.Request) (valueobjects.UserID, bool) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return valueobjects.UserID{}, false
	}
	actor, err := valueobjects.NewUserID(userCtx.UserID)
	if err != nil {
		pkgerrors.WriteHTTP(w, h.logger, err)
		return valueobjects.UserID{}, false
	}
	return actor, true
}
