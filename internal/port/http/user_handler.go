package http

import (
	"encoding/json"
	"net/http"

	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/Will-hxw/1688/internal/platform/metrics"
	"github.com/Will-hxw/1688/internal/service"
	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	users   service.UserService
	log     logger.Logger
	metrics *metrics.Manager
}

func NewUserHandler(users service.UserService, log logger.Logger, m *metrics.Manager) *UserHandler {
	return &UserHandler{users: users, log: log, metrics: m}
}

type registerRequest struct {
	Username string `json:"username"`
}

type userResponse struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Role     entity.Role `json:"role"`
	IsActive bool        `json:"is_active"`
}

func toUserResponse(user *entity.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
		IsActive: user.IsActive,
	}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.Register(r.Context(), req.Username)
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	respondJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(user))
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.SetActive(r.Context(), actor, chi.URLParam(r, "userID"), req.Active)
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(user))
}
