package emergency

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatservice "github.com/zhouzirui/kidwatch/backend/internal/service/chat"
	"github.com/zhouzirui/kidwatch/backend/internal/service/safety"
	"github.com/zhouzirui/kidwatch/backend/pkg/utils"
)

// Handler exposes the panic button. It hits the pipeline's manual path, which
// is never subject to the dedup window.
type Handler struct {
	chatSvc  *chatservice.Service
	pipeline *safety.Pipeline
}

// New creates the emergency handler.
func New(chatSvc *chatservice.Service, pipeline *safety.Pipeline) *Handler {
	return &Handler{chatSvc: chatSvc, pipeline: pipeline}
}

// RegisterRoutes registers the emergency route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/emergency", h.handleTrigger)
}

func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Reason    string `json:"reason"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	session, err := h.chatSvc.GetSession(r.Context(), payload.SessionID)
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	event := h.pipeline.TriggerEmergency(r.Context(), session, payload.Reason)

	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "emergency alert triggered",
		"alertId": event.ID,
	})
}
