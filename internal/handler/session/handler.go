package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatservice "github.com/zhouzirui/kidwatch/backend/internal/service/chat"
	"github.com/zhouzirui/kidwatch/backend/internal/service/safety"
	"github.com/zhouzirui/kidwatch/backend/pkg/utils"
)

// Handler exposes session creation and message ingestion. Every child message
// goes through the safety pipeline before anything else sees it.
type Handler struct {
	chatSvc  *chatservice.Service
	pipeline *safety.Pipeline
}

// New creates the session handler.
func New(chatSvc *chatservice.Service, pipeline *safety.Pipeline) *Handler {
	return &Handler{chatSvc: chatSvc, pipeline: pipeline}
}

// RegisterRoutes registers session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Post("/sessions/{sessionID}/messages", h.handleChildMessage)
	r.Get("/sessions/{sessionID}/transcript", h.handleTranscript)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ChildID    string `json:"childId"`
		GuardianID string `json:"guardianId"`
		ChildAge   int    `json:"childAge"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.GuardianID == "" {
		utils.RespondError(w, http.StatusBadRequest, "guardianId is required")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.ChildID, payload.GuardianID, payload.ChildAge)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleChildMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Content == "" {
		utils.RespondError(w, http.StatusBadRequest, "content is required")
		return
	}

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		h.respondSessionError(w, err)
		return
	}

	decision := h.pipeline.Process(r.Context(), session, payload.Content)
	utils.RespondJSON(w, http.StatusOK, decision)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		h.respondSessionError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": sessionID,
		"messages":  messages,
	})
}

func (h *Handler) respondSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, chatservice.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondError(w, http.StatusInternalServerError, err.Error())
}
