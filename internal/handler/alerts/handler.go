package alerts

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	safetymodel "github.com/zhouzirui/kidwatch/backend/internal/model/safety"
	alertservice "github.com/zhouzirui/kidwatch/backend/internal/service/alert"
	chatservice "github.com/zhouzirui/kidwatch/backend/internal/service/chat"
	"github.com/zhouzirui/kidwatch/backend/internal/service/notify"
	"github.com/zhouzirui/kidwatch/backend/pkg/utils"
)

// Handler exposes alert retrieval, resolution, activity checks and the SSE
// fallback stream for dashboards that cannot hold a websocket.
type Handler struct {
	store      alertservice.Store
	engine     *alertservice.Engine
	dispatcher *notify.Dispatcher
	chatSvc    *chatservice.Service
}

// New creates the alerts handler.
func New(store alertservice.Store, engine *alertservice.Engine, dispatcher *notify.Dispatcher, chatSvc *chatservice.Service) *Handler {
	return &Handler{store: store, engine: engine, dispatcher: dispatcher, chatSvc: chatSvc}
}

// RegisterRoutes registers alert routes. Session-scoped reads live under
// /sessions, alert-scoped mutations under /alerts.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/alerts", h.handleList)
	r.Get("/sessions/{sessionID}/alerts/unresolved", h.handleUnresolved)
	r.Get("/sessions/{sessionID}/alerts/stream", h.handleStream)
	r.Get("/alerts/{alertID}/occurrences", h.handleOccurrences)
	r.Put("/alerts/{alertID}/resolve", h.handleResolve)
	r.Post("/sessions/{sessionID}/activity", h.handleActivityCheck)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	events, err := h.store.ListAlerts(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, events)
}

func (h *Handler) handleUnresolved(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	events, err := h.store.UnresolvedAlerts(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, events)
}

func (h *Handler) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	occurrences, err := h.store.Occurrences(r.Context(), alertID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, occurrences)
}

// handleResolve marks an alert resolved. Resolving twice is a no-op and still
// answers 200.
func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	if err := h.engine.Resolve(r.Context(), alertID); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "alert resolved"})
}

func (h *Handler) handleActivityCheck(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		ActivityType    string `json:"activityType"`
		DurationMinutes int    `json:"durationMinutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ActivityType == "" {
		payload.ActivityType = "conversation"
	}

	event := h.engine.ActivityCheck(r.Context(), sessionID, payload.ActivityType, time.Duration(payload.DurationMinutes)*time.Minute)
	if event == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, event)
}

// sseSender adapts an SSE connection to the dispatcher's push contract. It
// forwards only the watched session's payloads.
type sseSender struct {
	sessionID string
	ch        chan safetymodel.WirePayload
}

func (s *sseSender) Send(payload safetymodel.WirePayload) error {
	if payload.SessionID != s.sessionID {
		return nil
	}
	select {
	case s.ch <- payload:
		return nil
	default:
		return errors.New("sse buffer full")
	}
}

// handleStream registers the request as a live subscriber for the session's
// guardian and relays alert payloads until the client goes away.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.SetupSSEHeaders(w)

	sender := &sseSender{sessionID: sessionID, ch: make(chan safetymodel.WirePayload, 16)}
	handle := h.dispatcher.Register(session.GuardianID, sender)
	defer h.dispatcher.Unregister(handle)

	utils.SendSSEEvent(w, flusher, "status", map[string]string{"message": "stream established"})

	ctx := r.Context()
	heartbeat := time.NewTicker(8 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-heartbeat.C:
			utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"time": t.UTC().Format(time.RFC3339),
			})
		case payload := <-sender.ch:
			utils.SendSSEChunk(w, flusher, payload)
		}
	}
}
