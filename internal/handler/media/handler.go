package media

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/kidwatch/backend/internal/provider"
	chatservice "github.com/zhouzirui/kidwatch/backend/internal/service/chat"
	mediaservice "github.com/zhouzirui/kidwatch/backend/internal/service/media"
	"github.com/zhouzirui/kidwatch/backend/internal/service/safety"
	"github.com/zhouzirui/kidwatch/backend/pkg/utils"
)

// Handler accepts voice and image input. Whatever text comes out of a speech
// or vision provider is fed through the safety pipeline exactly like a typed
// message.
type Handler struct {
	chatSvc  *chatservice.Service
	pipeline *safety.Pipeline
	media    *mediaservice.Service
}

// New creates the media handler.
func New(chatSvc *chatservice.Service, pipeline *safety.Pipeline, media *mediaservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc, pipeline: pipeline, media: media}
}

// RegisterRoutes registers voice and image routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions/{sessionID}/voice", h.handleVoice)
	r.Post("/sessions/{sessionID}/images", h.handleImage)
	r.Post("/speech", h.handleSynthesize)
}

func (h *Handler) handleVoice(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		AudioData string `json:"audioData"`
		Filename  string `json:"filename"`
		Language  string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	audio, err := base64.StdEncoding.DecodeString(payload.AudioData)
	if err != nil || len(audio) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "audioData must be non-empty base64")
		return
	}

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	transcript, err := h.media.Transcribe(r.Context(), provider.AudioInput{
		Data:     audio,
		Filename: payload.Filename,
		Language: payload.Language,
	})
	if err != nil {
		// Degraded speech-to-text: the turn cannot proceed, but this is a
		// capability outage, not a client error.
		utils.RespondError(w, http.StatusServiceUnavailable, "speech recognition unavailable")
		return
	}

	decision := h.pipeline.Process(r.Context(), session, transcript.Text)
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"transcript": transcript.Text,
		"decision":   decision,
	})
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		ImageURL string `json:"imageUrl"`
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ImageURL == "" {
		utils.RespondError(w, http.StatusBadRequest, "imageUrl is required")
		return
	}

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	prompt := payload.Question
	if prompt == "" {
		prompt = "Describe what this image shows, noting anything unsafe for a child."
	}

	description, err := h.media.Describe(r.Context(), provider.VisionInput{
		Prompt:   prompt,
		ImageURL: payload.ImageURL,
	})
	if err != nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "image analysis unavailable")
		return
	}

	decision := h.pipeline.Process(r.Context(), session, "[shared an image] "+description.Description)
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"description": description.Description,
		"decision":    decision,
	})
}

// handleSynthesize narrates text. Degraded synthesis is not an error for the
// caller: the response simply carries no audio.
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text  string `json:"text"`
		Voice string `json:"voice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	speech, err := h.media.Synthesize(r.Context(), provider.SpeechInput{Text: payload.Text, Voice: payload.Voice})
	if err != nil {
		if errors.Is(err, mediaservice.ErrDegraded) {
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"audio":    nil,
				"degraded": true,
			})
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"audio":    base64.StdEncoding.EncodeToString(speech.Audio),
		"format":   speech.Format,
		"degraded": false,
	})
}
