package ws

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	safetymodel "github.com/zhouzirui/kidwatch/backend/internal/model/safety"
	"github.com/zhouzirui/kidwatch/backend/internal/service/notify"
	"github.com/zhouzirui/kidwatch/backend/pkg/utils"
)

const writeTimeout = 5 * time.Second

// Handler upgrades guardian connections and registers them as live alert
// subscribers for the duration of the socket.
type Handler struct {
	dispatcher *notify.Dispatcher
	upgrader   websocket.Upgrader
}

// New creates the guardian websocket handler.
func New(dispatcher *notify.Dispatcher) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the guardian channel route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/guardian/{guardianID}", h.handleGuardian)
}

// wsSender pushes alert payloads onto one websocket. gorilla allows only one
// concurrent writer, so sends are serialized with a mutex.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) Send(payload safetymodel.WirePayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(payload)
}

func (h *Handler) handleGuardian(w http.ResponseWriter, r *http.Request) {
	guardianID := chi.URLParam(r, "guardianID")
	if guardianID == "" {
		utils.RespondError(w, http.StatusBadRequest, "guardianID is required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for guardian=%s: %v", guardianID, err)
		return
	}
	defer conn.Close()

	sender := &wsSender{conn: conn}
	handle := h.dispatcher.Register(guardianID, sender)
	defer h.dispatcher.Unregister(handle)

	// The guardian channel is push-only; the read loop exists to notice the
	// peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
