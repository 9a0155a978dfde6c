package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zhouzirui/kidwatch/backend/internal/handler/alerts"
	"github.com/zhouzirui/kidwatch/backend/internal/handler/emergency"
	"github.com/zhouzirui/kidwatch/backend/internal/handler/media"
	"github.com/zhouzirui/kidwatch/backend/internal/handler/session"
	"github.com/zhouzirui/kidwatch/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/kidwatch/backend/internal/middleware"
	alertservice "github.com/zhouzirui/kidwatch/backend/internal/service/alert"
	chatservice "github.com/zhouzirui/kidwatch/backend/internal/service/chat"
	mediaservice "github.com/zhouzirui/kidwatch/backend/internal/service/media"
	"github.com/zhouzirui/kidwatch/backend/internal/service/notify"
	"github.com/zhouzirui/kidwatch/backend/internal/service/safety"
	"github.com/zhouzirui/kidwatch/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. mediaSvc may be nil when no
// speech or vision vendor is configured; the media routes are then skipped.
func NewRouter(chatSvc *chatservice.Service, pipeline *safety.Pipeline, store alertservice.Store, engine *alertservice.Engine, dispatcher *notify.Dispatcher, mediaSvc *mediaservice.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	sessionHandler := session.New(chatSvc, pipeline)
	alertsHandler := alerts.New(store, engine, dispatcher, chatSvc)
	emergencyHandler := emergency.New(chatSvc, pipeline)
	wsHandler := ws.New(dispatcher)

	r.Route("/api", func(api chi.Router) {
		sessionHandler.RegisterRoutes(api)
		alertsHandler.RegisterRoutes(api)
		emergencyHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		if mediaSvc != nil {
			media.New(chatSvc, pipeline, mediaSvc).RegisterRoutes(api)
		}
	})

	return r
}
