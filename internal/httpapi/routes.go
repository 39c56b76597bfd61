package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/y2kparty/console-backend/internal/config"
	"github.com/y2kparty/console-backend/internal/hub"
	"github.com/y2kparty/console-backend/internal/registry"
	"github.com/y2kparty/console-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, reg *registry.Registry, cfg config.Config, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", Index)
	r.Get("/health", Health(reg))
	r.Get("/api/content", Content(cfg.DataDir))
	r.Get("/api/soundtracks", Soundtracks(cfg.DataDir))
	r.Get("/api/local-ip", LocalIP(cfg))
	r.Get("/ws", ws.Handler(h, log))
	return r
}
