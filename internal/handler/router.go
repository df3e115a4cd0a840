package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	machineHandler "github.com/mirrorfield/dust-machines/backend/internal/handler/machine"
	sessionHandler "github.com/mirrorfield/dust-machines/backend/internal/handler/session"
	middlewarePkg "github.com/mirrorfield/dust-machines/backend/internal/middleware"
	generateService "github.com/mirrorfield/dust-machines/backend/internal/service/generate"
	sessionService "github.com/mirrorfield/dust-machines/backend/internal/service/session"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(genSvc *generateService.Service, sessionSvc *sessionService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	machines := machineHandler.New(genSvc)
	sessions := sessionHandler.New(sessionSvc)

	r.Route("/api", func(api chi.Router) {
		machines.RegisterRoutes(api)
		sessions.RegisterRoutes(api)
		sessions.RegisterWebSocketRoutes(api)
	})

	return r
}
