package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cheongeum/cheongeum-server/internal/config"
)

// NewRouter constructs the HTTP router with middleware and routes.
func NewRouter(cfg *config.Config, deps Deps, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(CORSMiddleware)

	h := NewHandler(cfg, deps, logger)

	r.Get("/v1/health", h.HandleHealth)
	r.Post("/v1/health", h.HandleHealth)

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		r.Method("GET", cfg.Metrics.Path, deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.HandleRegister)
		r.Post("/auth/login", h.HandleLogin)
		r.Post("/auth/logout", h.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(deps.Tokens, cfg.Auth.CookieName))

			r.Get("/auth/me", h.HandleMe)

			r.Post("/uploads/voice", h.HandleUploadVoice)

			r.Post("/experience/records", h.HandleCreateRecord)
			r.Get("/experience/records", h.HandleListRecords)
			r.Post("/experience/clones", h.HandleCreateClone)
			r.Post("/experience/voice-clone", h.HandleVoiceClone)

			r.Post("/sessions/{sessionID}/turns", h.HandleTurn)
			r.Post("/sessions/{sessionID}/score", h.HandleScore)
		})
	})

	return r
}
