package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

func NewRouter(cfg *infra.Config, logger infra.Logger, app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP, chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.I18N(cfg.DefaultLocale))

	r.Get("/v1/healthz", app.Health)

	r.Post("/v1/proxy/{target}", app.Proxy)

	// Generation endpoints trigger paid provider calls; rate limit them.
	limit := middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)

	r.Route("/v1/prompts", func(r chi.Router) {
		r.Use(limit)
		r.Post("/generate", app.PromptsGenerate)
		r.Post("/analyze", app.PromptsAnalyze)
	})

	r.Route("/v1/videos", func(r chi.Router) {
		r.With(limit).Post("/generate", app.VideosGenerate)
		r.Get("/{session_id}", app.VideoStatus)
		r.Delete("/{session_id}", app.VideoCancel)
	})

	return r
}
