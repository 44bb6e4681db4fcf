package httpapi

import (
	stdhttp "net/http"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/ratelimit"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Options carries the cross-cutting pieces the router wires around the
// handlers.
type Options struct {
	Limiter        *ratelimit.Limiter
	AllowedOrigins []string
	Logger         infra.Logger
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(opts.Logger))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/sessions", func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(middleware.RateLimit(opts.Limiter, opts.Logger))
		}
		r.Post("/", app.CreateSession)
	})

	r.Route("/v1/reports", func(r chi.Router) {
		r.Post("/", app.DispatchReport)
		r.Get("/status", app.ReportStatus)
	})

	return r
}
