package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"adstudio/internal/httpapi/handlers"
	"adstudio/internal/httpkit"
	"adstudio/internal/pkg/middleware"
)

type Deps struct {
	Handlers       handlers.Deps
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	h := handlers.New(d.Handlers)
	log := h.Log()

	r := chi.NewRouter()
	r.NotFound(middleware.NotFound)
	r.MethodNotAllowed(middleware.MethodNotAllowed)

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Metrics("/metrics"))
	r.Use(middleware.Recovery(log))

	// ---- CORS (browser frontends) ----
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		ExposedHeaders: []string{"X-Request-ID", "Location"},
	}))

	// ---- HEALTH & METRICS ----
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if d.RequestTimeout > 0 {
			r.Use(middleware.Timeout(d.RequestTimeout))
		}

		// ---- OVERLAY ----
		r.Post("/overlay", middleware.WrapHandler(log, h.PostOverlay))

		// ---- JOBS ----
		r.Post("/jobs", middleware.WrapHandler(log, h.PostJob))
		r.Get("/jobs", middleware.WrapHandler(log, h.ListJobs))
		r.Get("/jobs/{jobId}", middleware.WrapHandler(log, h.GetJob))
		r.Get("/jobs/{jobId}/video", middleware.WrapHandler(log, h.GetJobVideo))
	})

	return r
}
