package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"caricagen/internal/http/handlers"
	"caricagen/internal/middleware"
)

// Options configures the cross-cutting middleware.
type Options struct {
	AllowedOrigins  []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Get("/v1/styles", app.Styles)
	r.Get("/v1/download/formats", app.DownloadFormats)

	// Everything below reaches an image provider or decodes uploads.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))

		r.Post("/api/generate", app.Generate)

		r.Route("/v1/images", func(r chi.Router) {
			r.Post("/crop", app.ImagesCrop)
			r.Post("/grayscale", app.ImagesGrayscale)
		})

		r.Route("/v1/sessions", func(r chi.Router) {
			r.Post("/", app.SessionCreate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.SessionGet)
				r.Delete("/", app.SessionDelete)
				r.Post("/style", app.SessionStyle)
				r.Post("/facial", app.SessionFacial)
				r.Post("/facial/next", app.SessionFacialNext)
				r.Post("/body", app.SessionBody)
				r.Post("/body/next", app.SessionBodyNext)
				r.Post("/back", app.SessionBack)
				r.Post("/reset", app.SessionReset)
				r.Get("/download", app.SessionDownload)
				r.Get("/archive", app.SessionArchive)
			})
		})
	})

	return r
}
