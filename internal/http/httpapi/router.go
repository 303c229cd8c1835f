package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"glowstudio/internal/http/handlers"
	"glowstudio/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	var (
		origins       []string
		defaultLocale string
		ratePerMinute int
	)
	if app.Config != nil {
		origins = app.Config.CORSAllowedOrigins
		defaultLocale = app.Config.DefaultLocale
		ratePerMinute = app.Config.RateLimitPerMin
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(origins),
		middleware.I18N(defaultLocale, app.Country),
	)

	// JSON endpoints are gzip-compressed when the client asks for it
	r.Group(func(r chi.Router) {
		r.Use(gzipMiddleware)

		r.Get("/v1/healthz", app.Health)
		r.Get("/v1/filters", app.ListFilters)

		limited := middleware.RateLimit(ratePerMinute, time.Minute)
		r.With(limited).Post("/v1/prompts/enhance", app.PromptEnhance)
		r.Post("/v1/sessions", app.CreateSession)
		r.Get("/v1/sessions/{id}", app.GetSession)
		r.Delete("/v1/sessions/{id}", app.DeleteSession)
		r.Post("/v1/sessions/{id}/image", app.SelectImage)
		r.Post("/v1/sessions/{id}/filter", app.ApplyFilter)
		r.Get("/v1/sessions/{id}/filters/previews", app.FilterPreviews)
		r.With(limited).Post("/v1/sessions/{id}/generate", app.Generate)
		r.Post("/v1/sessions/{id}/dismiss-error", app.DismissError)
		r.Post("/v1/sessions/{id}/reset", app.ResetSession)
		r.Put("/v1/sessions/{id}/locale", app.SetLocale)
		r.Get("/v1/sessions/{id}/history", app.ListHistory)
	})

	// binary and streaming routes stay uncompressed
	r.Get("/v1/sessions/{id}/images/{slot}", app.Image)
	r.Get("/v1/sessions/{id}/download", app.Download)
	r.Get("/v1/sessions/{id}/history/archive", app.HistoryArchive)
	r.Get("/v1/sessions/{id}/events", app.Events)

	if app.Store != nil {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(app.Store.BasePath())))
		r.Handle("/static/*", fs)
	}

	return r
}

func gzipMiddleware(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
