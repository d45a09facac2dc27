package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"quizform-backend/internal/handlers"
	"quizform-backend/internal/logger"
	"quizform-backend/internal/middleware"
)

type Options struct {
	FrontendURL    string
	AuthRatePerMin int
	TrustProxy     bool
}

func New(
	log *logger.Logger,
	authHandler *handlers.AuthHandler,
	contentHandler *handlers.ContentHandler,
	quizHandler *handlers.QuizHandler,
	exportHandler *handlers.ExportHandler,
	opts Options,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	if opts.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(opts.FrontendURL))

	// Auth rate limiter (per IP)
	authRate := opts.AuthRatePerMin
	if authRate <= 0 {
		authRate = 20
	}
	authLimiter := middleware.NewRateLimiter(authRate, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Document Routes ────
		r.Route("/documents", func(r chi.Router) {
			r.Get("/supported-formats", contentHandler.SupportedFormats)
			r.Post("/extract", contentHandler.Extract)
		})

		// ──── Form Routes ────
		r.Route("/forms", func(r chi.Router) {
			r.Post("/generate", quizHandler.Generate)
			r.Post("/validate", quizHandler.Validate)
		})

		// ──── Export Routes ────
		r.Route("/export", func(r chi.Router) {
			r.Get("/mode", exportHandler.Mode)
			r.Post("/script", exportHandler.Script)

			r.Group(func(r chi.Router) {
				r.Use(middleware.GoogleBearer)
				r.Post("/google", exportHandler.Google)
			})
		})

		// ──── Google Sign-in Routes ────
		r.Route("/auth/google", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Get("/login", authHandler.GoogleLogin)
			r.Get("/callback", authHandler.GoogleCallback)
		})
	})

	return r
}
