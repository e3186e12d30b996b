package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	AuthMiddleware func(http.Handler) http.Handler
	Logger         *slog.Logger
}

// NewRouter wires routes and middleware around the Server handlers.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	if opts.AuthMiddleware != nil {
		r.Use(opts.AuthMiddleware)
	}

	// Infra endpoints, unauthenticated.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/trips", func(r chi.Router) {
		r.Post("/", s.CreateTrip)
		r.Get("/", s.ListTrips)
		r.Route("/{tripID}", func(r chi.Router) {
			r.Get("/", s.GetTrip)
			r.Delete("/", s.DeleteTrip)
			r.Post("/join", s.JoinTrip)
			r.Post("/leave", s.LeaveTrip)
			r.Post("/confirm", s.ConfirmTrip)
			r.Get("/members/{subject}/position", s.GetMemberPosition)
		})
	})

	r.Route("/positions", func(r chi.Router) {
		r.Put("/me", s.ReportPosition)
		r.Delete("/me", s.StopSharing)
	})

	r.Route("/profiles", func(r chi.Router) {
		r.Get("/me", s.GetMyProfile)
		r.Put("/me", s.PutMyProfile)
		r.Post("/me/verify", s.VerifyMyProfile)
	})

	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"requestId", middleware.GetReqID(r.Context()),
			)
		})
	}
}
