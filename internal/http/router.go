package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/teetimex/tee-time-exchange/internal/auth"
	"github.com/teetimex/tee-time-exchange/internal/observability"
	"github.com/teetimex/tee-time-exchange/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, tokens *auth.Tokens) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(IPRateLimitMiddleware(rl))

		r.Post("/users", h.Register)
		r.Post("/token", h.Token)

		r.Group(func(r chi.Router) {
			r.Use(JWTMiddleware(tokens))
			r.Use(UserRateLimitMiddleware(rl))
			r.Use(IdempotencyMiddleware())

			r.Get("/users", h.ListUsers)
			r.Get("/users/me", h.Me)
			r.Put("/users/me", h.UpdateMe)

			r.Post("/courses", h.CreateCourse)
			r.Get("/courses", h.ListCourses)
			r.Get("/courses/{id}", h.GetCourse)
			r.Delete("/courses/{id}", h.DeleteCourse)

			r.Post("/tee-times", h.CreateTeeTime)
			r.Get("/tee-times", h.ListTeeTimes)
			r.Get("/tee-times/{id}", h.GetTeeTime)
			r.Put("/tee-times/{id}", h.UpdateTeeTime)
			r.Delete("/tee-times/{id}", h.CancelTeeTime)

			r.Post("/trades", h.CreateTrade)
			r.Get("/trades", h.ListTrades)
			r.Get("/trades/{id}", h.GetTrade)
			r.Put("/trades/{id}/status", h.RespondTrade)
			r.Delete("/trades/{id}", h.CancelTrade)

			r.Get("/dashboard", h.Dashboard)
		})
	})

	return r
}
