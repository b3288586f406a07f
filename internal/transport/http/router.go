package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-patient-monitor/internal/config"
	"github.com/go-patient-monitor/internal/domain"
	"github.com/go-patient-monitor/internal/transport/http/handler"
	appmiddleware "github.com/go-patient-monitor/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds background
// work owned by the router.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Verifier)

	// 5 requests/second, burst of 10, applied to login.
	loginRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	interval := cfg.GeneratorInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(deps.Auth)
	alertH := handler.NewAlertHandler(deps.Alerts, deps.Unread)
	demoH := handler.NewDemoHandler(deps.Generator, deps.Alerts, interval, deps.Logger)
	deviceH := handler.NewDeviceHandler(deps.Devices)
	vitalsH := handler.NewVitalsHandler(deps.Vitals)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(loginRL.Limit).Post("/sessions/login", sessionH.Login)
		if deps.Hub != nil {
			// Authenticates its own handshake.
			r.Get("/events", deps.Hub.HandleEvents)
		}

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/alerts", alertH.List)
			r.Post("/alerts", alertH.Create)
			r.Get("/alerts/stats", alertH.Stats)
			r.Get("/alerts/unread-count", alertH.UnreadCount)
			r.Put("/alerts/read-all", alertH.MarkAllRead)
			r.Get("/alerts/{id}", alertH.Get)
			r.Put("/alerts/{id}/read", alertH.MarkRead)
			r.Put("/alerts/{id}/resolve", alertH.MarkResolved)
			r.Delete("/alerts/{id}", alertH.Delete)

			r.Get("/devices", deviceH.List)
			r.Post("/devices", deviceH.Create)
			r.Get("/devices/stats", deviceH.Stats)
			r.Get("/devices/{id}", deviceH.Get)
			r.Put("/devices/{id}", deviceH.Update)
			r.Put("/devices/{id}/status", deviceH.UpdateStatus)
			r.Delete("/devices/{id}", deviceH.Delete)

			r.Get("/vitals", vitalsH.Get)
			r.Put("/vitals/location", vitalsH.UpdateLocation)

			if deps.Readings != nil {
				readingsH := handler.NewReadingsHandler(deps.Readings)
				r.Get("/readings/current", readingsH.Current)
				r.Get("/readings/daily", readingsH.Daily)
				r.Get("/readings/history/{deviceId}", readingsH.History)
				r.Get("/readings/scenario/{deviceId}", readingsH.Scenario)
			}

			r.Get("/demo/generator", demoH.Status)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Delete("/alerts", alertH.DeleteAll)
				r.Post("/demo/generator/start", demoH.Start)
				r.Post("/demo/generator/stop", demoH.Stop)
				r.Post("/demo/seed", demoH.Seed)
			})
		})
	})

	return r
}
