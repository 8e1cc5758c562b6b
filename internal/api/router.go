package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/carelink/telehealth-scheduling/internal/availability"
	"github.com/carelink/telehealth-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Coordinator  *scheduling.Coordinator
	Slots        *scheduling.SlotGenerator
	Availability *availability.Service
	Services     scheduling.ServiceCatalog
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Log          zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/physicians/{id}", func(r chi.Router) {
		r.Get("/slots", listSlotsHandler(cfg.Slots, cfg.Services))

		r.Route("/availability", func(r chi.Router) {
			r.Get("/", getWeeklyScheduleHandler(cfg.Availability))
			r.Put("/", putWeeklyScheduleHandler(cfg.Availability))
			r.Get("/global", getGlobalAvailabilityHandler(cfg.Availability))
			r.Put("/global", putGlobalAvailabilityHandler(cfg.Availability))
			r.Put("/overrides/{date}", putDateOverrideHandler(cfg.Availability))
			r.Delete("/overrides/{date}", deleteDateOverrideHandler(cfg.Availability))
		})
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", bookAppointmentHandler(cfg.Coordinator))
		r.Get("/", listAppointmentsHandler(cfg.Coordinator))
		r.Get("/{id}", getAppointmentHandler(cfg.Coordinator))
		r.Post("/{id}/status", transitionAppointmentHandler(cfg.Coordinator))
	})

	return r
}
