package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/bookmyslot/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries the HTTP-level settings of NewRouter.
type RouterConfig struct {
	AllowedOrigins   []string
	BookingRateLimit float64
	BookingRateBurst int
}

// NewRouter builds the chi router with the global middleware stack and all
// API routes.
func NewRouter(events *EventHandler, bookings *BookingHandler, logger *slog.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(logger))
	r.Use(CORS(cfg.AllowedOrigins))

	limiter := NewRateLimiter(cfg.BookingRateLimit, cfg.BookingRateBurst)

	r.Get("/health", HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/events", func(r chi.Router) {
		r.Post("/", events.CreateEvent)
		r.Get("/", events.ListEvents)
		r.Get("/{id}", events.GetEvent)
		r.Delete("/{id}", events.DeleteEvent)
		r.With(limiter.Limit).Post("/{id}/bookings", bookings.CreateBooking)
	})

	r.Route("/bookings", func(r chi.Router) {
		r.With(limiter.Limit).Post("/", bookings.CreateBooking)
		r.Get("/all", bookings.ListBookings)
		r.Get("/users/{email}/bookings", bookings.ListUserBookings)
	})

	r.Get("/slots/{id}", bookings.GetSlot)

	return r
}
