package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dsz/skyfleet/app"
	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/handlers"
	"github.com/dsz/skyfleet/internal/observability"
	"github.com/dsz/skyfleet/middleware"
	"github.com/dsz/skyfleet/utils"
)

// placeholder pages served behind the gate, keyed by route pattern
var pages = []struct {
	pattern string
	title   string
}{
	{"/dashboard", "Dashboard"},
	{"/flights", "Flight Logs"},
	{"/flights/new", "New Flight Log"},
	{"/drones", "Drones"},
	{"/drones/{id}", "Drone"},
	{"/pilots", "Pilots"},
	{"/pilots/{id}", "Pilot"},
	{"/missions", "Missions"},
	{"/compliance", "Compliance"},
	{"/schedule", "Schedule"},
	{"/reports", "Reports"},
	{"/reports/*", "Reports"},
	{"/settings", "Settings"},
}

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger.Named("http")))
	r.Use(chimw.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	}
	if cfg.Observability.MetricsEnabled {
		r.Use(observability.InstrumentHTTP)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health and metrics stay outside the gate
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))
	if cfg.Observability.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	guard := func(action authz.Action) func(http.Handler) http.Handler {
		return deps.Guard.Require(deps.Policy.MustRule(action))
	}

	// Rate limiting runs before the gate
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimit))
		r.Use(deps.Gate.Handler)

		r.With(guard(authz.ActionAuthMe)).Get("/auth/me", handlers.GetCurrentUserHandler(deps))

		r.Route("/pilots", func(r chi.Router) {
			r.With(guard(authz.ActionPilotsRead)).Get("/", handlers.GetPilotsHandler(deps))
			r.With(guard(authz.ActionPilotsWrite)).Post("/", handlers.CreatePilotHandler(deps))
			r.With(guard(authz.ActionPilotsWrite)).Put("/", handlers.UpdatePilotHandler(deps))
			r.With(guard(authz.ActionPilotsWrite)).Delete("/", handlers.DeletePilotHandler(deps))
			r.With(guard(authz.ActionPilotFlightHours)).Get("/{id}/flight-hours", handlers.PilotFlightHoursHandler(deps))
		})

		r.Route("/drones", func(r chi.Router) {
			r.With(guard(authz.ActionDronesRead)).Get("/", handlers.GetDronesHandler(deps))
			r.With(guard(authz.ActionDronesWrite)).Post("/", handlers.CreateDroneHandler(deps))
			r.With(guard(authz.ActionDronesWrite)).Put("/", handlers.UpdateDroneHandler(deps))
			r.With(guard(authz.ActionDronesWrite)).Delete("/", handlers.DeleteDroneHandler(deps))
			r.With(guard(authz.ActionDroneFlightHours)).Get("/{id}/flight-hours", handlers.DroneFlightHoursHandler(deps))
		})

		r.Route("/missions", func(r chi.Router) {
			r.With(guard(authz.ActionMissionsRead)).Get("/", handlers.GetMissionsHandler(deps))
			r.With(guard(authz.ActionMissionsCreate)).Post("/", handlers.CreateMissionHandler(deps))
			r.With(guard(authz.ActionMissionsUpdate)).Put("/", handlers.UpdateMissionHandler(deps))
			r.With(guard(authz.ActionMissionsDelete)).Delete("/", handlers.DeleteMissionHandler(deps))
		})

		r.Route("/flights", func(r chi.Router) {
			r.With(guard(authz.ActionFlightsRead)).Get("/", handlers.GetFlightLogsHandler(deps))
			r.With(guard(authz.ActionFlightsCreate)).Post("/", handlers.CreateFlightLogHandler(deps))
			r.With(guard(authz.ActionFlightsUpdate)).Put("/", handlers.UpdateFlightLogHandler(deps))
			r.With(guard(authz.ActionFlightsDelete)).Delete("/", handlers.DeleteFlightLogHandler(deps))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.With(guard(authz.ActionNotificationsRead)).Get("/", handlers.GetNotificationsHandler(deps))
			r.With(guard(authz.ActionNotificationsCreate)).Post("/", handlers.CreateNotificationHandler(deps))
			r.With(guard(authz.ActionNotificationsUpdate)).Put("/", handlers.UpdateNotificationHandler(deps))
			r.With(guard(authz.ActionNotificationsDelete)).Delete("/", handlers.DeleteNotificationHandler(deps))
			r.With(guard(authz.ActionNotificationsUpdate)).Put("/{id}/read", handlers.MarkNotificationReadHandler(deps))
			r.With(guard(authz.ActionCheckCertifications)).Get("/check-expiring-certs", handlers.CheckExpiringCertsHandler(deps))
		})

		r.Route("/users", func(r chi.Router) {
			r.With(guard(authz.ActionUsersRead)).Get("/", handlers.GetUsersHandler(deps))
			r.With(guard(authz.ActionUsersWrite)).Post("/", handlers.CreateUserHandler(deps))
			r.With(guard(authz.ActionUsersWrite)).Put("/", handlers.UpdateUserHandler(deps))
			r.With(guard(authz.ActionUsersWrite)).Delete("/", handlers.DeleteUserHandler(deps))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(deps.Gate.Handler)

		// Pages
		r.Get(cfg.Auth.LoginPath, handlers.LoginPageHandler(deps))
		r.Post(cfg.Auth.LoginPath, handlers.SessionLoginHandler(deps))
		r.Get("/logout", handlers.LogoutHandler(deps))
		r.Get(cfg.Auth.AccessDeniedPath, handlers.AccessDeniedHandler(deps))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
		})
		for _, p := range pages {
			r.Get(p.pattern, handlers.PageHandler(deps, p.title))
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			_ = utils.WriteNotFound(w, "Endpoint not found")
			return
		}
		http.NotFound(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	return r
}
