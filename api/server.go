/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. CORS:       Cross-origin requests for the calendar frontend
  2. httplog:    Structured request logging (ECS schema)
  3. RequestID:  Unique ID per request for tracing
  4. CleanPath:  Collapse duplicate slashes before routing
  5. Recoverer:  Panic recovery (500 instead of crash)
  6. Heartbeat:  GET /health for liveness probes

ROUTE GROUPS:
  /api/calendar         Visible range load
  /api/templates/*      Shift and absence templates
  /api/placement/*      Arm / disarm / select
  /api/days/{date}/*    Placement, confirmation, unlock
  /api/shifts/*         Instance reschedule and delete
  /api/tracking/*       Tracking records
  /api/weeks/*          Week progress and submission
  /api/submissions/*    Submission queue
  /api/scenarios/*      Demo data (resets the store)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// NewRouter creates a new router with all routes configured. A nil logger
// disables request logging.
func NewRouter(h *Handler, logger *slog.Logger, origins []string) *chi.Mux {
	r := chi.NewRouter()

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	if logger != nil {
		r.Use(httplog.RequestLogger(logger, &httplog.Options{
			Level:  slog.LevelDebug,
			Schema: httplog.SchemaECS,
		}))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.CleanPath)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/calendar", h.GetCalendar)

		// Template routes
		r.Route("/templates", func(r chi.Router) {
			r.Route("/shifts", func(r chi.Router) {
				r.Get("/", h.ListShiftTemplates)
				r.Post("/", h.CreateShiftTemplate)
				r.Put("/{id}", h.UpdateShiftTemplate)
				r.Delete("/{id}", h.DeleteShiftTemplate)
			})
			r.Route("/absences", func(r chi.Router) {
				r.Get("/", h.ListAbsenceTemplates)
				r.Post("/", h.CreateAbsenceTemplate)
				r.Put("/{id}", h.UpdateAbsenceTemplate)
				r.Delete("/{id}", h.DeleteAbsenceTemplate)
			})
		})

		// Placement routes
		r.Route("/placement", func(r chi.Router) {
			r.Post("/arm", h.Arm)
			r.Post("/disarm", h.Disarm)
			r.Post("/select", h.Select)
		})

		// Day routes
		r.Route("/days/{date}", func(r chi.Router) {
			r.Post("/shifts", h.PlaceShift)
			r.Post("/absences", h.PlaceAbsence)
			r.Post("/confirm", h.ConfirmDay)
			r.Post("/unlock", h.UnlockDay)
		})

		// Instance routes
		r.Route("/shifts", func(r chi.Router) {
			r.Put("/{id}", h.RescheduleShift)
			r.Delete("/{id}", h.DeleteShift)
		})
		r.Delete("/absences/{id}", h.DeleteAbsence)

		// Tracking routes
		r.Route("/tracking", func(r chi.Router) {
			r.Post("/", h.CreateTracking)
			r.Patch("/{id}/start", h.UpdateTrackingStart)
			r.Patch("/{id}/end", h.UpdateTrackingEnd)
			r.Patch("/{id}/break", h.UpdateTrackingBreak)
			r.Post("/{id}/drag", h.DragTracking)
			r.Delete("/{id}", h.DeleteTracking)
		})

		// Week and submission routes
		r.Route("/weeks/{weekStart}", func(r chi.Router) {
			r.Get("/", h.GetWeek)
			r.Post("/submit", h.SubmitWeek)
		})
		r.Route("/submissions", func(r chi.Router) {
			r.Get("/", h.ListSubmissions)
			r.Post("/process", h.ProcessSubmissions)
		})

		// Demo scenarios
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
