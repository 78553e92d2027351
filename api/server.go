/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for a local frontend
  5. Origin:     Writes from foreign origins are refused (403)

ROUTE GROUPS:
  /api/config     Wage configuration
  /api/session    Timer lifecycle and live feed
  /api/sessions   History and statistics
  /api/plans      Certification plans and ROI
  /api/reset      Data reset

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins are the local dev frontends.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// RouterOptions configures cross-cutting behaviour of the router.
type RouterOptions struct {
	// AllowedOrigins for CORS. Defaults to DefaultAllowedOrigins.
	AllowedOrigins []string
}

// Origins returns the explicit origins the router trusts. Credentials are
// allowed, so the "*" wildcard is dropped rather than echoing any origin.
func (o RouterOptions) Origins() []string {
	var out []string
	for _, origin := range o.AllowedOrigins {
		if origin != "" && origin != "*" {
			out = append(out, origin)
		}
	}
	if len(out) == 0 {
		return DefaultAllowedOrigins
	}
	return out
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.Origins()

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(rejectForeignWrites(origins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/config", func(r chi.Router) {
			r.Get("/", h.GetConfig)
			r.Put("/", h.UpdateConfig)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/start", h.StartWork)
			r.Post("/end", h.EndWork)
			r.Post("/service-overtime", h.MarkServiceOvertime)
			r.Get("/live", h.LiveFeed)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Get("/daily", h.ListDailySummaries)
		})

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", h.ListPlans)
			r.Post("/", h.CreatePlan)
			r.Get("/summary", h.GetPlanSummary)
			r.Get("/{id}", h.GetPlan)
			r.Put("/{id}", h.UpdatePlan)
			r.Delete("/{id}", h.DeletePlan)
			r.Post("/{id}/status", h.SetPlanStatus)
			r.Get("/{id}/roi", h.GetPlanROI)
		})

		r.Post("/reset", h.Reset)
	})

	return r
}

// rejectForeignWrites refuses state-changing requests whose Origin is neither
// trusted nor the server itself. Requests without an Origin pass.
func rejectForeignWrites(origins []string) func(http.Handler) http.Handler {
	trusted := make(map[string]bool, len(origins))
	for _, o := range origins {
		trusted[strings.ToLower(o)] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			origin := r.Header.Get("Origin")
			if origin == "" || trusted[strings.ToLower(origin)] || sameHost(origin, r.Host) {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusForbidden, "Origin not allowed", nil)
		})
	}
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, host)
}
