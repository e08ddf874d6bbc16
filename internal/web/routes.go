// Package web is the HTTP surface: form submissions, the approval link and
// the operator endpoints for pending transfers.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// AllowedOrigins may post submissions cross-origin. Empty allows any.
	AllowedOrigins []string
	// AdminToken guards /api/transfers. Empty disables those routes.
	AdminToken     string
	RequestTimeout time.Duration
}

// NewRouter wires all routes.
func NewRouter(h *Handlers, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", h.Health)

	// Approval links are opened from mail clients: plain GET, HTML out.
	r.Get("/activecampaign/transfer/{token}", h.ExecuteTransfer)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			origins := opts.AllowedOrigins
			if len(origins) == 0 {
				origins = []string{"*"}
			}
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: origins,
				AllowedMethods: []string{http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type", "X-Spam-Suspected"},
				MaxAge:         300,
			}))
			r.Post("/forms/{formID}/submissions", h.SubmitForm)
			r.Options("/forms/{formID}/submissions", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		})

		if opts.AdminToken != "" {
			r.Route("/transfers", func(r chi.Router) {
				r.Use(requireBearer(opts.AdminToken))
				r.Get("/pending", h.ListPending)
				r.Get("/pending/count", h.CountPending)
				r.Delete("/{token}", h.DeleteTransfer)
				r.Post("/cleanup", h.RunCleanup)
			})
		}
	})

	return r
}
