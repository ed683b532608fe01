// Package api exposes the services over HTTP/JSON.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"lendingdesk/internal/auth"
	"lendingdesk/internal/catalog"
	"lendingdesk/internal/circulation"
	"lendingdesk/internal/membership"
	"lendingdesk/internal/model"
	"lendingdesk/internal/reports"
	"lendingdesk/internal/requests"
	"lendingdesk/internal/respond"
)

// Services bundles everything the router dispatches to.
type Services struct {
	Store       model.Store
	Catalog     catalog.Service
	Membership  membership.Service
	Circulation circulation.Service
	Requests    requests.Service
	Reports     reports.Service
	Auth        auth.Service
	Tokens      *auth.Tokens
}

func NewRouter(s Services, log logrus.FieldLogger) http.Handler {
	items := catalog.NewHandler(s.Catalog, log)
	members := membership.NewHandler(s.Membership, log)
	circ := circulation.NewHandler(s.Circulation, log)
	reqs := requests.NewHandler(s.Requests, log)
	reps := reports.NewHandler(s.Reports, log)
	users := auth.NewHandler(s.Auth, s.Tokens, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.Store.Ping(r.Context()); err != nil {
			log.WithError(err).Warn("health check failed")
			respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", users.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(authenticate(s.Tokens, s.Auth, log))

			r.Get("/items", items.HandleFindItems)
			r.Get("/items/{serial}", items.HandleGetItem)
			r.Get("/members/{id}", members.HandleGetMember)
			r.Post("/members/{id}/payments", circ.HandlePayFine)
			r.Post("/issues", circ.HandleIssue)
			r.Post("/returns/quote", circ.HandleQuoteReturn)
			r.Post("/returns/commit", circ.HandleCommitReturn)
			r.Post("/requests", reqs.HandleCreate)
			r.Post("/requests/{id}/fulfill", reqs.HandleFulfill)

			r.Route("/reports", func(r chi.Router) {
				r.Get("/books", reps.HandleBooks)
				r.Get("/movies", reps.HandleMovies)
				r.Get("/members", reps.HandleMembers)
				r.Get("/active-issues", reps.HandleActiveIssues)
				r.Get("/overdue", reps.HandleOverdue)
				r.Get("/requests", reps.HandleRequests)
				r.Get("/drift", reps.HandleDrift)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Post("/items", items.HandleAddItems)
				r.Patch("/items/{serial}/status", items.HandleSetItemStatus)
				r.Post("/members", members.HandleAddMember)
				r.Post("/members/{id}/extend", members.HandleExtend)
				r.Post("/members/{id}/cancel", members.HandleCancel)
				r.Get("/users", users.HandleListUsers)
				r.Post("/users", users.HandleCreateUser)
				r.Patch("/users/{username}", users.HandleUpdateUser)
			})
		})
	})

	return r
}
