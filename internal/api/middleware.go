package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"lendingdesk/internal/auth"
	"lendingdesk/internal/errs"
	"lendingdesk/internal/model"
	"lendingdesk/internal/respond"
)

// Metrics
var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lendingdesk_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lendingdesk_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "route"})
)

type ctxKey int

const userKey ctxKey = iota

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unmatched"
}

// instrument records request counts and latency per route, and logs each request.
func instrument(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := routePattern(r)
			elapsed := time.Since(start)
			httpReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			httpLatency.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"route":      route,
				"status":     ww.Status(),
				"duration":   elapsed.String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request served")
		})
	}
}

// authenticate requires a valid bearer token for an account that still
// exists and is active, and stores the account as it is now in the context.
// Role changes and deactivation take effect on the next request.
func authenticate(tokens *auth.Tokens, users auth.Service, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
				return
			}
			claims, err := tokens.Verify(raw)
			if err != nil {
				respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
			user, err := users.Lookup(r.Context(), claims.Username)
			if err != nil && !errors.Is(err, errs.ErrNotFound) {
				respond.Error(w, log, err)
				return
			}
			if err != nil || !user.IsActive || user.ID.String() != claims.Subject {
				respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "account disabled"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := r.Context().Value(userKey).(*model.User)
		if user == nil || !user.IsAdmin {
			respond.JSON(w, http.StatusForbidden, map[string]string{"error": "admin role required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
