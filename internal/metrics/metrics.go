// Package metrics holds the Prometheus collectors of the pokedex server and
// the echo middleware that feeds the HTTP ones.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth decision outcomes.
const (
	OutcomeAllowed       = "allowed"
	OutcomeMissing       = "missing"
	OutcomeMalformed     = "malformed"
	OutcomeExpired       = "expired"
	OutcomeRevoked       = "revoked"
	OutcomeUnknownUser   = "unknown_user"
	OutcomeForbidden     = "forbidden"
	OutcomeInternalError = "error"
)

var (
	AuthDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_auth_decisions_total",
			Help: "Authentication and role gate decisions by outcome",
		},
		[]string{"outcome"},
	)

	SpeciesFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_species_fetch_total",
			Help: "Species API lookups by outcome",
		},
		[]string{"outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokedex_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func RecordAuthDecision(outcome string) {
	AuthDecisionsTotal.WithLabelValues(outcome).Inc()
}

func RecordSpeciesFetch(outcome string) {
	SpeciesFetchTotal.WithLabelValues(outcome).Inc()
}

// Middleware records every request under its route template, so /pokemon/1
// and /pokemon/2 share one series.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		var he *echo.HTTPError
		if err != nil && errors.As(err, &he) {
			status = he.Code
		} else if err != nil && !c.Response().Committed {
			status = http.StatusInternalServerError
		}

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request().Method
		HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}
