// Package metrics provides Prometheus instrumentation for the game server.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GamesCreated counts game sessions created.
	GamesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "axkan_games_created_total",
		Help: "Total number of game sessions created",
	})

	// ActiveSessions tracks sessions held in memory.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "axkan_active_sessions",
		Help: "Number of game sessions currently held",
	})

	// ActionsTotal counts dispatched actions by action and outcome. Outcome
	// is "ok" or the error kind.
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "axkan_actions_total",
		Help: "Total player actions dispatched",
	}, []string{"action", "outcome"})

	// DispatchLatency tracks time spent applying an action under the
	// session lock.
	DispatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "axkan_dispatch_latency_seconds",
		Help:    "Action dispatch latency in seconds",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	}, []string{"action"})

	// GamesFinished counts finished games by outcome ("win" or "tie").
	GamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "axkan_games_finished_total",
		Help: "Total games played to the end",
	}, []string{"outcome"})

	// FinalPrice is the distribution of closing stock prices.
	FinalPrice = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "axkan_final_price",
		Help:    "Stock price at game end",
		Buckets: prometheus.LinearBuckets(1, 1, 20),
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "axkan_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "axkan_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "axkan_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
// The path label is the chi route pattern, so game ids never become labels.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response does not implement http.Hijacker")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
