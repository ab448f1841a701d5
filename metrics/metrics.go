package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// result: ok, empty_wardrobe, no_viable_outfits, error
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stylemate_recommendations_total",
			Help: "Recommendation requests by result",
		},
		[]string{"result"},
	)

	RecommendationCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stylemate_recommendation_candidates",
			Help:    "Number of candidate outfits returned per request",
			Buckets: []float64{0, 1, 2, 3, 4},
		},
	)

	// result: ok, cached, not_found, error, rejected
	WeatherRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stylemate_weather_requests_total",
			Help: "Weather provider lookups by result",
		},
		[]string{"result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stylemate_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	TasksEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stylemate_tasks_enqueued_total",
			Help: "Background tasks enqueued by type and result",
		},
		[]string{"type", "result"},
	)

	SavedOutfits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stylemate_saved_outfits_total",
			Help: "Saved outfit operations by operation and result",
		},
		[]string{"operation", "result"},
	)
)

// Middleware records request count and latency keyed on the route pattern,
// not the raw URI.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			HTTPRequests.WithLabelValues(method, path, strconv.Itoa(c.Response().Status)).Inc()
			HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
