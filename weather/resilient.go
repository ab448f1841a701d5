package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stylemateapi/apperr"
	"stylemateapi/metrics"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const breakerName = "openweather"

// Resilient wraps a Provider with a circuit breaker and a short-lived cache
// of current conditions keyed by cleaned city name.
type Resilient struct {
	next   Provider
	cb     *gobreaker.CircuitBreaker[any]
	cache  *cache.Cache[*Report]
	ttl    time.Duration
	logger *zap.Logger
}

func NewResilient(next Provider, ttl time.Duration, logger *zap.Logger) (*Resilient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create weather cache: %w", err)
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// unknown cities and bad input say nothing about upstream health
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch apperr.KindOf(err) {
			case apperr.KindNotFound, apperr.KindUserInput:
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &Resilient{
		next:   next,
		cb:     cb,
		cache:  cache.New[*Report](ristretto_store.NewRistretto(ristrettoCache)),
		ttl:    ttl,
		logger: logger,
	}, nil
}

func (r *Resilient) Current(ctx context.Context, city string) (*Report, error) {
	key := CleanCity(city)
	if key != "" {
		if cached, err := r.cache.Get(ctx, key); err == nil && cached != nil {
			metrics.WeatherRequests.WithLabelValues("cached").Inc()
			return cached, nil
		}
	}

	result, err := r.execute(func() (any, error) { return r.next.Current(ctx, city) })
	if err != nil {
		return nil, err
	}
	report := result.(*Report)
	if key != "" && r.ttl > 0 {
		if err := r.cache.Set(ctx, key, report, store.WithExpiration(r.ttl)); err != nil {
			r.logger.Debug("weather cache set failed", zap.String("city", key), zap.Error(err))
		}
	}
	return report, nil
}

func (r *Resilient) Forecast(ctx context.Context, city string) (*Forecast, error) {
	result, err := r.execute(func() (any, error) { return r.next.Forecast(ctx, city) })
	if err != nil {
		return nil, err
	}
	return result.(*Forecast), nil
}

func (r *Resilient) execute(fn func() (any, error)) (any, error) {
	result, err := r.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.WeatherRequests.WithLabelValues("rejected").Inc()
			return nil, apperr.Dependency("Weather service temporarily unavailable", err)
		}
		if apperr.KindOf(err) == apperr.KindNotFound {
			metrics.WeatherRequests.WithLabelValues("not_found").Inc()
		} else {
			metrics.WeatherRequests.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	metrics.WeatherRequests.WithLabelValues("ok").Inc()
	return result, nil
}

// State exposes the breaker state for health reporting.
func (r *Resilient) State() gobreaker.State {
	return r.cb.State()
}
