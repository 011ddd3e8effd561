package store

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	apperrors "carelink-backend/pkg/errors"
)

// BreakerConfig holds circuit breaker settings for the document store.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// ReadyToTrip parameters
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the settings used in front of DynamoDB.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// BreakerStore decorates a DocumentStore with a circuit breaker so a
// misbehaving store fails fast instead of stalling every aggregation
// request. Missing documents are not failures.
type BreakerStore struct {
	inner   DocumentStore
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewBreakerStore wraps inner with a circuit breaker.
func NewBreakerStore(inner DocumentStore, config BreakerConfig, logger *zap.Logger) *BreakerStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("store circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// A missing document is a normal read outcome.
			return err == nil || errors.Is(err, ErrDocumentNotFound)
		},
	})

	return &BreakerStore{inner: inner, breaker: cb, logger: logger}
}

// Get passes through the breaker.
func (s *BreakerStore) Get(ctx context.Context, path ...string) (Document, error) {
	result, err := s.breaker.Execute(func() (any, error) {
		return s.inner.Get(ctx, path...)
	})
	if err != nil {
		return nil, s.translate(err)
	}
	return result.(Document), nil
}

// List passes through the breaker.
func (s *BreakerStore) List(ctx context.Context, path ...string) (map[string]Document, error) {
	result, err := s.breaker.Execute(func() (any, error) {
		return s.inner.List(ctx, path...)
	})
	if err != nil {
		return nil, s.translate(err)
	}
	return result.(map[string]Document), nil
}

func (s *BreakerStore) translate(err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return apperrors.NewUnavailable("store circuit open", err)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperrors.NewUnavailable("store circuit half-open saturated", err)
	default:
		return err
	}
}
