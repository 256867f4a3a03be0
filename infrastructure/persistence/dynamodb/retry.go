package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	pkgerrors "peerbridge-backend/pkg/errors"
	"peerbridge-backend/pkg/observability"
)

const maxStorageRetries = 3

// Retrier wraps storage calls with bounded exponential backoff and a
// circuit breaker. When retries are exhausted or the breaker is open,
// callers get an Unavailable error so the HTTP layer answers 503.
type Retrier struct {
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRetrier creates a retrier with a breaker tuned for DynamoDB.
func NewRetrier(metrics *observability.Metrics, logger *zap.Logger) *Retrier {
	settings := gobreaker.Settings{
		Name:        "dynamodb",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Retrier{
		breaker: gobreaker.NewCircuitBreaker(settings),
		metrics: metrics,
		logger:  logger,
	}
}

// Do runs op, retrying transient failures. Domain errors (validation,
// not-found, conflict, permission) pass through untouched and are never
// retried.
func (r *Retrier) Do(ctx context.Context, name string, op func() error) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		policy := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxStorageRetries), ctx)

		return nil, backoff.Retry(func() error {
			err := op()
			if err == nil {
				return nil
			}
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			r.metrics.StorageRetries.Inc()
			r.logger.Warn("transient storage error, retrying",
				zap.String("operation", name), zap.Error(err))
			return err
		}, policy)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return pkgerrors.NewUnavailableError("storage")
	}
	if isPermanent(err) {
		return err
	}
	return pkgerrors.NewUnavailableError("storage").WithCause(err)
}

func isPermanent(err error) bool {
	var appErr *pkgerrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case pkgerrors.ErrorTypeValidation,
			pkgerrors.ErrorTypeNotFound,
			pkgerrors.ErrorTypeConflict,
			pkgerrors.ErrorTypeForbidden,
			pkgerrors.ErrorTypeUnauthorized:
			return true
		}
	}
	return false
}
