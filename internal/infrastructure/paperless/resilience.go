package paperless

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/infrastructure/resilience"
)

// call runs fn through the executor, records telemetry and maps the failure
// onto a domain error kind.
func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	err := c.executor.Execute(ctx, operation, fn, classifyPaperlessError)
	err = wrapKind(operation, err)
	c.metrics.RecordBackendRequest(operation, time.Since(start), err)
	return err
}

func classifyPaperlessError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		}
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var decodeErr *decodeError
	if errors.As(err, &decodeErr) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

func wrapKind(operation string, err error) error {
	if err == nil {
		return nil
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound:
			return domain.WrapError(domain.ErrNotFound, operation, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.WrapError(domain.ErrUnauthorized, operation, err)
		}
		return domain.WrapError(domain.ErrBackend, operation, err)
	}
	var decodeErr *decodeError
	if errors.As(err, &decodeErr) {
		return domain.WrapError(domain.ErrBackend, operation, err)
	}
	return domain.WrapError(domain.ErrTransport, operation, err)
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
