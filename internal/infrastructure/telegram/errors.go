package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/infrastructure/resilience"
)

func apiError(err error) (tgbotapi.Error, bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val, true
	}
	return tgbotapi.Error{}, false
}

// isNotModified reports the API refusal to apply an edit that changes nothing.
func isNotModified(err error) bool {
	apiErr, ok := apiError(err)
	return ok && strings.Contains(apiErr.Message, "message is not modified")
}

func classifyTelegramError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) || domain.IsKind(err, domain.ErrTooLarge) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	apiErr, ok := apiError(err)
	if !ok {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: false,
			RetryAfter:    time.Duration(apiErr.RetryAfter) * time.Second,
		}
	case apiErr.Code >= http.StatusInternalServerError:
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		// Client errors do not count against the breaker.
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
}
