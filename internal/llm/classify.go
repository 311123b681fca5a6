package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"

	"github.com/yuv-man/habeat-server/internal/errors"
)

// ErrorClass drives the orchestrator's retry and fallback decisions.
type ErrorClass int

const (
	// ClassRetryable covers timeouts, 5xx and overload responses. Retried on
	// the same model until attempts run out, then the next model is tried.
	ClassRetryable ErrorClass = iota
	// ClassQuota covers rate-limit and quota errors. Remaining attempts on
	// the current model are skipped and the next model is tried immediately.
	ClassQuota
	// ClassFatal covers authentication and credential errors. The whole
	// cascade is aborted, no fallback.
	ClassFatal
)

// String implements fmt.Stringer for log output.
func (c ErrorClass) String() string {
	switch c {
	case ClassQuota:
		return "quota"
	case ClassFatal:
		return "fatal"
	case ClassRetryable:
		return "retryable"
	default:
		return "retryable"
	}
}

// Classify buckets a completion error into the taxonomy above. Unknown
// errors default to retryable so a flaky provider never hard-fails a run
// before the cascade is exhausted.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassRetryable
	}

	// Attempt timeouts surface as context errors.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassRetryable
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ClassFatal
		case http.StatusTooManyRequests:
			return ClassQuota
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "unauthenticated") ||
		strings.Contains(msg, "invalid credential") ||
		strings.Contains(msg, "permission denied"):
		return ClassFatal
	case strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "billing"):
		return ClassQuota
	default:
		return ClassRetryable
	}
}
