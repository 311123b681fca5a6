package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/yuv-man/habeat-server/internal/errors"
)

// Sentinel errors surfaced by the orchestrator.
var (
	// ErrExhausted signals that every model/attempt combination failed. The
	// last concrete provider error is joined in so callers can tell a
	// provider outage from bad input.
	ErrExhausted = errors.NewSentinel("model cascade exhausted")
	// ErrInvalidCredentials aborts the cascade without fallback.
	ErrInvalidCredentials = errors.NewSentinel("invalid provider credentials")
)

// Orchestrator defaults.
const (
	DefaultAttemptsPerModel = 3
	DefaultAttemptTimeout   = 45 * time.Second
	DefaultBackoffBase      = 500 * time.Millisecond
)

// Request is one unit of work: a prompt plus a parser that decides whether
// the response is usable. A parse failure counts as a retryable attempt
// failure, never a silent empty result.
type Request struct {
	Prompt string
	// Timeout bounds each attempt. Zero uses the orchestrator default.
	Timeout time.Duration
	// Parse validates and consumes the raw response. nil accepts anything.
	Parse func(raw string) error
}

// Orchestrator executes work units against a prioritized model cascade with
// per-attempt timeouts, exponential backoff and model-to-model fallback.
type Orchestrator struct {
	completer      Completer
	cache          *ModelCache
	logger         *slog.Logger
	attempts       int
	attemptTimeout time.Duration
	backoffBase    time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithAttemptsPerModel sets how many attempts each model gets.
func WithAttemptsPerModel(n int) OrchestratorOption {
	return func(o *Orchestrator) { o.attempts = n }
}

// WithAttemptTimeout sets the default per-attempt timeout.
func WithAttemptTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.attemptTimeout = d }
}

// WithBackoffBase sets the base delay for exponential backoff.
func WithBackoffBase(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.backoffBase = d }
}

// WithSleeper injects the sleep function, letting tests skip real delays.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) OrchestratorOption {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// NewOrchestrator creates an orchestrator over the given completer and model
// cache.
func NewOrchestrator(completer Completer, cache *ModelCache, logger *slog.Logger, opts ...OrchestratorOption) *Orchestrator {
	orch := &Orchestrator{
		completer:      completer,
		cache:          cache,
		logger:         logger,
		attempts:       DefaultAttemptsPerModel,
		attemptTimeout: DefaultAttemptTimeout,
		backoffBase:    DefaultBackoffBase,
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(orch)
	}
	return orch
}

// Execute runs the request through the cascade and returns the first
// response accepted by the parser.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (string, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = o.attemptTimeout
	}

	models := o.cache.Models(ctx)
	var lastErr error

modelLoop:
	for _, model := range models {
		for attempt := 0; attempt < o.attempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return "", errors.Wrap(err, "generation canceled")
			}
			if attempt > 0 {
				if err := o.sleep(ctx, o.backoffDelay(attempt)); err != nil {
					return "", errors.Wrap(err, "backoff interrupted")
				}
			}

			raw, err := o.attemptOnce(ctx, model, req, timeout)
			if err == nil {
				return raw, nil
			}
			lastErr = err

			class := Classify(err)
			o.logger.DebugContext(ctx, "generation attempt failed",
				slog.String("model", model),
				slog.Int("attempt", attempt+1),
				slog.String("class", class.String()),
				errors.SlogError(err))

			switch class {
			case ClassFatal:
				return "", errors.Wrap(errors.Join(ErrInvalidCredentials, err),
					"abort cascade", slog.String("model", model))
			case ClassQuota:
				continue modelLoop
			case ClassRetryable:
				// Retry the same model until attempts are exhausted.
			}
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no candidate models available")
	}
	return "", errors.Wrap(errors.Join(ErrExhausted, lastErr), "execute work unit",
		slog.Int("models_tried", len(models)))
}

// attemptOnce runs a single time-boxed attempt against one model. A timeout
// cancels only this attempt.
func (o *Orchestrator) attemptOnce(ctx context.Context, model string, req Request, timeout time.Duration) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := o.completer.Complete(attemptCtx, model, req.Prompt)
	if err != nil {
		return "", err
	}
	if req.Parse != nil {
		if err := req.Parse(raw); err != nil {
			return "", errors.Wrap(err, "parse response", slog.String("model", model))
		}
	}
	return raw, nil
}

// backoffDelay computes base * 2^attempt.
func (o *Orchestrator) backoffDelay(attempt int) time.Duration {
	return o.backoffBase * time.Duration(1<<attempt)
}

// sleepContext sleeps for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
