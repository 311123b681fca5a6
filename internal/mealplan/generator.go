package mealplan

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/yuv-man/habeat-server/internal/errors"
	"github.com/yuv-man/habeat-server/internal/extract"
	"github.com/yuv-man/habeat-server/internal/llm"
)

// dayExecutor abstracts the model cascade so generator tests can script it.
type dayExecutor interface {
	Execute(ctx context.Context, req llm.Request) (string, error)
}

// generator fans one prompt per scheduled day out to the model cascade and
// joins the results.
type generator struct {
	executor dayExecutor
	logger   *slog.Logger
	// bestEffort keeps days that succeeded when siblings fail. The default
	// is all-or-nothing.
	bestEffort bool
}

func newGenerator(executor dayExecutor, logger *slog.Logger, bestEffort bool) *generator {
	return &generator{executor: executor, logger: logger, bestEffort: bestEffort}
}

// GenerateDays submits every day prompt concurrently and returns the parsed
// candidates. Each day retries and falls back through the cascade on its
// own; sibling failures never cancel in-flight days. With bestEffort off a
// single exhausted day fails the whole call.
func (g *generator) GenerateDays(ctx context.Context, inputs PromptInputs, window ScheduleWindow) ([]rawDay, error) {
	results := make([]rawDay, len(window.Days))
	failures := make([]error, len(window.Days))

	var group errgroup.Group
	for i, day := range window.Days {
		group.Go(func() error {
			candidate, err := g.generateDay(ctx, inputs, day, i)
			if err != nil {
				failures[i] = errors.Wrap(err, "generate day",
					slog.String("date", DateKey(day.Date)))
				return nil
			}
			results[i] = candidate
			return nil
		})
	}
	// Goroutines record their own outcomes, Wait only synchronizes.
	_ = group.Wait()

	var kept []rawDay
	var failed []error
	for i := range results {
		if failures[i] != nil {
			failed = append(failed, failures[i])
			continue
		}
		kept = append(kept, results[i])
	}

	if len(failed) > 0 {
		if !g.bestEffort {
			return nil, errors.Join(failed...)
		}
		g.logger.WarnContext(ctx, "keeping partial week after day failures",
			slog.Int("failed", len(failed)),
			slog.Int("succeeded", len(kept)),
			slog.Any("error", errors.Join(failed...)))
	}
	return kept, nil
}

func (g *generator) generateDay(ctx context.Context, inputs PromptInputs, day ScheduledDay, dayOffset int) (rawDay, error) {
	var candidate rawDay
	req := llm.Request{
		Prompt: BuildDayPrompt(inputs, day, dayOffset),
		Parse: func(raw string) error {
			parsed, err := parseDay(raw)
			if err != nil {
				return err
			}
			candidate = parsed
			return nil
		},
	}
	if _, err := g.executor.Execute(ctx, req); err != nil {
		return rawDay{}, err
	}
	return candidate, nil
}

// parseDay extracts and decodes one day candidate from raw model output. A
// structurally invalid candidate is a parse failure, which the cascade
// treats as retryable.
func parseDay(raw string) (rawDay, error) {
	repaired, err := extract.JSON(raw)
	if err != nil {
		return rawDay{}, errors.Wrap(err, "extract day object")
	}
	var candidate rawDay
	if err := json.Unmarshal([]byte(repaired), &candidate); err != nil {
		return rawDay{}, errors.Wrap(err, "decode day object")
	}
	if !candidate.valid() {
		return rawDay{}, errors.New("day object missing date or meals")
	}
	return candidate, nil
}
