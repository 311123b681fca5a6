package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/yuv-man/habeat-server/internal/envstruct"
	"github.com/yuv-man/habeat-server/internal/errors"
	"github.com/yuv-man/habeat-server/internal/flightrecorder"
	"github.com/yuv-man/habeat-server/internal/llm"
	"github.com/yuv-man/habeat-server/internal/logging"
	"github.com/yuv-man/habeat-server/internal/mealplan"
	"github.com/yuv-man/habeat-server/internal/nutrition"
)

type config struct {
	// APIKey authenticates against the cloud model provider.
	APIKey string `env:"HABEAT_API_KEY" envDefault:""`
	// BaseURL is the provider's OpenAI-compatible endpoint.
	BaseURL string `env:"HABEAT_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai"`
	// LocalBaseURL points at an optional local model runtime used as a
	// fallback when the cloud cascade is exhausted. Empty disables it.
	LocalBaseURL string `env:"HABEAT_LOCAL_BASE_URL" envDefault:""`
	// LocalModel is the model name served by the local runtime.
	LocalModel string `env:"HABEAT_LOCAL_MODEL" envDefault:""`
	// AttemptTimeout bounds a single model attempt, as a Go duration string.
	AttemptTimeout string `env:"HABEAT_ATTEMPT_TIMEOUT" envDefault:"45s"`
	// BestEffort returns partial weeks instead of failing when a day's
	// generation exhausts the cascade. Any non-empty value enables it.
	BestEffort string `env:"HABEAT_BEST_EFFORT" envDefault:""`
	// TracesDir enables flight recording of slow runs when non-empty.
	TracesDir string `env:"HABEAT_TRACES_DIR" envDefault:""`
	// SlowRunThreshold is the generation duration beyond which a trace is
	// captured, as a Go duration string.
	SlowRunThreshold string `env:"HABEAT_SLOW_RUN_THRESHOLD" envDefault:"2m"`
}

// planRequest is the JSON document accepted via the -profile flag.
type planRequest struct {
	Profile          nutrition.Profile `json:"profile"`
	Goals            []nutrition.Goal  `json:"goals"`
	StartDate        string            `json:"startDate"`
	Language         string            `json:"language"`
	StyleOverride    string            `json:"styleOverride"`
	UseSyntheticData bool              `json:"useSyntheticData"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool), args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	flags := flag.NewFlagSet("planner", flag.ContinueOnError)
	profilePath := flags.String("profile", "", "path to a plan request JSON file")
	if err := flags.Parse(args); err != nil {
		return errors.Wrap(err, "parse flags")
	}
	if *profilePath == "" {
		return errors.New("missing required -profile flag")
	}

	var cfg config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	attemptTimeout, err := time.ParseDuration(cfg.AttemptTimeout)
	if err != nil {
		return errors.Wrap(err, "parse attempt timeout", slog.String("value", cfg.AttemptTimeout))
	}
	slowRunThreshold, err := time.ParseDuration(cfg.SlowRunThreshold)
	if err != nil {
		return errors.Wrap(err, "parse slow run threshold", slog.String("value", cfg.SlowRunThreshold))
	}

	req, err := readPlanRequest(*profilePath)
	if err != nil {
		return errors.Wrap(err, "read plan request", slog.String("path", *profilePath))
	}

	cloud := llm.NewCloudClient(cfg.APIKey, cfg.BaseURL, logger)
	cache := llm.NewModelCache(cloud, logger)
	orchestrator := llm.NewOrchestrator(cloud, cache, logger,
		llm.WithAttemptTimeout(attemptTimeout))

	opts := []mealplan.ServiceOption{}
	if cfg.BestEffort != "" {
		opts = append(opts, mealplan.WithBestEffort())
	}

	var localRuntime *llm.LocalClient
	if cfg.LocalBaseURL != "" {
		localRuntime = llm.NewLocalClient(cfg.LocalBaseURL, cfg.LocalModel, logger)
	}

	var recorder *flightrecorder.Service
	if cfg.TracesDir != "" {
		if recorder, err = flightrecorder.New(flightrecorder.Config{
			Logger:          logger,
			TracesDirectory: cfg.TracesDir,
		}); err != nil {
			return errors.Wrap(err, "new flight recorder")
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(ctx)
	}

	service := newService(orchestrator, localRuntime, logger, opts...)

	start := time.Now()
	plan, err := service.GenerateWeeklyPlan(ctx, req)
	if elapsed := time.Since(start); recorder != nil && elapsed > slowRunThreshold {
		recorder.CaptureSlowRun(ctx, elapsed)
	}
	if err != nil {
		return errors.Wrap(err, "generate weekly plan")
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(plan); err != nil {
		return errors.Wrap(err, "encode plan")
	}
	return nil
}

// newService keeps the nil fallback typed: a nil *LocalClient must not reach
// the service as a non-nil interface.
func newService(orchestrator *llm.Orchestrator, local *llm.LocalClient, logger *slog.Logger, opts ...mealplan.ServiceOption) *mealplan.Service {
	if local == nil {
		return mealplan.NewService(orchestrator, nil, logger, opts...)
	}
	return mealplan.NewService(orchestrator, local, logger, opts...)
}

func readPlanRequest(path string) (mealplan.GenerateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mealplan.GenerateRequest{}, errors.Wrap(err, "read file")
	}
	var req planRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return mealplan.GenerateRequest{}, errors.Wrap(err, "decode request")
	}

	out := mealplan.GenerateRequest{
		Profile:          req.Profile,
		Goals:            req.Goals,
		Language:         req.Language,
		StyleOverride:    req.StyleOverride,
		UseSyntheticData: req.UseSyntheticData,
	}
	if req.StartDate != "" {
		start, err := time.ParseInLocation(mealplan.DateKeyLayout, req.StartDate, time.Local)
		if err != nil {
			return mealplan.GenerateRequest{}, errors.Wrap(err, "parse start date",
				slog.String("value", req.StartDate))
		}
		out.StartDate = start
	}
	return out, nil
}

func main() {
	ctx := context.Background()

	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if err := run(ctx, logger, os.LookupEnv, os.Args[1:]); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure generating plan", errors.SlogError(err))
		os.Exit(1)
	}
}
