package mealplan

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/yuv-man/habeat-server/internal/errors"
	"github.com/yuv-man/habeat-server/internal/extract"
	"github.com/yuv-man/habeat-server/internal/nutrition"
)

// Provider names for plan metadata.
const (
	ProviderCloud     = "cloud"
	ProviderLocal     = "local"
	ProviderSynthetic = "synthetic"
)

// syntheticDelay approximates real generation latency for demo runs.
const syntheticDelay = 1500 * time.Millisecond

// GenerateRequest carries everything one weekly generation run needs.
type GenerateRequest struct {
	Profile nutrition.Profile
	Goals   []nutrition.Goal
	// StartDate anchors the Monday-Sunday window. Zero means today.
	StartDate time.Time
	Language  string
	// StyleOverride replaces goal-derived prompt framing with a fixed plan
	// style and disables goal-based target adjustments.
	StyleOverride string
	// UseSyntheticData returns a canned plan after a fixed delay, without
	// any network calls.
	UseSyntheticData bool
}

// PlanStore persists finished plans. Saving is best effort, a store failure
// never fails the run.
type PlanStore interface {
	SavePlan(ctx context.Context, plan Plan) error
}

// localGenerator is the non-parallel fallback runtime.
type localGenerator interface {
	Healthy(ctx context.Context) error
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service runs the full weekly planning pipeline: targets, schedule, fan-out
// generation with local fallback, assembly, macro correction and favorite
// enrichment.
type Service struct {
	executor  dayExecutor
	local     localGenerator
	store     PlanStore
	favorites FavoriteSource
	logger    *slog.Logger
	rng       *rand.Rand
	now       func() time.Time
	// bestEffort keeps partial weeks when some day generations fail.
	bestEffort bool
	// sleep is injectable so the synthetic delay is testable.
	sleep func(ctx context.Context, d time.Duration) error
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithPlanStore persists every finished plan.
func WithPlanStore(store PlanStore) ServiceOption {
	return func(s *Service) { s.store = store }
}

// WithFavoriteSource enables favorite-meal enrichment.
func WithFavoriteSource(favorites FavoriteSource) ServiceOption {
	return func(s *Service) { s.favorites = favorites }
}

// WithRand injects the randomness source used by enrichment.
func WithRand(rng *rand.Rand) ServiceOption {
	return func(s *Service) { s.rng = rng }
}

// WithClock injects the wall clock.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithBestEffort returns partial weeks instead of failing the run when a
// single day exhausts its cascade.
func WithBestEffort() ServiceOption {
	return func(s *Service) { s.bestEffort = true }
}

func NewService(executor dayExecutor, local localGenerator, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		executor: executor,
		local:    local,
		logger:   logger,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateWeeklyPlan produces a reconciled weekly plan for the request.
func (s *Service) GenerateWeeklyPlan(ctx context.Context, req GenerateRequest) (Plan, error) {
	start := req.StartDate
	if start.IsZero() {
		start = s.now()
	}

	goals := req.Goals
	planType := string(req.Profile.Path)
	if req.StyleOverride != "" {
		// A fixed style replaces goal framing entirely.
		goals = nil
		planType = req.StyleOverride
	}

	targets := nutrition.CalculateTargets(req.Profile, goals)
	window := NewScheduleWindow(start, targets.EffectiveFrequency)
	inputs := PromptInputs{
		Profile:       req.Profile,
		Targets:       targets,
		Language:      req.Language,
		StyleOverride: req.StyleOverride,
	}

	s.logger.InfoContext(ctx, "generating weekly plan",
		slog.String("week_start", DateKey(window.WeekStart())),
		slog.Int("days", len(window.Days)),
		slog.Int("target_calories", targets.Calories),
		slog.Bool("synthetic", req.UseSyntheticData))

	var candidates []rawDay
	provider := ProviderCloud
	switch {
	case req.UseSyntheticData:
		if err := s.sleep(ctx, syntheticDelay); err != nil {
			return Plan{}, errors.Wrap(err, "synthetic delay")
		}
		candidates = syntheticDays(window, targets)
		provider = ProviderSynthetic
	default:
		var err error
		candidates, err = newGenerator(s.executor, s.logger, s.bestEffort).GenerateDays(ctx, inputs, window)
		if err != nil {
			candidates, provider, err = s.localFallback(ctx, inputs, window, err)
			if err != nil {
				return Plan{}, err
			}
		}
	}

	weekly, err := newAssembler(window, s.logger).Assemble(ctx, candidates)
	if err != nil {
		return Plan{}, err
	}

	corrector := macroCorrector{logger: s.logger}
	corrector.Correct(ctx, weekly, MealTargets(targets))

	if s.favorites != nil {
		newEnricher(s.favorites, s.rng, s.logger).Enrich(ctx, weekly)
	}

	plan := Plan{
		Days: weekly,
		Meta: Metadata{
			PlanType:    planType,
			Language:    req.Language,
			GeneratedAt: s.now(),
			Provider:    provider,
		},
	}

	if s.store != nil {
		if err := s.store.SavePlan(ctx, plan); err != nil {
			s.logger.WarnContext(ctx, "failed to persist plan", slog.Any("error", err))
		}
	}
	return plan, nil
}

// localFallback regenerates the whole week in one call against the local
// runtime after the cloud cascade failed.
func (s *Service) localFallback(ctx context.Context, inputs PromptInputs, window ScheduleWindow, cloudErr error) ([]rawDay, string, error) {
	if s.local == nil {
		return nil, "", cloudErr
	}
	s.logger.WarnContext(ctx, "cloud generation failed, falling back to local runtime",
		slog.Any("error", cloudErr))

	if err := s.local.Healthy(ctx); err != nil {
		return nil, "", errors.Join(cloudErr, errors.Wrap(err, "local runtime unavailable"))
	}
	raw, err := s.local.Generate(ctx, BuildWeekPrompt(inputs, window))
	if err != nil {
		return nil, "", errors.Join(cloudErr, errors.Wrap(err, "local generation"))
	}
	candidates, err := parseWeek(raw)
	if err != nil {
		return nil, "", errors.Join(cloudErr, err)
	}
	return candidates, ProviderLocal, nil
}

// parseWeek decodes a full-week response: either {"days": [...]} or a bare
// top-level array of day objects.
func parseWeek(raw string) ([]rawDay, error) {
	repaired, err := extract.JSON(raw)
	if err != nil {
		return nil, errors.Wrap(err, "extract week object")
	}

	var wrapped struct {
		Days []rawDay `json:"days"`
	}
	if err := json.Unmarshal([]byte(repaired), &wrapped); err == nil && len(wrapped.Days) > 0 {
		return wrapped.Days, nil
	}

	var bare []rawDay
	if err := json.Unmarshal([]byte(repaired), &bare); err == nil && len(bare) > 0 {
		return bare, nil
	}
	return nil, errors.New("week response contains no day objects")
}

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
