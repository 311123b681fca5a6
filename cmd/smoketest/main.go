// Command smoketest runs the weekly planning pipeline against synthetic data
// and verifies the plan invariants hold. It makes no network calls, so it is
// safe to run in CI and against fresh deployments.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/yuv-man/habeat-server/internal/errors"
	"github.com/yuv-man/habeat-server/internal/logging"
	"github.com/yuv-man/habeat-server/internal/mealplan"
	"github.com/yuv-man/habeat-server/internal/nutrition"
	"github.com/yuv-man/habeat-server/internal/testhelpers"
)

const calorieTolerance = 10

func run(ctx context.Context, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	service := mealplan.NewService(nil, nil, logger)
	plan, err := service.GenerateWeeklyPlan(ctx, mealplan.GenerateRequest{
		Profile: nutrition.Profile{
			Age:              30,
			Sex:              nutrition.SexMale,
			HeightCm:         175,
			WeightKg:         70,
			WorkoutFrequency: 3,
			Path:             nutrition.PathMaintenance,
		},
		Language:         "en",
		UseSyntheticData: true,
	})
	if err != nil {
		return errors.Wrap(err, "generate synthetic plan")
	}

	if len(plan.Days) == 0 || len(plan.Days) > 7 {
		return errors.New("plan day count outside 1-7")
	}
	for key, day := range plan.Days {
		if _, err := time.Parse(mealplan.DateKeyLayout, key); err != nil {
			return errors.Wrap(err, "invalid date key", slog.String("key", key))
		}
		for _, meal := range append([]mealplan.Meal{day.Breakfast, day.Lunch, day.Dinner}, day.Snacks...) {
			computed := meal.ProteinG*4 + meal.CarbsG*4 + meal.FatG*9
			if diff := meal.Calories - computed; diff > calorieTolerance || diff < -calorieTolerance {
				return errors.New("meal calories inconsistent with macros")
			}
		}
		if day.WaterGlasses < 6 || day.WaterGlasses > 12 {
			return errors.New("water glasses outside 6-12")
		}
	}
	if plan.Meta.Provider != mealplan.ProviderSynthetic {
		return errors.New("unexpected provider in metadata")
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := logging.WithAttrs(context.Background(), slog.String("check", "synthetic-plan"))

	start := time.Now()
	if err := run(ctx, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "smoke test failed", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌",
		slog.Duration("duration", time.Since(start)))
}
