package mealplan

import (
	"context"
	"log/slog"
	"math"

	"github.com/yuv-man/habeat-server/internal/nutrition"
)

// Macro correction constants. Calorie contribution follows the 4/4/9
// kcal-per-gram rule.
const (
	calorieTolerance = 10

	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9

	// Relative deviation from an explicit macro target beyond which the
	// macro is pulled back toward the target.
	targetDeviationThreshold = 0.15
	targetBlendWeight        = 0.70
)

// MacroTarget is an optional per-meal target used during correction. Zero
// fields are treated as unset.
type MacroTarget struct {
	Calories int
	ProteinG int
	CarbsG   int
	FatG     int
}

// MealTargets derives per-category meal targets from daily targets using the
// same calorie shares the prompt advertises to the model.
func MealTargets(daily nutrition.Targets) map[MealCategory]MacroTarget {
	return map[MealCategory]MacroTarget{
		CategoryBreakfast: scaleTarget(daily, breakfastShare),
		CategoryLunch:     scaleTarget(daily, lunchShare),
		CategoryDinner:    scaleTarget(daily, dinnerShare),
	}
}

func scaleTarget(daily nutrition.Targets, share float64) MacroTarget {
	return MacroTarget{
		Calories: int(math.Round(float64(daily.Calories) * share)),
		ProteinG: int(math.Round(float64(daily.Macros.ProteinG) * share)),
		CarbsG:   int(math.Round(float64(daily.Macros.CarbsG) * share)),
		FatG:     int(math.Round(float64(daily.Macros.FatG) * share)),
	}
}

// macroCorrector reconciles each meal's stated calories with its macro
// breakdown across a whole plan.
type macroCorrector struct {
	logger *slog.Logger
}

// Correct applies macro correction to every meal in the plan and recomputes
// day aggregates. Per-category targets are optional; snacks never carry one.
func (c *macroCorrector) Correct(ctx context.Context, plan WeeklyPlan, targets map[MealCategory]MacroTarget) {
	corrected := 0
	for key, day := range plan {
		day.Breakfast = correctMeal(day.Breakfast, lookupTarget(targets, CategoryBreakfast), &corrected)
		day.Lunch = correctMeal(day.Lunch, lookupTarget(targets, CategoryLunch), &corrected)
		day.Dinner = correctMeal(day.Dinner, lookupTarget(targets, CategoryDinner), &corrected)
		for i := range day.Snacks {
			day.Snacks[i] = correctMeal(day.Snacks[i], nil, &corrected)
		}
		day.TotalCalories, day.TotalProteinG, day.TotalCarbsG, day.TotalFatG = sumAggregates(day)
		plan[key] = day
	}
	if corrected > 0 {
		c.logger.InfoContext(ctx, "reconciled inconsistent meal macros",
			slog.Int("meals", corrected))
	}
}

func lookupTarget(targets map[MealCategory]MacroTarget, category MealCategory) *MacroTarget {
	target, ok := targets[category]
	if !ok {
		return nil
	}
	return &target
}

// correctMeal reconciles one meal. If stated calories disagree with the 4/4/9
// sum by more than the tolerance, macros are rescaled preserving their ratio
// to the reconciled calorie figure (target if set, else stated, else
// computed). If an explicit target is set and any macro deviates more than
// 15% relative, the macro is blended 70% toward the target and calories are
// recomputed from the blend. Placeholder meals stay untouched.
func correctMeal(meal Meal, target *MacroTarget, corrected *int) Meal {
	if meal.Name == placeholderMealName {
		return meal
	}

	computed := macroCalories(meal.ProteinG, meal.CarbsG, meal.FatG)
	reconciled := computed
	switch {
	case target != nil && target.Calories > 0:
		reconciled = target.Calories
	case meal.Calories > 0:
		reconciled = meal.Calories
	}

	if absInt(meal.Calories-computed) > calorieTolerance {
		meal = rescaleToCalories(meal, reconciled, computed)
		*corrected++
	}

	if target != nil && deviatesFromTarget(meal, *target) {
		meal.ProteinG = blendMacro(target.ProteinG, meal.ProteinG)
		meal.CarbsG = blendMacro(target.CarbsG, meal.CarbsG)
		meal.FatG = blendMacro(target.FatG, meal.FatG)
		meal.Calories = macroCalories(meal.ProteinG, meal.CarbsG, meal.FatG)
		*corrected++
	}

	meal.Calories = maxOf(0, meal.Calories)
	meal.ProteinG = maxOf(0, meal.ProteinG)
	meal.CarbsG = maxOf(0, meal.CarbsG)
	meal.FatG = maxOf(0, meal.FatG)
	return meal
}

// rescaleToCalories scales the meal's macros by a single factor so their
// calorie sum matches the reconciled figure. A meal with no macros at all is
// given a neutral 30/40/30 split instead, since there is no ratio to keep.
func rescaleToCalories(meal Meal, reconciled, computed int) Meal {
	if computed > 0 {
		scale := float64(reconciled) / float64(computed)
		meal.ProteinG = int(math.Round(float64(meal.ProteinG) * scale))
		meal.CarbsG = int(math.Round(float64(meal.CarbsG) * scale))
		meal.FatG = int(math.Round(float64(meal.FatG) * scale))
	} else {
		meal.ProteinG = int(math.Round(float64(reconciled) * 0.30 / kcalPerGramProtein))
		meal.CarbsG = int(math.Round(float64(reconciled) * 0.40 / kcalPerGramCarbs))
		meal.FatG = int(math.Round(float64(reconciled) * 0.30 / kcalPerGramFat))
	}
	meal.Calories = reconciled
	return meal
}

func deviatesFromTarget(meal Meal, target MacroTarget) bool {
	return relativeDeviation(meal.ProteinG, target.ProteinG) > targetDeviationThreshold ||
		relativeDeviation(meal.CarbsG, target.CarbsG) > targetDeviationThreshold ||
		relativeDeviation(meal.FatG, target.FatG) > targetDeviationThreshold
}

func relativeDeviation(current, target int) float64 {
	if target <= 0 {
		return 0
	}
	return math.Abs(float64(current-target)) / float64(target)
}

func blendMacro(target, current int) int {
	blended := targetBlendWeight*float64(target) + (1-targetBlendWeight)*float64(current)
	return maxOf(0, int(math.Round(blended)))
}

func macroCalories(protein, carbs, fat int) int {
	return protein*kcalPerGramProtein + carbs*kcalPerGramCarbs + fat*kcalPerGramFat
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
