package mealplan

import (
	"context"
	"math/rand/v2"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yuv-man/habeat-server/internal/errors"
	"github.com/yuv-man/habeat-server/internal/testhelpers"
)

type fakeFavorites struct {
	meals []Meal
	err   error
}

func (f *fakeFavorites) Favorites(context.Context) ([]Meal, error) {
	return f.meals, f.err
}

func fullWeekPlan(t *testing.T) WeeklyPlan {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	asm := newAssembler(NewScheduleWindow(date(2025, time.June, 2), 0), logger)

	names := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	var candidates []rawDay
	for _, name := range names {
		candidates = append(candidates, testDay(name))
	}
	plan, err := asm.Assemble(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	return plan
}

func TestEnrichSubstitutesAtMostAQuarterOfMainSlots(t *testing.T) {
	plan := fullWeekPlan(t)
	favorites := &fakeFavorites{meals: []Meal{
		{Name: "Favorite Pancakes", Category: CategoryBreakfast, Calories: 420},
		{Name: "Favorite Burrito", Category: CategoryLunch, Calories: 580},
		{Name: "Favorite Curry", Category: CategoryDinner, Calories: 540},
		{Name: "Favorite Candy", Category: CategorySnack, Calories: 150},
	}}
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	rng := rand.New(rand.NewPCG(1, 2))

	newEnricher(favorites, rng, logger).Enrich(context.Background(), plan)

	// 21 main slots, budget is ceil(21 * 0.25) = 6.
	substituted := 0
	for key, day := range plan {
		for _, meal := range []Meal{day.Breakfast, day.Lunch, day.Dinner} {
			switch meal.Name {
			case "Favorite Pancakes", "Favorite Burrito", "Favorite Curry":
				substituted++
				if absInt(meal.Calories-originalCalories(meal.Category)) > favoriteCalorieWindow {
					t.Errorf("day %s: favorite %q outside the calorie window", key, meal.Name)
				}
			case "Favorite Candy":
				t.Errorf("day %s: snack favorite placed in a main slot", key)
			}
		}
		for _, snack := range day.Snacks {
			if snack.Name != "Yogurt" {
				t.Errorf("day %s: snack %q modified, enrichment must not touch snacks", key, snack.Name)
			}
		}
		wantCal, _, _, _ := sumAggregates(day)
		if day.TotalCalories != wantCal {
			t.Errorf("day %s aggregates stale after enrichment", key)
		}
	}
	if substituted == 0 || substituted > 6 {
		t.Errorf("substituted %d main meals, want between 1 and 6", substituted)
	}
}

func originalCalories(category MealCategory) int {
	switch category {
	case CategoryLunch:
		return 600
	case CategoryDinner:
		return 550
	default:
		return 400
	}
}

func TestEnrichSkipsSlotsWithoutCalorieCompatibleFavorite(t *testing.T) {
	plan := fullWeekPlan(t)
	// Lunches are 600 kcal; an 1800 kcal favorite is never compatible.
	favorites := &fakeFavorites{meals: []Meal{
		{Name: "Favorite Feast", Category: CategoryLunch, Calories: 1800},
	}}
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	rng := rand.New(rand.NewPCG(1, 2))

	newEnricher(favorites, rng, logger).Enrich(context.Background(), plan)

	for key, day := range plan {
		if day.Lunch.Name != "Chicken Bowl" {
			t.Errorf("day %s: lunch %q substituted despite calorie mismatch", key, day.Lunch.Name)
		}
	}
}

func TestEnrichToleratesFavoriteSourceFailure(t *testing.T) {
	plan := fullWeekPlan(t)
	favorites := &fakeFavorites{err: errors.New("favorites unavailable")}
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	rng := rand.New(rand.NewPCG(1, 2))

	// Must not panic or alter the plan.
	newEnricher(favorites, rng, logger).Enrich(context.Background(), plan)

	for key, day := range plan {
		if day.Breakfast.Name != "Oatmeal" {
			t.Errorf("day %s: plan modified after favorites failure", key)
		}
	}
}

func TestEnrichIsDeterministicWithSeededRand(t *testing.T) {
	favoriteNames := map[string]bool{
		"Favorite Pancakes": true,
		"Favorite Burrito":  true,
		"Favorite Curry":    true,
	}
	favorites := &fakeFavorites{meals: []Meal{
		{Name: "Favorite Pancakes", Category: CategoryBreakfast, Calories: 420},
		{Name: "Favorite Burrito", Category: CategoryLunch, Calories: 580},
		{Name: "Favorite Curry", Category: CategoryDinner, Calories: 540},
	}}
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))

	run := func() []string {
		plan := fullWeekPlan(t)
		rng := rand.New(rand.NewPCG(7, 7))
		newEnricher(favorites, rng, logger).Enrich(context.Background(), plan)

		keys := planKeys(plan)
		sort.Strings(keys)
		var substituted []string
		for _, key := range keys {
			day := plan[key]
			for _, meal := range []Meal{day.Breakfast, day.Lunch, day.Dinner} {
				if favoriteNames[meal.Name] {
					substituted = append(substituted, key+"/"+string(meal.Category))
				}
			}
		}
		return substituted
	}

	first := run()
	second := run()
	// Every category has a compatible favorite, so the seeded run fills its
	// whole budget: ceil(21 * 0.25) = 6 slots.
	if len(first) != 6 {
		t.Fatalf("substituted %d slots, want 6", len(first))
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("seeded runs diverged (-first +second):\n%s", diff)
	}
}
