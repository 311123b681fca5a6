package mealplan

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"
)

// Enrichment constants.
const (
	// Share of main-meal slots considered for favorite substitution.
	enrichmentShare = 0.25
	// A favorite only substitutes a meal whose calories are this close.
	favoriteCalorieWindow = 150
)

// FavoriteSource supplies meals the user has previously favorited.
type FavoriteSource interface {
	Favorites(ctx context.Context) ([]Meal, error)
}

// enricher swaps a random subset of main meals for calorie-compatible
// favorites. Best effort throughout, it never fails the run.
type enricher struct {
	favorites FavoriteSource
	rng       *rand.Rand
	logger    *slog.Logger
}

func newEnricher(favorites FavoriteSource, rng *rand.Rand, logger *slog.Logger) *enricher {
	return &enricher{favorites: favorites, rng: rng, logger: logger}
}

// mealSlot addresses one main meal inside the plan.
type mealSlot struct {
	dateKey  string
	category MealCategory
}

// Enrich substitutes favorites into at most ceil(25%) of the main meal
// slots. Snacks are never touched. A slot with no same-category favorite
// within the calorie window is skipped silently.
func (e *enricher) Enrich(ctx context.Context, plan WeeklyPlan) {
	if e.favorites == nil {
		return
	}
	favorites, err := e.favorites.Favorites(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "skipping favorite enrichment", slog.Any("error", err))
		return
	}
	if len(favorites) == 0 {
		return
	}

	byCategory := make(map[MealCategory][]Meal)
	for _, favorite := range favorites {
		byCategory[favorite.Category] = append(byCategory[favorite.Category], favorite)
	}

	slots := eligibleSlots(plan)
	e.rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })
	budget := int(math.Ceil(float64(len(slots)) * enrichmentShare))

	substituted := 0
	for _, slot := range slots[:budget] {
		day := plan[slot.dateKey]
		current := mainMeal(day, slot.category)
		replacement, ok := e.pickFavorite(byCategory[slot.category], current.Calories)
		if !ok {
			continue
		}
		setMainMeal(&day, slot.category, replacement)
		day.TotalCalories, day.TotalProteinG, day.TotalCarbsG, day.TotalFatG = sumAggregates(day)
		plan[slot.dateKey] = day
		substituted++
	}

	if substituted > 0 {
		e.logger.InfoContext(ctx, "substituted favorite meals",
			slog.Int("meals", substituted))
	}
}

// eligibleSlots lists every non-placeholder main meal slot in a stable order
// so shuffling is the only source of nondeterminism.
func eligibleSlots(plan WeeklyPlan) []mealSlot {
	keys := make([]string, 0, len(plan))
	for key := range plan {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var slots []mealSlot
	for _, key := range keys {
		day := plan[key]
		for _, category := range []MealCategory{CategoryBreakfast, CategoryLunch, CategoryDinner} {
			if mainMeal(day, category).Name == placeholderMealName {
				continue
			}
			slots = append(slots, mealSlot{dateKey: key, category: category})
		}
	}
	return slots
}

// pickFavorite selects a random favorite within the calorie window of the
// current meal.
func (e *enricher) pickFavorite(candidates []Meal, currentCalories int) (Meal, bool) {
	var matching []Meal
	for _, candidate := range candidates {
		if absInt(candidate.Calories-currentCalories) <= favoriteCalorieWindow {
			matching = append(matching, candidate)
		}
	}
	if len(matching) == 0 {
		return Meal{}, false
	}
	chosen := matching[e.rng.IntN(len(matching))]
	// The substituted meal is a fresh plan entry, not a reference to the
	// stored favorite.
	chosen.ID = uuid.New().String()
	chosen.Done = false
	return chosen, true
}

func mainMeal(day DayPlan, category MealCategory) Meal {
	switch category {
	case CategoryLunch:
		return day.Lunch
	case CategoryDinner:
		return day.Dinner
	default:
		return day.Breakfast
	}
}

func setMainMeal(day *DayPlan, category MealCategory, meal Meal) {
	meal.Category = category
	switch category {
	case CategoryLunch:
		day.Lunch = meal
	case CategoryDinner:
		day.Dinner = meal
	default:
		day.Breakfast = meal
	}
}
