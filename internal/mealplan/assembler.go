package mealplan

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yuv-man/habeat-server/internal/errors"
)

// ErrNoValidDays is returned when reconciliation drops every generated day.
var ErrNoValidDays = errors.NewSentinel("no valid plan produced")

// Assembly constants.
const (
	maxPlanDays = 7

	// Water intake model.
	maxWaterGlasses         = 12
	minBaseHydration        = 6
	maxBaseHydration        = 8
	defaultBaseHydration    = 7
	mlPerGlass              = 250
	caloriesPerBonusGlass   = 250
	minWorkoutBonusGlasses  = 1
	maxWorkoutBonusGlasses  = 2
	maxDailyWorkoutBonus    = 4
	mlDetectionThreshold    = 100

	placeholderMealName = "No meal planned"
)

// defaultWorkoutTemplates is the fixed rotation used when the model produced
// no workouts for designated workout days.
var defaultWorkoutTemplates = []Workout{
	{Name: "Full Body Strength", Category: "strength", DurationMinutes: 45, CaloriesBurned: 300},
	{Name: "Interval Run", Category: "cardio", DurationMinutes: 30, CaloriesBurned: 350},
	{Name: "Core & Mobility", Category: "mobility", DurationMinutes: 30, CaloriesBurned: 180},
	{Name: "Upper Body Strength", Category: "strength", DurationMinutes: 40, CaloriesBurned: 280},
	{Name: "Steady-State Cycling", Category: "cardio", DurationMinutes: 45, CaloriesBurned: 400},
}

// assembler reconciles raw generated days against the schedule window.
type assembler struct {
	window ScheduleWindow
	logger *slog.Logger
}

func newAssembler(window ScheduleWindow, logger *slog.Logger) *assembler {
	return &assembler{window: window, logger: logger}
}

// Assemble turns an unordered collection of raw day candidates into a
// date-keyed, duplicate-free weekly plan honoring the window invariants.
func (a *assembler) Assemble(ctx context.Context, candidates []rawDay) (WeeklyPlan, error) {
	if len(candidates) > maxPlanDays {
		a.logger.WarnContext(ctx, "model produced more than a week of days, keeping the first seven",
			slog.Int("count", len(candidates)))
		candidates = candidates[:maxPlanDays]
	}

	workoutsByDate := a.redistributeWorkouts(candidates)

	plan := make(WeeklyPlan)
	for _, candidate := range candidates {
		if !candidate.valid() {
			a.logger.WarnContext(ctx, "dropping malformed day candidate",
				slog.String("day_name", candidate.Day))
			continue
		}
		date, ok := a.resolveDate(ctx, candidate)
		if !ok {
			continue
		}
		key := DateKey(date)
		if _, exists := plan[key]; exists {
			a.logger.WarnContext(ctx, "dropping day with duplicate date",
				slog.String("date", key), slog.String("day_name", candidate.Day))
			continue
		}
		plan[key] = a.promoteDay(candidate, date, workoutsByDate[key])
	}

	if len(plan) == 0 {
		return nil, errors.Wrap(ErrNoValidDays, "assemble plan",
			slog.Int("candidates", len(candidates)))
	}
	return plan, nil
}

// redistributeWorkouts pools every workout mentioned across all days and
// spreads the pool evenly across the designated workout dates. An empty pool
// synthesizes one default workout per workout date from the template
// rotation.
func (a *assembler) redistributeWorkouts(candidates []rawDay) map[string][]Workout {
	workoutDates := a.window.WorkoutDates()
	byDate := make(map[string][]Workout, len(workoutDates))
	if len(workoutDates) == 0 {
		return byDate
	}

	var pool []Workout
	for _, candidate := range candidates {
		for _, raw := range candidate.Workouts {
			if raw.Name == "" {
				continue
			}
			pool = append(pool, Workout{
				Name:            raw.Name,
				Category:        raw.Category,
				DurationMinutes: int(raw.DurationMinutes),
				CaloriesBurned:  int(raw.CaloriesBurned),
				TimeOfDay:       raw.TimeOfDay,
			})
		}
	}

	if len(pool) == 0 {
		for i, date := range workoutDates {
			template := defaultWorkoutTemplates[i%len(defaultWorkoutTemplates)]
			byDate[DateKey(date)] = []Workout{template}
		}
		return byDate
	}

	base := len(pool) / len(workoutDates)
	remainder := len(pool) % len(workoutDates)
	next := 0
	for i, date := range workoutDates {
		count := base
		if i < remainder {
			count++
		}
		if count == 0 {
			// Fewer workouts than workout days: every workout day still
			// needs at least one, reuse the template rotation.
			byDate[DateKey(date)] = []Workout{defaultWorkoutTemplates[i%len(defaultWorkoutTemplates)]}
			continue
		}
		byDate[DateKey(date)] = pool[next : next+count]
		next += count
	}
	return byDate
}

// resolveDate resolves the candidate's canonical date using, in priority
// order: positional weekday match against the window, the candidate's own
// in-window date field, arithmetic from the week start plus weekday offset,
// and finally today. Out-of-window results drop the candidate.
func (a *assembler) resolveDate(ctx context.Context, candidate rawDay) (time.Time, bool) {
	date, resolved := a.dateFromWeekdayName(candidate.Day)
	if !resolved {
		date, resolved = a.dateFromOwnField(candidate.Date)
	}
	if !resolved {
		date, resolved = a.dateFromWeekdayArithmetic(candidate.Day)
	}
	if !resolved {
		date = a.window.Days[0].Date
	}

	if !a.window.Contains(date) {
		a.logger.WarnContext(ctx, "dropping day resolved outside the weekly window",
			slog.String("day_name", candidate.Day),
			slog.String("resolved", DateKey(date)))
		return time.Time{}, false
	}
	return date, true
}

func (a *assembler) dateFromWeekdayName(dayName string) (time.Time, bool) {
	weekday, ok := parseWeekday(dayName)
	if !ok {
		return time.Time{}, false
	}
	return a.window.dateByWeekday(weekday)
}

func (a *assembler) dateFromOwnField(dateField string) (time.Time, bool) {
	if dateField == "" {
		return time.Time{}, false
	}
	parsed, err := time.ParseInLocation(DateKeyLayout, dateField, a.window.Days[0].Date.Location())
	if err != nil {
		return time.Time{}, false
	}
	if !a.window.Contains(parsed) {
		return time.Time{}, false
	}
	return normalizeDate(parsed), true
}

func (a *assembler) dateFromWeekdayArithmetic(dayName string) (time.Time, bool) {
	weekday, ok := parseWeekday(dayName)
	if !ok {
		return time.Time{}, false
	}
	offset := (int(weekday) + 6) % 7
	return a.window.WeekStart().AddDate(0, 0, offset), true
}

// parseWeekday matches an English weekday name, tolerating case and
// surrounding noise like "Day 3 - Wednesday".
func parseWeekday(name string) (time.Weekday, bool) {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if lowered == "" {
		return 0, false
	}
	for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
		if strings.Contains(lowered, strings.ToLower(weekday.String())) {
			return weekday, true
		}
	}
	return 0, false
}

// promoteDay converts a validated candidate into a typed DayPlan with
// recomputed aggregates. Workouts come from the redistribution step; days
// that are not workout days get none.
func (a *assembler) promoteDay(candidate rawDay, date time.Time, workouts []Workout) DayPlan {
	day := DayPlan{
		DayName:   date.Weekday().String(),
		Date:      date,
		Breakfast: promoteMeal(candidate.Meals.Breakfast, CategoryBreakfast),
		Lunch:     promoteMeal(candidate.Meals.Lunch, CategoryLunch),
		Dinner:    promoteMeal(candidate.Meals.Dinner, CategoryDinner),
		Snacks:    promoteSnacks(candidate.Meals.Snacks),
		Workouts:  workouts,
	}
	day.TotalCalories, day.TotalProteinG, day.TotalCarbsG, day.TotalFatG = sumAggregates(day)
	day.WaterGlasses = waterGlasses(candidate.WaterIntake, workouts)
	return day
}

// promoteMeal converts a raw meal, substituting an explicit placeholder for
// missing ones. Whole missing days are never backfilled, missing meals
// within a day are.
func promoteMeal(raw *rawMeal, category MealCategory) Meal {
	if raw == nil || raw.Name == "" {
		return placeholderMeal(category)
	}
	meal := Meal{
		ID:              uuid.New().String(),
		Name:            raw.Name,
		Category:        category,
		Calories:        maxOf(0, int(raw.Calories)),
		ProteinG:        maxOf(0, int(raw.ProteinG)),
		CarbsG:          maxOf(0, int(raw.CarbsG)),
		FatG:            maxOf(0, int(raw.FatG)),
		PrepTimeMinutes: maxOf(0, int(raw.PrepTimeMinutes)),
		Done:            false,
	}
	for _, ing := range raw.Ingredients {
		if ing.Name == "" {
			continue
		}
		meal.Ingredients = append(meal.Ingredients, Ingredient{
			Name:     ing.Name,
			Amount:   ing.Amount,
			Category: ing.Category,
		})
	}
	return meal
}

func promoteSnacks(raws []rawMeal) []Meal {
	var snacks []Meal
	for i := range raws {
		if raws[i].Name == "" {
			continue
		}
		snacks = append(snacks, promoteMeal(&raws[i], CategorySnack))
	}
	return snacks
}

// placeholderMeal is the explicit "nothing planned" meal: zero macros, not
// marked done.
func placeholderMeal(category MealCategory) Meal {
	return Meal{
		ID:       uuid.New().String(),
		Name:     placeholderMealName,
		Category: category,
	}
}

// sumAggregates sums calories and macros across all meals of the day.
func sumAggregates(day DayPlan) (calories, protein, carbs, fat int) {
	meals := append([]Meal{day.Breakfast, day.Lunch, day.Dinner}, day.Snacks...)
	for _, meal := range meals {
		calories += meal.Calories
		protein += meal.ProteinG
		carbs += meal.CarbsG
		fat += meal.FatG
	}
	return calories, protein, carbs, fat
}

// waterGlasses derives the day's water target in 250 ml glasses. The
// model's reported figure may be milliliters, glasses, or an ambiguous small
// integer; the base is clamped to 6-8 glasses either way. Each workout adds
// ceil(caloriesBurned/250) glasses clamped to 1-2, with the total bonus
// capped at 4.
func waterGlasses(reported float64, workouts []Workout) int {
	base := defaultBaseHydration
	switch {
	case reported <= 0:
		// Keep the default.
	case reported >= mlDetectionThreshold:
		base = int(math.Round(reported / mlPerGlass))
	default:
		base = int(math.Round(reported))
	}
	base = clamp(base, minBaseHydration, maxBaseHydration)

	bonus := 0
	for _, workout := range workouts {
		perWorkout := int(math.Ceil(float64(workout.CaloriesBurned) / caloriesPerBonusGlass))
		bonus += clamp(perWorkout, minWorkoutBonusGlasses, maxWorkoutBonusGlasses)
	}
	if bonus > maxDailyWorkoutBonus {
		bonus = maxDailyWorkoutBonus
	}

	total := base + bonus
	if total > maxWaterGlasses {
		total = maxWaterGlasses
	}
	return total
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}
