// Package mealplan generates seven-day nutrition and workout plans by
// orchestrating LLM backends and reconciling their output into a canonical,
// invariant-respecting weekly structure.
package mealplan

import (
	"encoding/json"
	"time"
)

// DateKeyLayout is the canonical local calendar-date key for WeeklyPlan.
const DateKeyLayout = "2006-01-02"

// MealCategory classifies a meal slot.
type MealCategory string

// Meal category constants.
const (
	CategoryBreakfast MealCategory = "breakfast"
	CategoryLunch     MealCategory = "lunch"
	CategoryDinner    MealCategory = "dinner"
	CategorySnack     MealCategory = "snack"
)

// Ingredient is one (name, amount, shopping category) triple.
type Ingredient struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Category string `json:"category,omitempty"`
}

// Meal is a single planned meal.
type Meal struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Category        MealCategory `json:"category"`
	Calories        int          `json:"calories"`
	ProteinG        int          `json:"protein"`
	CarbsG          int          `json:"carbs"`
	FatG            int          `json:"fat"`
	Ingredients     []Ingredient `json:"ingredients,omitempty"`
	PrepTimeMinutes int          `json:"prepTimeMinutes"`
	Done            bool         `json:"done"`
}

// Workout is a single planned workout.
type Workout struct {
	Name            string `json:"name"`
	Category        string `json:"category"`
	DurationMinutes int    `json:"durationMinutes"`
	CaloriesBurned  int    `json:"caloriesBurned"`
	TimeOfDay       string `json:"timeOfDay,omitempty"`
	Done            bool   `json:"done"`
}

// DayPlan is one day of the weekly plan. Aggregates are recomputed by the
// assembler, never trusted from the model.
type DayPlan struct {
	DayName       string    `json:"day"`
	Date          time.Time `json:"date"`
	Breakfast     Meal      `json:"breakfast"`
	Lunch         Meal      `json:"lunch"`
	Dinner        Meal      `json:"dinner"`
	Snacks        []Meal    `json:"snacks"`
	Workouts      []Workout `json:"workouts"`
	WaterGlasses  int       `json:"waterGlasses"`
	TotalCalories int       `json:"totalCalories"`
	TotalProteinG int       `json:"totalProtein"`
	TotalCarbsG   int       `json:"totalCarbs"`
	TotalFatG     int       `json:"totalFat"`
}

// WeeklyPlan maps canonical date keys (YYYY-MM-DD) to day plans. At most 7
// entries, all inside the Monday-Sunday window containing the run's start
// date.
type WeeklyPlan map[string]DayPlan

// Metadata describes how a plan was produced. Observability only, never used
// for correctness branching downstream.
type Metadata struct {
	PlanType    string    `json:"planType"`
	Language    string    `json:"language"`
	GeneratedAt time.Time `json:"generatedAt"`
	// Provider names the path that produced the plan: "cloud", "local" or
	// "synthetic".
	Provider string `json:"provider"`
}

// Plan is the finished weekly plan plus run metadata.
type Plan struct {
	Days WeeklyPlan `json:"days"`
	Meta Metadata   `json:"meta"`
}

// DateKey formats a date as the canonical WeeklyPlan key.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// rawDay is the tagged intermediate shape decoded from repaired model
// output. It is explicitly validated before promotion to a DayPlan; an
// invalid candidate is a distinct outcome, not an exception path.
type rawDay struct {
	Day      string       `json:"day"`
	Date     string       `json:"date"`
	Meals    *rawMeals    `json:"meals"`
	Workouts []rawWorkout `json:"workouts"`
	// WaterIntake is whatever hydration figure the model reported. Units
	// are auto-detected during assembly (milliliters vs glasses).
	WaterIntake float64 `json:"waterIntake"`
}

type rawMeals struct {
	Breakfast *rawMeal  `json:"breakfast"`
	Lunch     *rawMeal  `json:"lunch"`
	Dinner    *rawMeal  `json:"dinner"`
	Snacks    []rawMeal `json:"snacks"`
}

// rawMeal tolerates the numeric sloppiness models produce: calories and
// macros may arrive as floats or strings.
type rawMeal struct {
	Name            string          `json:"name"`
	Calories        flexibleNumber  `json:"calories"`
	ProteinG        flexibleNumber  `json:"protein"`
	CarbsG          flexibleNumber  `json:"carbs"`
	FatG            flexibleNumber  `json:"fat"`
	Ingredients     []rawIngredient `json:"ingredients"`
	PrepTimeMinutes flexibleNumber  `json:"prepTimeMinutes"`
}

type rawIngredient struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
}

type rawWorkout struct {
	Name            string         `json:"name"`
	Category        string         `json:"category"`
	DurationMinutes flexibleNumber `json:"durationMinutes"`
	CaloriesBurned  flexibleNumber `json:"caloriesBurned"`
	TimeOfDay       string         `json:"timeOfDay"`
}

// flexibleNumber decodes JSON numbers, numeric strings, or null into an int.
type flexibleNumber int

func (n *flexibleNumber) UnmarshalJSON(data []byte) error {
	var asFloat float64
	if err := json.Unmarshal(data, &asFloat); err == nil {
		*n = flexibleNumber(asFloat)
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		var parsed float64
		if err := json.Unmarshal([]byte(asString), &parsed); err == nil {
			*n = flexibleNumber(parsed)
			return nil
		}
	}
	// Tolerate null and garbage: a missing number is zero, not a failed day.
	*n = 0
	return nil
}

// valid reports whether the candidate carries the minimum shape required for
// promotion: some date identification and a meals block.
func (d rawDay) valid() bool {
	return (d.Day != "" || d.Date != "") && d.Meals != nil
}
