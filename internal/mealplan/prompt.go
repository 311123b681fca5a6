package mealplan

import (
	"fmt"
	"strings"

	"github.com/yuv-man/habeat-server/internal/nutrition"
)

// Per-meal calorie shares of the daily target.
const (
	breakfastShare = 0.25
	lunchShare     = 0.35
	dinnerShare    = 0.30
	snackShare     = 0.10
)

// cuisineRotation and proteinRotation give deterministic day-to-day variety
// without relying on the model. Indexed by day offset within the window.
var cuisineRotation = []string{
	"Mediterranean",
	"Mexican",
	"Italian",
	"Japanese",
	"Indian",
	"Middle Eastern",
	"Thai",
}

var proteinRotation = []string{
	"chicken breast",
	"salmon",
	"lean beef",
	"tofu",
	"eggs",
	"white fish",
	"legumes",
}

// PromptInputs are the fixed per-run inputs every prompt embeds.
type PromptInputs struct {
	Profile  nutrition.Profile
	Targets  nutrition.Targets
	Language string
	// StyleOverride replaces the goal-derived framing with a fixed plan
	// style description when non-empty.
	StyleOverride string
}

// BuildDayPrompt composes the compact single-day prompt used by the parallel
// generation path. Pure: same inputs, same prompt.
func BuildDayPrompt(in PromptInputs, day ScheduledDay, dayOffset int) string {
	var b strings.Builder

	b.WriteString("You are a professional nutritionist. Create a one-day meal plan in JSON.\n\n")
	writeTargets(&b, in.Targets)
	writeConstraints(&b, in.Profile)
	writeStyle(&b, in)

	fmt.Fprintf(&b, "DAY:\n- %s (%s)\n", day.Date.Weekday(), DateKey(day.Date))
	fmt.Fprintf(&b, "- Cuisine inspiration: %s\n", cuisineRotation[dayOffset%len(cuisineRotation)])
	fmt.Fprintf(&b, "- Primary protein: %s\n", proteinRotation[dayOffset%len(proteinRotation)])
	if day.Workout {
		b.WriteString("- This is a WORKOUT day: include one workout entry and slightly higher carbs.\n")
	} else {
		b.WriteString("- This is a REST day: no workout entries.\n")
	}
	b.WriteString("\n")

	writeDaySchema(&b)
	writeLanguage(&b, in.Language)
	return b.String()
}

// BuildWeekPrompt composes the full multi-day prompt used by the
// non-parallel fallback path.
func BuildWeekPrompt(in PromptInputs, window ScheduleWindow) string {
	var b strings.Builder

	b.WriteString("You are a professional nutritionist. Create a multi-day meal plan in JSON.\n\n")
	writeTargets(&b, in.Targets)
	writeConstraints(&b, in.Profile)
	writeStyle(&b, in)

	b.WriteString("DAYS:\n")
	for i, day := range window.Days {
		kind := "rest day"
		if day.Workout {
			kind = "workout day, include one workout entry"
		}
		fmt.Fprintf(&b, "- %s (%s): %s; cuisine %s, primary protein %s\n",
			day.Date.Weekday(), DateKey(day.Date), kind,
			cuisineRotation[i%len(cuisineRotation)],
			proteinRotation[i%len(proteinRotation)])
	}
	b.WriteString("\n")

	b.WriteString("OUTPUT FORMAT:\nRespond with a single JSON object:\n")
	b.WriteString("{\"days\": [<one day object per listed day, in order>]}\n")
	b.WriteString("Each day object follows this schema exactly:\n")
	writeDaySchema(&b)
	writeLanguage(&b, in.Language)
	return b.String()
}

func writeTargets(b *strings.Builder, targets nutrition.Targets) {
	fmt.Fprintf(b, "DAILY TARGETS:\n- Calories: %d kcal\n- Protein: %d g\n- Carbs: %d g\n- Fat: %d g\n",
		targets.Calories, targets.Macros.ProteinG, targets.Macros.CarbsG, targets.Macros.FatG)
	fmt.Fprintf(b, "- Per-meal calories: breakfast %d, lunch %d, dinner %d, snack %d\n\n",
		mealShare(targets.Calories, breakfastShare),
		mealShare(targets.Calories, lunchShare),
		mealShare(targets.Calories, dinnerShare),
		mealShare(targets.Calories, snackShare))
}

func mealShare(calories int, share float64) int {
	return int(float64(calories) * share)
}

func writeConstraints(b *strings.Builder, profile nutrition.Profile) {
	b.WriteString("DIETARY CONSTRAINTS:\n")
	writeList(b, "Allergies (NEVER include)", profile.Allergies)
	writeList(b, "Restrictions", profile.Restrictions)
	writeList(b, "Preferences", profile.Preferences)
	writeList(b, "Dislikes (avoid)", profile.Dislikes)
	b.WriteString("\n")
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(items, ", "))
}

func writeStyle(b *strings.Builder, in PromptInputs) {
	if in.StyleOverride != "" {
		fmt.Fprintf(b, "PLAN STYLE:\n- %s\n\n", in.StyleOverride)
		return
	}
	fmt.Fprintf(b, "PLAN STYLE:\n- Dietary path: %s\n\n", in.Profile.Path)
}

func writeDaySchema(b *strings.Builder) {
	b.WriteString(`OUTPUT RULES:
- Respond with JSON only. No prose, no markdown outside a single code block.
- Day object schema:
{
  "day": "<weekday name>",
  "date": "<YYYY-MM-DD>",
  "meals": {
    "breakfast": <meal>, "lunch": <meal>, "dinner": <meal>,
    "snacks": [<meal>]
  },
  "workouts": [{"name": "...", "category": "...", "durationMinutes": 0, "caloriesBurned": 0}],
  "waterIntake": <glasses or milliliters>
}
- Meal schema: {"name": "...", "calories": 0, "protein": 0, "carbs": 0, "fat": 0,
  "prepTimeMinutes": 0, "ingredients": [{"name": "...", "amount": "...", "category": "..."}]}
- Ingredient names: lowercase, singular, plain form (e.g. "rolled oats", "chicken breast").
- Meal categories are exactly: breakfast, lunch, dinner, snack.
- Calories must equal protein*4 + carbs*4 + fat*9 within 10 kcal.
`)
}

func writeLanguage(b *strings.Builder, language string) {
	if language == "" || strings.EqualFold(language, "en") {
		return
	}
	fmt.Fprintf(b, "\nWrite all names and free-text fields in language code %q. Keep JSON keys in English.\n", language)
}
