package mealplan

import (
	"github.com/yuv-man/habeat-server/internal/nutrition"
)

// syntheticMenu is the canned rotation used for demo and test runs. Macros
// are intentionally consistent so corrected plans come out unchanged.
var syntheticMenu = []struct {
	breakfast, lunch, dinner, snack string
}{
	{"Greek Yogurt with Berries", "Grilled Chicken Salad", "Baked Salmon with Quinoa", "Apple with Almond Butter"},
	{"Veggie Omelette with Toast", "Turkey Wrap", "Beef Stir-Fry with Rice", "Cottage Cheese Bowl"},
	{"Overnight Oats with Banana", "Lentil Soup with Bread", "Chicken Fajita Bowl", "Trail Mix"},
	{"Scrambled Tofu with Spinach", "Tuna Pasta Salad", "Pork Tenderloin with Sweet Potato", "Greek Yogurt"},
	{"Protein Pancakes", "Chicken Caesar Wrap", "Shrimp Curry with Rice", "Hummus with Carrots"},
	{"Avocado Toast with Eggs", "Quinoa Buddha Bowl", "Turkey Meatballs with Pasta", "Protein Shake"},
	{"Smoothie Bowl", "Salmon Poke Bowl", "Lemon Herb Chicken with Vegetables", "Mixed Nuts"},
}

// syntheticDays produces deterministic raw candidates for the window, shaped
// like real model output so they flow through the normal assembly pipeline.
func syntheticDays(window ScheduleWindow, targets nutrition.Targets) []rawDay {
	days := make([]rawDay, 0, len(window.Days))
	for i, scheduled := range window.Days {
		menu := syntheticMenu[i%len(syntheticMenu)]
		day := rawDay{
			Day:  scheduled.Date.Weekday().String(),
			Date: DateKey(scheduled.Date),
			Meals: &rawMeals{
				Breakfast: syntheticMeal(menu.breakfast, targets, breakfastShare),
				Lunch:     syntheticMeal(menu.lunch, targets, lunchShare),
				Dinner:    syntheticMeal(menu.dinner, targets, dinnerShare),
				Snacks:    []rawMeal{*syntheticMeal(menu.snack, targets, snackShare)},
			},
			WaterIntake: defaultBaseHydration,
		}
		if scheduled.Workout {
			template := defaultWorkoutTemplates[i%len(defaultWorkoutTemplates)]
			day.Workouts = []rawWorkout{{
				Name:            template.Name,
				Category:        template.Category,
				DurationMinutes: flexibleNumber(template.DurationMinutes),
				CaloriesBurned:  flexibleNumber(template.CaloriesBurned),
			}}
		}
		days = append(days, day)
	}
	return days
}

// syntheticMeal scales the meal's macros from the daily targets by the slot's
// calorie share, then states calories from the 4/4/9 sum so the corrector
// has nothing to fix.
func syntheticMeal(name string, targets nutrition.Targets, share float64) *rawMeal {
	protein := int(float64(targets.Macros.ProteinG) * share)
	carbs := int(float64(targets.Macros.CarbsG) * share)
	fat := int(float64(targets.Macros.FatG) * share)
	return &rawMeal{
		Name:            name,
		Calories:        flexibleNumber(macroCalories(protein, carbs, fat)),
		ProteinG:        flexibleNumber(protein),
		CarbsG:          flexibleNumber(carbs),
		FatG:            flexibleNumber(fat),
		PrepTimeMinutes: 15,
		Ingredients: []rawIngredient{
			{Name: name, Amount: "1 serving", Category: "mixed"},
		},
	}
}
