package mealplan

import (
	"context"
	"testing"
	"time"

	"github.com/yuv-man/habeat-server/internal/errors"
	"github.com/yuv-man/habeat-server/internal/testhelpers"
)

func testMeal(name string, calories, protein, carbs, fat int) *rawMeal {
	return &rawMeal{
		Name:     name,
		Calories: flexibleNumber(calories),
		ProteinG: flexibleNumber(protein),
		CarbsG:   flexibleNumber(carbs),
		FatG:     flexibleNumber(fat),
	}
}

func testDay(dayName string, workouts ...rawWorkout) rawDay {
	return rawDay{
		Day: dayName,
		Meals: &rawMeals{
			Breakfast: testMeal("Oatmeal", 400, 20, 50, 12),
			Lunch:     testMeal("Chicken Bowl", 600, 45, 60, 18),
			Dinner:    testMeal("Salmon Plate", 550, 40, 35, 25),
			Snacks:    []rawMeal{*testMeal("Yogurt", 150, 12, 15, 4)},
		},
		Workouts:    workouts,
		WaterIntake: 8,
	}
}

func newTestAssembler(t *testing.T, today time.Time, frequency int) (*assembler, ScheduleWindow) {
	t.Helper()
	window := NewScheduleWindow(today, frequency)
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	return newAssembler(window, logger), window
}

func TestAssembleResolvesWeekdayNamesToWindowDates(t *testing.T) {
	// Monday 2025-06-02, full week, 2 workout days (Monday and Thursday).
	asm, window := newTestAssembler(t, date(2025, time.June, 2), 2)

	plan, err := asm.Assemble(context.Background(), []rawDay{
		testDay("Monday"),
		testDay("Wednesday"),
		testDay("Day 5 - Friday"),
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	for _, key := range []string{"2025-06-02", "2025-06-04", "2025-06-06"} {
		if _, ok := plan[key]; !ok {
			t.Errorf("plan missing expected date %s", key)
		}
	}
	if len(plan) != 3 {
		t.Errorf("len(plan) = %d, want 3", len(plan))
	}
	for key, day := range plan {
		parsed, err := time.ParseInLocation(DateKeyLayout, key, time.UTC)
		if err != nil {
			t.Fatalf("invalid date key %q: %v", key, err)
		}
		if !window.Contains(parsed) {
			t.Errorf("date %s outside the weekly window", key)
		}
		if day.DayName != parsed.Weekday().String() {
			t.Errorf("day %s named %q, want %q", key, day.DayName, parsed.Weekday())
		}
	}
}

func TestAssembleFallsBackToOwnDateField(t *testing.T) {
	asm, _ := newTestAssembler(t, date(2025, time.June, 2), 0)

	candidate := testDay("")
	candidate.Date = "2025-06-05"

	plan, err := asm.Assemble(context.Background(), []rawDay{candidate})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if _, ok := plan["2025-06-05"]; !ok {
		t.Errorf("plan keys = %v, want 2025-06-05 from the day's own date field", planKeys(plan))
	}
}

func TestAssembleDropsDuplicatesAndOutOfWindowDays(t *testing.T) {
	asm, _ := newTestAssembler(t, date(2025, time.June, 2), 0)

	outOfWindow := testDay("")
	outOfWindow.Date = "2025-07-20"

	plan, err := asm.Assemble(context.Background(), []rawDay{
		testDay("Tuesday"),
		testDay("Tuesday"),
		outOfWindow,
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(plan) != 1 {
		t.Errorf("len(plan) = %d, want 1 after dropping duplicate and out-of-window days", len(plan))
	}
	if _, ok := plan["2025-06-03"]; !ok {
		t.Errorf("plan keys = %v, want only 2025-06-03", planKeys(plan))
	}
}

func TestAssembleCapsToSevenDays(t *testing.T) {
	asm, _ := newTestAssembler(t, date(2025, time.June, 2), 0)

	names := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday", "Monday", "Tuesday"}
	var candidates []rawDay
	for _, name := range names {
		candidates = append(candidates, testDay(name))
	}

	plan, err := asm.Assemble(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(plan) != 7 {
		t.Errorf("len(plan) = %d, want 7", len(plan))
	}
}

func TestAssembleFailsWhenNoDaySurvives(t *testing.T) {
	asm, _ := newTestAssembler(t, date(2025, time.June, 2), 0)

	outOfWindow := testDay("")
	outOfWindow.Date = "2025-07-20"

	_, err := asm.Assemble(context.Background(), []rawDay{outOfWindow, {Day: "Monday"}})
	if !errors.Is(err, ErrNoValidDays) {
		t.Errorf("Assemble() error = %v, want ErrNoValidDays", err)
	}
}

func TestAssembleRedistributesWorkoutsAcrossWorkoutDates(t *testing.T) {
	// Full week, 3 workout dates: Monday, Wednesday, Friday.
	asm, window := newTestAssembler(t, date(2025, time.June, 2), 3)

	run := rawWorkout{Name: "Run", Category: "cardio", DurationMinutes: 30, CaloriesBurned: 300}
	lift := rawWorkout{Name: "Lift", Category: "strength", DurationMinutes: 45, CaloriesBurned: 250}

	// The model dumped all five workouts on two arbitrary days.
	plan, err := asm.Assemble(context.Background(), []rawDay{
		testDay("Monday", run, lift, run),
		testDay("Tuesday", lift, run),
		testDay("Wednesday"),
		testDay("Thursday"),
		testDay("Friday"),
		testDay("Saturday"),
		testDay("Sunday"),
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	total := 0
	for key, day := range plan {
		parsed, _ := time.ParseInLocation(DateKeyLayout, key, time.UTC)
		if window.IsWorkoutDate(parsed) {
			if len(day.Workouts) == 0 {
				t.Errorf("workout day %s has no workouts", key)
			}
		} else if len(day.Workouts) != 0 {
			t.Errorf("rest day %s has %d workouts, want 0", key, len(day.Workouts))
		}
		total += len(day.Workouts)
	}
	if total != 5 {
		t.Errorf("total workouts = %d, want the full pool of 5 redistributed", total)
	}
}

func TestAssembleSynthesizesDefaultWorkoutsFromEmptyPool(t *testing.T) {
	asm, window := newTestAssembler(t, date(2025, time.June, 2), 3)

	plan, err := asm.Assemble(context.Background(), []rawDay{
		testDay("Monday"), testDay("Wednesday"), testDay("Friday"),
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	seen := map[string]bool{}
	for key, day := range plan {
		parsed, _ := time.ParseInLocation(DateKeyLayout, key, time.UTC)
		if !window.IsWorkoutDate(parsed) {
			continue
		}
		if len(day.Workouts) != 1 {
			t.Fatalf("workout day %s has %d workouts, want 1 synthesized", key, len(day.Workouts))
		}
		seen[day.Workouts[0].Name] = true
	}
	if len(seen) != 3 {
		t.Errorf("synthesized workouts = %v, want 3 distinct templates", seen)
	}
}

func TestAssemblePlaceholdersForMissingMealsOnly(t *testing.T) {
	asm, _ := newTestAssembler(t, date(2025, time.June, 2), 0)

	candidate := testDay("Monday")
	candidate.Meals.Lunch = nil

	plan, err := asm.Assemble(context.Background(), []rawDay{candidate})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	day := plan["2025-06-02"]
	if day.Lunch.Name != placeholderMealName {
		t.Errorf("missing lunch = %q, want placeholder", day.Lunch.Name)
	}
	if day.Lunch.Calories != 0 || day.Lunch.Done {
		t.Errorf("placeholder lunch = %+v, want zero calories and not done", day.Lunch)
	}
	// Tuesday through Sunday never arrived and must not be backfilled.
	if len(plan) != 1 {
		t.Errorf("len(plan) = %d, want 1 (no whole-day backfill)", len(plan))
	}
}

func TestAssembleComputesAggregates(t *testing.T) {
	asm, _ := newTestAssembler(t, date(2025, time.June, 2), 0)

	plan, err := asm.Assemble(context.Background(), []rawDay{testDay("Monday")})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	day := plan["2025-06-02"]
	if day.TotalCalories != 1700 {
		t.Errorf("TotalCalories = %d, want 1700", day.TotalCalories)
	}
	if day.TotalProteinG != 117 || day.TotalCarbsG != 160 || day.TotalFatG != 59 {
		t.Errorf("macro totals = %d/%d/%d, want 117/160/59",
			day.TotalProteinG, day.TotalCarbsG, day.TotalFatG)
	}
}

func TestWaterGlasses(t *testing.T) {
	heavySession := Workout{CaloriesBurned: 600}
	lightSession := Workout{CaloriesBurned: 100}

	tests := map[string]struct {
		reported float64
		workouts []Workout
		want     int
	}{
		"unreported defaults to seven":        {reported: 0, want: 7},
		"milliliters are converted":           {reported: 2000, want: 8},
		"glass count used as is":              {reported: 7, want: 7},
		"low report clamped up":               {reported: 3, want: 6},
		"high report clamped down":            {reported: 11, want: 8},
		"huge milliliters clamped down":       {reported: 5000, want: 8},
		"workout bonus capped at two each":    {reported: 7, workouts: []Workout{heavySession}, want: 9},
		"light workout still adds one":        {reported: 7, workouts: []Workout{lightSession}, want: 8},
		"daily bonus capped at four": {
			reported: 8,
			workouts: []Workout{heavySession, heavySession, heavySession},
			want:     12,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := waterGlasses(tt.reported, tt.workouts); got != tt.want {
				t.Errorf("waterGlasses(%v, %d workouts) = %d, want %d",
					tt.reported, len(tt.workouts), got, tt.want)
			}
		})
	}
}

func planKeys(plan WeeklyPlan) []string {
	var keys []string
	for key := range plan {
		keys = append(keys, key)
	}
	return keys
}
