// Package nutrition computes daily calorie and macronutrient targets from a
// user's physiological profile and active goals.
package nutrition

import (
	"math"
	"strings"
)

// Sex is the biological sex used for the BMR formula.
type Sex string

// Sex constants.
const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Path represents the dietary path the user follows.
type Path string

// Dietary path constants.
const (
	PathMaintenance Path = "maintenance"
	PathWeightLoss  Path = "weight_loss"
	PathMuscleGain  Path = "muscle_gain"
	PathKeto        Path = "keto"
)

// Profile is the immutable physiological input to a generation run.
type Profile struct {
	Age              int
	Sex              Sex
	HeightCm         float64
	WeightKg         float64
	WorkoutFrequency int
	Path             Path
	Allergies        []string
	Restrictions     []string
	Preferences      []string
	Dislikes         []string
}

// Goal is an active user goal that adjusts the computed targets.
type Goal struct {
	Title       string
	Description string
	TargetValue float64
	Unit        string
}

// Macros holds daily macronutrient targets in grams.
type Macros struct {
	ProteinG int
	CarbsG   int
	FatG     int
}

// Targets holds the daily calorie target and macro split for one run.
type Targets struct {
	Calories int
	Macros   Macros
	// EffectiveFrequency is the workout frequency after goal floors applied.
	EffectiveFrequency int
}

// Calculation constants.
const (
	// MinDailyCalories is the hard floor below which targets never drop.
	MinDailyCalories = 1200

	// Mifflin-St Jeor coefficients.
	bmrWeightFactor = 10.0
	bmrHeightFactor = 6.25
	bmrAgeFactor    = 5.0
	bmrMaleOffset   = 5.0
	bmrFemaleOffset = -161.0

	// Dietary path calorie adjustments.
	weightLossDeficit  = -500
	muscleGainSurplus  = 300
	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9

	// Input clamps.
	minAge      = 10
	maxAge      = 100
	minWeightKg = 30.0
	maxWeightKg = 300.0
	minHeightCm = 100.0
	maxHeightCm = 250.0
	maxWeeklyWorkouts = 7
)

// macroSplit is the share of daily calories per macro for a dietary path.
type macroSplit struct {
	protein float64
	carbs   float64
	fat     float64
}

// macroSplits maps dietary paths to their calorie shares.
var macroSplits = map[Path]macroSplit{
	PathMaintenance: {protein: 0.30, carbs: 0.40, fat: 0.30},
	PathWeightLoss:  {protein: 0.40, carbs: 0.30, fat: 0.30},
	PathMuscleGain:  {protein: 0.30, carbs: 0.45, fat: 0.25},
	PathKeto:        {protein: 0.25, carbs: 0.05, fat: 0.70},
}

// goalAdjustment is the additive effect of one goal category.
type goalAdjustment struct {
	calorieDelta   int
	proteinDeltaG  int
	carbsDeltaG    int
	frequencyFloor int
}

// goalCategory matches goals by keyword and carries its adjustment.
type goalCategory struct {
	keywords   []string
	adjustment goalAdjustment
}

// goalCategories are matched against goal title and description. A goal can
// match at most one category, the first one that hits.
var goalCategories = []goalCategory{
	{
		keywords:   []string{"run", "endurance", "cardio", "marathon"},
		adjustment: goalAdjustment{calorieDelta: 300, carbsDeltaG: 40, frequencyFloor: 4},
	},
	{
		keywords:   []string{"strength", "muscle", "lift"},
		adjustment: goalAdjustment{calorieDelta: 200, proteinDeltaG: 30, frequencyFloor: 3},
	},
	{
		keywords:   []string{"weight loss", "lose weight", "cut", "slim"},
		adjustment: goalAdjustment{calorieDelta: -300, carbsDeltaG: -30, frequencyFloor: 3},
	},
	{
		keywords:   []string{"flexib", "yoga", "mobility", "stretch"},
		adjustment: goalAdjustment{frequencyFloor: 2},
	},
}

// CalculateTargets derives daily calorie and macro targets from the profile
// and active goals. It is pure and never fails: out-of-range inputs are
// clamped to sane bounds.
func CalculateTargets(profile Profile, goals []Goal) Targets {
	profile = clampProfile(profile)
	adjustment := combineGoalAdjustments(goals)

	frequency := profile.WorkoutFrequency
	if adjustment.frequencyFloor > frequency {
		frequency = adjustment.frequencyFloor
	}
	if frequency > maxWeeklyWorkouts {
		frequency = maxWeeklyWorkouts
	}

	bmr := basalMetabolicRate(profile)
	tdee := bmr * activityMultiplier(frequency)

	calories := int(math.Round(tdee)) + pathCalorieDelta(profile.Path) + adjustment.calorieDelta
	if calories < MinDailyCalories {
		calories = MinDailyCalories
	}

	macros := splitMacros(calories, profile.Path)
	macros.ProteinG = maxInt(0, macros.ProteinG+adjustment.proteinDeltaG)
	macros.CarbsG = maxInt(0, macros.CarbsG+adjustment.carbsDeltaG)

	return Targets{
		Calories:           calories,
		Macros:             macros,
		EffectiveFrequency: frequency,
	}
}

// basalMetabolicRate implements the Mifflin-St Jeor formula.
func basalMetabolicRate(profile Profile) float64 {
	bmr := bmrWeightFactor*profile.WeightKg +
		bmrHeightFactor*profile.HeightCm -
		bmrAgeFactor*float64(profile.Age)
	if profile.Sex == SexFemale {
		return bmr + bmrFemaleOffset
	}
	return bmr + bmrMaleOffset
}

// activityMultiplier maps weekly workout frequency to a TDEE multiplier.
func activityMultiplier(frequency int) float64 {
	switch {
	case frequency <= 0:
		return 1.2
	case frequency <= 2:
		return 1.375
	case frequency <= 4:
		return 1.55
	case frequency <= 6:
		return 1.725
	default:
		return 1.9
	}
}

// pathCalorieDelta returns the calorie adjustment for the dietary path.
func pathCalorieDelta(path Path) int {
	switch path {
	case PathWeightLoss:
		return weightLossDeficit
	case PathMuscleGain:
		return muscleGainSurplus
	case PathMaintenance, PathKeto:
		return 0
	default:
		return 0
	}
}

// splitMacros converts daily calories into gram targets using the path's
// calorie shares.
func splitMacros(calories int, path Path) Macros {
	split, ok := macroSplits[path]
	if !ok {
		split = macroSplits[PathMaintenance]
	}
	return Macros{
		ProteinG: int(math.Round(float64(calories) * split.protein / kcalPerGramProtein)),
		CarbsG:   int(math.Round(float64(calories) * split.carbs / kcalPerGramCarbs)),
		FatG:     int(math.Round(float64(calories) * split.fat / kcalPerGramFat)),
	}
}

// combineGoalAdjustments sums calorie and macro deltas across all matching
// goals and takes the most demanding frequency floor.
func combineGoalAdjustments(goals []Goal) goalAdjustment {
	var combined goalAdjustment
	for _, goal := range goals {
		category, ok := matchGoalCategory(goal)
		if !ok {
			continue
		}
		combined.calorieDelta += category.adjustment.calorieDelta
		combined.proteinDeltaG += category.adjustment.proteinDeltaG
		combined.carbsDeltaG += category.adjustment.carbsDeltaG
		if category.adjustment.frequencyFloor > combined.frequencyFloor {
			combined.frequencyFloor = category.adjustment.frequencyFloor
		}
	}
	return combined
}

// matchGoalCategory finds the first category whose keyword appears in the
// goal title or description.
func matchGoalCategory(goal Goal) (goalCategory, bool) {
	text := strings.ToLower(goal.Title + " " + goal.Description)
	for _, category := range goalCategories {
		for _, keyword := range category.keywords {
			if strings.Contains(text, keyword) {
				return category, true
			}
		}
	}
	return goalCategory{}, false
}

// clampProfile bounds physiological inputs so arithmetic stays sane.
func clampProfile(profile Profile) Profile {
	profile.Age = clampInt(profile.Age, minAge, maxAge)
	profile.WeightKg = clampFloat(profile.WeightKg, minWeightKg, maxWeightKg)
	profile.HeightCm = clampFloat(profile.HeightCm, minHeightCm, maxHeightCm)
	if profile.WorkoutFrequency < 0 {
		profile.WorkoutFrequency = 0
	}
	if profile.WorkoutFrequency > maxWeeklyWorkouts {
		profile.WorkoutFrequency = maxWeeklyWorkouts
	}
	return profile
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func clampFloat(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
