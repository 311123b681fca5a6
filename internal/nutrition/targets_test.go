package nutrition_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yuv-man/habeat-server/internal/nutrition"
)

func TestCalculateTargets(t *testing.T) {
	tests := []struct {
		name    string
		profile nutrition.Profile
		goals   []nutrition.Goal
		want    nutrition.Targets
	}{
		{
			name: "maintenance male regression values",
			profile: nutrition.Profile{
				Age:              30,
				Sex:              nutrition.SexMale,
				HeightCm:         175,
				WeightKg:         70,
				WorkoutFrequency: 3,
				Path:             nutrition.PathMaintenance,
			},
			want: nutrition.Targets{
				Calories:           2556,
				Macros:             nutrition.Macros{ProteinG: 192, CarbsG: 256, FatG: 85},
				EffectiveFrequency: 3,
			},
		},
		{
			name: "weight loss female",
			profile: nutrition.Profile{
				Age:              28,
				Sex:              nutrition.SexFemale,
				HeightCm:         165,
				WeightKg:         60,
				WorkoutFrequency: 2,
				Path:             nutrition.PathWeightLoss,
			},
			want: nutrition.Targets{
				Calories:           1329,
				Macros:             nutrition.Macros{ProteinG: 133, CarbsG: 100, FatG: 44},
				EffectiveFrequency: 2,
			},
		},
		{
			name: "keto path uses keto split",
			profile: nutrition.Profile{
				Age:              40,
				Sex:              nutrition.SexMale,
				HeightCm:         180,
				WeightKg:         80,
				WorkoutFrequency: 5,
				Path:             nutrition.PathKeto,
			},
			want: nutrition.Targets{
				Calories:           2984,
				Macros:             nutrition.Macros{ProteinG: 187, CarbsG: 37, FatG: 232},
				EffectiveFrequency: 5,
			},
		},
		{
			name: "goal deltas sum and frequency floors combine by max",
			profile: nutrition.Profile{
				Age:              30,
				Sex:              nutrition.SexMale,
				HeightCm:         175,
				WeightKg:         70,
				WorkoutFrequency: 1,
				Path:             nutrition.PathMaintenance,
			},
			goals: []nutrition.Goal{
				{Title: "Build muscle", Description: "strength training block"},
				{Title: "Train for a 10k run", Description: "weekly long runs"},
			},
			want: nutrition.Targets{
				Calories:           3056,
				Macros:             nutrition.Macros{ProteinG: 259, CarbsG: 346, FatG: 102},
				EffectiveFrequency: 4,
			},
		},
		{
			name: "calorie floor enforced for extreme inputs",
			profile: nutrition.Profile{
				Age:              200,
				Sex:              nutrition.SexFemale,
				HeightCm:         10,
				WeightKg:         5,
				WorkoutFrequency: -3,
				Path:             nutrition.PathWeightLoss,
			},
			want: nutrition.Targets{
				Calories:           1200,
				Macros:             nutrition.Macros{ProteinG: 120, CarbsG: 90, FatG: 40},
				EffectiveFrequency: 0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nutrition.CalculateTargets(tt.profile, tt.goals)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CalculateTargets() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCalculateTargetsIsDeterministic(t *testing.T) {
	profile := nutrition.Profile{
		Age:              30,
		Sex:              nutrition.SexMale,
		HeightCm:         175,
		WeightKg:         70,
		WorkoutFrequency: 3,
		Path:             nutrition.PathMaintenance,
	}
	first := nutrition.CalculateTargets(profile, nil)
	for range 10 {
		if got := nutrition.CalculateTargets(profile, nil); got != first {
			t.Fatalf("expected deterministic output, got %+v then %+v", first, got)
		}
	}
}

func TestGoalMatchingIgnoresUnknownGoals(t *testing.T) {
	profile := nutrition.Profile{
		Age:              30,
		Sex:              nutrition.SexMale,
		HeightCm:         175,
		WeightKg:         70,
		WorkoutFrequency: 3,
		Path:             nutrition.PathMaintenance,
	}
	base := nutrition.CalculateTargets(profile, nil)
	withUnknown := nutrition.CalculateTargets(profile, []nutrition.Goal{
		{Title: "Drink more water", Description: "hydration habit"},
	})
	if base != withUnknown {
		t.Errorf("unknown goal changed targets: %+v vs %+v", base, withUnknown)
	}
}
