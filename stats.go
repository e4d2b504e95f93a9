package main

import "strings"

// kcalPerGramBodyFat converts a net energy surplus or deficit into an
// estimated body-fat-equivalent mass change. Fixed approximation, not
// derived from the profile.
const kcalPerGramBodyFat = 7.7

// normalizeNutrientName strips all whitespace from a backend-supplied
// nutrient name so entries like "维生素 C" and "维生素C" accumulate under
// one key.
func normalizeNutrientName(name string) string {
	return strings.Join(strings.Fields(name), "")
}

// computeStats folds today's ledger into running totals in a single pass per
// list. Non-numeric or missing fields were already coerced to 0 at decode
// time, so plain addition is safe.
//
// Burned always includes BMR — resting expenditure counts as spent energy
// even with no exercise logged. MusclePotential is "High" only when protein
// intake exceeds its target AND at least one High-intensity exercise exists.
func computeStats(meals []nutritionInfo, exercises []exerciseInfo, bmr float64, targets derivedTargets) derivedStats {
	stats := derivedStats{AllMicros: make(map[string]microTotal)}

	for _, m := range meals {
		stats.Calories += float64(m.Calories)
		stats.Protein += float64(m.Protein)
		stats.Carbs += float64(m.Carbs)
		stats.Fat += float64(m.Fat)
		stats.Fiber += float64(m.Fiber)
		stats.Sugar += float64(m.Sugar)
		stats.Sodium += float64(m.Sodium)
		stats.Water += float64(m.WaterContent)
	}

	var exerciseBurn float64
	highIntensity := false
	for _, e := range exercises {
		exerciseBurn += float64(e.CaloriesBurned)
		if e.Intensity == "High" {
			highIntensity = true
		}
	}

	stats.Burned = exerciseBurn + bmr
	stats.Net = stats.Calories - stats.Burned
	stats.FatChangeGrams = stats.Net / kcalPerGramBodyFat

	stats.MusclePotential = "Low"
	if stats.Protein > targets.Protein && highIntensity {
		stats.MusclePotential = "High"
	}

	// Merge vitamins, minerals, and others across all meals. Entries with no
	// name are skipped; same normalized name accumulates additively; the
	// first occurrence fixes the unit (units are never cross-checked).
	for _, m := range meals {
		for _, group := range [][]microNutrient{m.Vitamins, m.Minerals, m.Others} {
			for _, n := range group {
				key := normalizeNutrientName(n.Name)
				if key == "" {
					continue
				}
				total, ok := stats.AllMicros[key]
				if !ok {
					unit := n.Unit
					if unit == "" {
						unit = "mg"
					}
					total = microTotal{Unit: unit}
				}
				total.Value += float64(n.Value)
				stats.AllMicros[key] = total
			}
		}
	}

	return stats
}

// computeProgress returns capped current/target ratios for the dashboard
// bars: the five macro-level rows plus one row per micronutrient target.
func computeProgress(stats derivedStats, targets derivedTargets) map[string]float64 {
	progress := make(map[string]float64, 5+len(targets.Micros))
	progress["calories"] = progressRatio(stats.Calories, targets.Calories)
	progress["protein"] = progressRatio(stats.Protein, targets.Protein)
	progress["carbs"] = progressRatio(stats.Carbs, targets.Carbs)
	progress["fat"] = progressRatio(stats.Fat, targets.Fat)
	progress["water"] = progressRatio(stats.Water, targets.Water)
	for name, target := range targets.Micros {
		progress[name] = progressRatio(stats.AllMicros[name].Value, target)
	}
	return progress
}

func progressRatio(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	r := current / target
	if r > 1 {
		return 1
	}
	return r
}
