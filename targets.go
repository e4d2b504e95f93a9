package main

// computeBMR computes basal metabolic rate (kcal/day) via Mifflin-St Jeor.
// Any gender value other than "male" uses the female constant.
func computeBMR(p userProfile) float64 {
	bmr := 10*p.Weight + 6.25*p.Height - 5*float64(p.Age)
	if p.Gender == "male" {
		return bmr + 5
	}
	return bmr - 161
}

// computeTDEE is total daily energy expenditure: BMR scaled by the profile's
// activity factor (expected range 1.2–1.9, not enforced here).
func computeTDEE(p userProfile) float64 {
	return computeBMR(p) * p.ActivityFactor
}

// computeTargets derives the full set of daily goals from the profile.
// Pure and deterministic — malformed profile fields simply propagate.
//
// Macro split: 25% of energy from fat (9 kcal/g), 55% from carbs (4 kcal/g).
// Protein scales with body weight (1.5 g/kg), water at 35 ml/kg. Fiber,
// sugar, and sodium are fixed dietary-reference constants.
func computeTargets(p userProfile) derivedTargets {
	tdee := computeTDEE(p)

	// Micronutrient goals are dietary-reference values. Iron, zinc, and
	// magnesium differ by gender; everything else is flat. Keys match the
	// nutrient names the analysis backend returns.
	micros := map[string]float64{
		"维生素A":   800,
		"维生素C":   100,
		"维生素D":   15,
		"维生素E":   15,
		"维生素B12": 2.4,
		"叶酸":     400,
		"钙":      1000,
		"钾":      3500,
		"硒":      55,
	}
	if p.Gender == "female" {
		micros["铁"] = 18
		micros["锌"] = 8
		micros["镁"] = 320
	} else {
		micros["铁"] = 8
		micros["锌"] = 11
		micros["镁"] = 420
	}

	return derivedTargets{
		Calories: tdee,
		Protein:  p.Weight * 1.5,
		Fat:      (tdee * 0.25) / 9,
		Carbs:    (tdee * 0.55) / 4,
		Water:    p.Weight * 35,
		Fiber:    30,
		Sugar:    50,
		Sodium:   2300,
		Micros:   micros,
	}
}
