package main

import (
	"encoding/json"
	"strconv"
	"strings"
)

// looseNumber is a float64 that tolerates malformed JSON values. The model
// occasionally returns numeric fields as strings, null, or omits them
// entirely; anything that doesn't parse as a number decodes to 0 instead of
// failing the whole record.
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
				*n = looseNumber(f)
				return nil
			}
		}
		*n = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*n = 0
		return nil
	}
	*n = looseNumber(f)
	return nil
}

/* ─── Domain structs ─────────────────────────────────────────────────── */

// userProfile holds the body metrics every derived number is computed from.
// Edited only through PATCH /api/profile; never deleted, only updated.
type userProfile struct {
	Age            int     `json:"age"`
	Gender         string  `json:"gender"` // "male" or "female"
	Weight         float64 `json:"weight"` // kg
	Height         float64 `json:"height"` // cm
	ActivityFactor float64 `json:"activityFactor"`
}

// microNutrient is one vitamin/mineral/other entry as the model returns it.
// Name is a free-form backend string, not a closed enum.
type microNutrient struct {
	Name  string      `json:"name"`
	Value looseNumber `json:"value"`
	Unit  string      `json:"unit"` // e.g. "mg", "mcg"; empty means "mg"
}

// nutritionInfo is one recognized food item. ID is assigned by the store on
// append so deletes address a stable identity rather than a list position.
type nutritionInfo struct {
	ID           string          `json:"id"`
	FoodName     string          `json:"foodName"`
	Calories     looseNumber     `json:"calories"`
	Protein      looseNumber     `json:"protein"`
	Carbs        looseNumber     `json:"carbs"`
	Fat          looseNumber     `json:"fat"`
	Fiber        looseNumber     `json:"fiber"`
	Sugar        looseNumber     `json:"sugar"`
	Sodium       looseNumber     `json:"sodium"`       // mg
	WaterContent looseNumber     `json:"waterContent"` // ml
	Vitamins     []microNutrient `json:"vitamins"`
	Minerals     []microNutrient `json:"minerals"`
	Others       []microNutrient `json:"others"`
}

// exerciseInfo is one recognized activity. Same identity scheme as meals.
type exerciseInfo struct {
	ID              string      `json:"id"`
	ActivityName    string      `json:"activityName"`
	DurationMinutes looseNumber `json:"durationMinutes"`
	CaloriesBurned  looseNumber `json:"caloriesBurned"`
	Intensity       string      `json:"intensity"` // "Low", "Moderate", "High"
}

// appState is the aggregate root: the profile plus today's ledger. Serialized
// as one JSON blob under a fixed snapshot key after every mutation.
type appState struct {
	Profile   userProfile     `json:"profile"`
	Meals     []nutritionInfo `json:"meals"`
	Exercises []exerciseInfo  `json:"exercises"`
}

/* ─── Derived values (recomputed, never stored) ──────────────────────── */

// derivedTargets are the daily goals implied by the profile alone.
// Micros is keyed by the backend-supplied nutrient names.
type derivedTargets struct {
	Calories float64            `json:"calories"`
	Protein  float64            `json:"protein"`
	Fat      float64            `json:"fat"`
	Carbs    float64            `json:"carbs"`
	Water    float64            `json:"water"`
	Fiber    float64            `json:"fiber"`
	Sugar    float64            `json:"sugar"`
	Sodium   float64            `json:"sodium"`
	Micros   map[string]float64 `json:"micros"`
}

// microTotal is an accumulated micronutrient amount. Unit comes from the
// first occurrence of the nutrient and is not validated against later ones.
type microTotal struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// derivedStats are the running totals folded from today's ledger.
type derivedStats struct {
	Calories        float64               `json:"calories"`
	Protein         float64               `json:"protein"`
	Carbs           float64               `json:"carbs"`
	Fat             float64               `json:"fat"`
	Fiber           float64               `json:"fiber"`
	Sugar           float64               `json:"sugar"`
	Sodium          float64               `json:"sodium"`
	Water           float64               `json:"water"`
	Burned          float64               `json:"burned"` // exercise burn + BMR
	Net             float64               `json:"net"`
	FatChangeGrams  float64               `json:"fatChangeGrams"`
	MusclePotential string                `json:"musclePotential"` // "High" or "Low"
	AllMicros       map[string]microTotal `json:"allMicros"`
}

/* ─── Request / response bodies ──────────────────────────────────────── */

// analyzeRequest is the body for POST /api/meals and POST /api/exercises.
type analyzeRequest struct {
	Text string `json:"text"`
}

// profilePatchRequest is the body for PATCH /api/profile. All fields are
// pointers — only non-nil fields get applied.
type profilePatchRequest struct {
	Age            *int     `json:"age"`
	Gender         *string  `json:"gender"`
	Weight         *float64 `json:"weight"`
	Height         *float64 `json:"height"`
	ActivityFactor *float64 `json:"activityFactor"`
}

// recommendation is the AI coaching payload. A response that fails to parse
// yields the zero value, rendered as blank text rather than an error.
type recommendation struct {
	Diet     string `json:"diet"`
	Exercise string `json:"exercise"`
}

// summaryResponse is the shape for GET /api/summary: everything the
// dashboard needs in one call.
type summaryResponse struct {
	Profile   userProfile        `json:"profile"`
	BMR       float64            `json:"bmr"`
	TDEE      float64            `json:"tdee"`
	Targets   derivedTargets     `json:"targets"`
	Stats     derivedStats       `json:"stats"`
	Progress  map[string]float64 `json:"progress"`
	Meals     []nutritionInfo    `json:"meals"`
	Exercises []exerciseInfo     `json:"exercises"`
}
