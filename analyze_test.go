package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// setupGeminiMock starts a mock Gemini server and returns its URL plus a
// function to set the next response.
func setupGeminiMock(t *testing.T) (string, func(int, interface{})) {
	t.Helper()

	var mockStatus int
	var mockBody interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(mockStatus)
		json.NewEncoder(w).Encode(mockBody)
	}))
	t.Cleanup(server.Close)

	return server.URL, func(status int, body interface{}) {
		mockStatus = status
		mockBody = body
	}
}

// geminiTextResponse wraps a content string in the generateContent response
// shape (candidates[0].content.parts[0].text).
func geminiTextResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"parts": []map[string]interface{}{
						{"text": content},
					},
				},
			},
		},
	}
}

/* ─── analyzeMenu ────────────────────────────────────────────────────── */

func TestAnalyzeMenu_Success(t *testing.T) {
	baseURL, setMock := setupGeminiMock(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	setMock(http.StatusOK, geminiTextResponse(
		`[{"foodName":"水煮蛋","calories":155,"protein":13,"carbs":1.1,"fat":11,
		   "vitamins":[{"name":"维生素D","value":2,"unit":"mcg"}]},
		  {"foodName":"牛奶","calories":"120","protein":8,"carbs":12,"fat":5}]`))

	records, err := analyzeMenu(context.Background(), baseURL, "两个水煮蛋，一杯牛奶")
	if err != nil {
		t.Fatalf("analyzeMenu failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].FoodName != "水煮蛋" || float64(records[0].Calories) != 155 {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	// String-typed number must coerce rather than fail the record.
	if float64(records[1].Calories) != 120 {
		t.Errorf("string calories not coerced: %v", records[1].Calories)
	}
}

func TestAnalyzeMenu_EmptyArray(t *testing.T) {
	baseURL, setMock := setupGeminiMock(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	setMock(http.StatusOK, geminiTextResponse(`[]`))

	records, err := analyzeMenu(context.Background(), baseURL, "嗯")
	if err != nil {
		t.Fatalf("empty result should be a valid empty slice, got error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty slice, got %d records", len(records))
	}
}

func TestAnalyzeMenu_MissingAPIKey(t *testing.T) {
	baseURL, _ := setupGeminiMock(t)
	t.Setenv("GEMINI_API_KEY", "")

	_, err := analyzeMenu(context.Background(), baseURL, "一碗米饭")
	if !errors.Is(err, errMissingAPIKey) {
		t.Errorf("expected errMissingAPIKey, got %v", err)
	}
}

func TestAnalyzeMenu_RateLimited(t *testing.T) {
	baseURL, setMock := setupGeminiMock(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	setMock(http.StatusTooManyRequests, map[string]string{"error": "quota"})

	_, err := analyzeMenu(context.Background(), baseURL, "一碗米饭")
	if !errors.Is(err, errRateLimited) {
		t.Errorf("expected errRateLimited, got %v", err)
	}
}

func TestAnalyzeMenu_EmptyText(t *testing.T) {
	baseURL, setMock := setupGeminiMock(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	setMock(http.StatusOK, geminiTextResponse(""))

	_, err := analyzeMenu(context.Background(), baseURL, "一碗米饭")
	if !errors.Is(err, errBadPayload) {
		t.Errorf("expected errBadPayload for empty model text, got %v", err)
	}
}

func TestAnalyzeMenu_NotAnArray(t *testing.T) {
	baseURL, setMock := setupGeminiMock(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	setMock(http.StatusOK, geminiTextResponse(`{"foodName":"单个对象"}`))

	_, err := analyzeMenu(context.Background(), baseURL, "一碗米饭")
	if !errors.Is(err, errBadPayload) {
		t.Errorf("expected errBadPayload for non-array payload, got %v", err)
	}
}

func TestAnalyzeMenu_BackendError(t *testing.T) {
	baseURL, setMock := setupGeminiMock(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	setMock(http.StatusInternalServerError, map[string]string{"error": "boom"})

	_, err := analyzeMenu(context.Background(), baseURL, "一碗米饭")
	if err == nil {
		t.Fatal("expected an error for a 500 backend response")
	}
	if errors.Is(err, errRateLimited) || errors.Is(err, errMissingAPIKey) {
		t.Errorf("500 should be a generic failure, got %v", err)
	}
}

/* ─── analyzeExercise ────────────────────────────────────────────────── */

func TestAnalyzeExercise_Success(t *testing.T) {
	baseURL, setMock := setupGeminiMock(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	setMock(http.StatusOK, geminiTextResponse(
		`{"activityName":"快走","durationMinutes":30,"caloriesBurned":120,"intensity":"Moderate"}`))

	record, err := analyzeExercise(context.Background(), baseURL, "快走 30 分钟")
	if err != nil {
		t.Fatalf("analyzeExercise failed: %v", err)
	}
	if record.ActivityName != "快走" || float64(record.CaloriesBurned) != 120 || record.Intensity != "Moderate" {
		t.Errorf("unexpected record: %+v", record)
	}
}

func TestAnalyzeExercise_BadPayload(t *testing.T) {
	baseURL, setMock := setupGeminiMock(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	setMock(http.StatusOK, geminiTextResponse(`not json at all`))

	_, err := analyzeExercise(context.Background(), baseURL, "快走 30 分钟")
	if !errors.Is(err, errBadPayload) {
		t.Errorf("expected errBadPayload, got %v", err)
	}
}

/* ─── fetchRecommendations ───────────────────────────────────────────── */

func TestFetchRecommendations_Success(t *testing.T) {
	baseURL, setMock := setupGeminiMock(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	setMock(http.StatusOK, geminiTextResponse(`{"diet":"多吃蔬菜","exercise":"慢跑 20 分钟"}`))

	profile := baseProfile()
	targets := computeTargets(profile)
	stats := computeStats(nil, nil, computeBMR(profile), targets)
	recs, err := fetchRecommendations(context.Background(), baseURL, profile, computeBMR(profile), stats, targets)
	if err != nil {
		t.Fatalf("fetchRecommendations failed: %v", err)
	}
	if recs.Diet != "多吃蔬菜" || recs.Exercise != "慢跑 20 分钟" {
		t.Errorf("unexpected recommendations: %+v", recs)
	}
}

// TestFetchRecommendations_ParseFailureYieldsBlank verifies the reference
// behavior: an unparseable recommendation payload is an empty value, not an
// error.
func TestFetchRecommendations_ParseFailureYieldsBlank(t *testing.T) {
	baseURL, setMock := setupGeminiMock(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	setMock(http.StatusOK, geminiTextResponse(`今天状态不错！继续保持。`))

	profile := baseProfile()
	targets := computeTargets(profile)
	stats := computeStats(nil, nil, computeBMR(profile), targets)
	recs, err := fetchRecommendations(context.Background(), baseURL, profile, computeBMR(profile), stats, targets)
	if err != nil {
		t.Fatalf("parse failure should not be an error, got: %v", err)
	}
	if recs.Diet != "" || recs.Exercise != "" {
		t.Errorf("expected blank recommendations, got %+v", recs)
	}
}
