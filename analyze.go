package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

/* ─── Error taxonomy ─────────────────────────────────────────────────── */

// Sentinel errors the handlers map to user-facing messages. Anything else
// from the gateway is a generic analysis failure.
var (
	errMissingAPIKey = errors.New("gemini api key not configured")
	errRateLimited   = errors.New("gemini rate limited")
	errBadPayload    = errors.New("gemini returned an unusable payload")
)

/* ─── Gemini prompt constants ────────────────────────────────────────── */

const geminiModel = "gemini-3-flash-preview"

const menuSystemInstruction = "你是一位资深临床营养师。请分析饮食并提取极详尽的数据。" +
	"对于微量元素，请提供具体的数值和单位。请严格返回 JSON 数组，不要包含任何 Markdown 标记或多余文字。"

const exerciseSystemInstruction = "你是一位专业运动科学专家。请根据描述计算热量消耗和强度。严格返回 JSON 对象。"

// menuResponseSchema constrains menu analysis to an array of food records.
// Only the five core fields are required; everything else defaults to 0 or
// empty on our side.
const menuResponseSchema = `{
  "type": "ARRAY",
  "items": {
    "type": "OBJECT",
    "properties": {
      "foodName": {"type": "STRING"},
      "calories": {"type": "NUMBER"},
      "protein": {"type": "NUMBER"},
      "carbs": {"type": "NUMBER"},
      "fat": {"type": "NUMBER"},
      "fiber": {"type": "NUMBER"},
      "sugar": {"type": "NUMBER"},
      "sodium": {"type": "NUMBER"},
      "waterContent": {"type": "NUMBER"},
      "vitamins": {"type": "ARRAY", "items": {"type": "OBJECT", "properties": {"name": {"type": "STRING"}, "value": {"type": "NUMBER"}, "unit": {"type": "STRING"}}}},
      "minerals": {"type": "ARRAY", "items": {"type": "OBJECT", "properties": {"name": {"type": "STRING"}, "value": {"type": "NUMBER"}, "unit": {"type": "STRING"}}}},
      "others": {"type": "ARRAY", "items": {"type": "OBJECT", "properties": {"name": {"type": "STRING"}, "value": {"type": "NUMBER"}, "unit": {"type": "STRING"}}}}
    },
    "required": ["foodName", "calories", "protein", "carbs", "fat"]
  }
}`

const exerciseResponseSchema = `{
  "type": "OBJECT",
  "properties": {
    "activityName": {"type": "STRING"},
    "durationMinutes": {"type": "NUMBER"},
    "caloriesBurned": {"type": "NUMBER"},
    "intensity": {"type": "STRING", "enum": ["Low", "Moderate", "High"]}
  },
  "required": ["activityName", "durationMinutes", "caloriesBurned", "intensity"]
}`

/* ─── Gemini HTTP client ─────────────────────────────────────────────── */

// geminiRequest is the generateContent request body.
type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

// callGemini sends one generateContent request and returns the text of the
// first candidate. Uses raw net/http rather than the SDK — one endpoint is
// not worth the dependency, and a plain base URL keeps tests on httptest.
// No retries: each call is one request, fail fast.
func callGemini(ctx context.Context, baseURL, systemInstruction, text string, schema json.RawMessage) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", errMissingAPIKey
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
	}
	if systemInstruction != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}}
	}
	reqBody.GenerationConfig = &geminiGenerationConfig{
		ResponseMimeType: "application/json",
		ResponseSchema:   schema,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := baseURL + "/v1beta/models/" + geminiModel + ":generateContent?key=" + apiKey
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errBadPayload
	}
	content := result.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(content) == "" {
		return "", errBadPayload
	}
	return content, nil
}

/* ─── Analysis operations ────────────────────────────────────────────── */

// analyzeMenu converts a free-text meal description into structured food
// records. Zero recognized items is a valid empty slice here — whether that
// counts as a user error is the caller's policy.
func analyzeMenu(ctx context.Context, baseURL, text string) ([]nutritionInfo, error) {
	content, err := callGemini(ctx, baseURL, menuSystemInstruction, text, json.RawMessage(menuResponseSchema))
	if err != nil {
		return nil, err
	}

	var records []nutritionInfo
	if err := json.Unmarshal([]byte(content), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return records, nil
}

// analyzeExercise converts a free-text activity description into exactly one
// exercise record.
func analyzeExercise(ctx context.Context, baseURL, text string) (exerciseInfo, error) {
	content, err := callGemini(ctx, baseURL, exerciseSystemInstruction, text, json.RawMessage(exerciseResponseSchema))
	if err != nil {
		return exerciseInfo{}, err
	}

	var record exerciseInfo
	if err := json.Unmarshal([]byte(content), &record); err != nil {
		return exerciseInfo{}, fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return record, nil
}

// fetchRecommendations asks the model for short diet and exercise advice
// based on the current numbers. A response that doesn't parse as the
// expected object yields blank recommendations, not an error.
func fetchRecommendations(ctx context.Context, baseURL string, profile userProfile, bmr float64, stats derivedStats, targets derivedTargets) (recommendation, error) {
	genderLabel := "女"
	if profile.Gender == "male" {
		genderLabel = "男"
	}
	prompt := fmt.Sprintf(`根据以下数据给出今日建议：
个人：%s, %d岁, 体重%.0fkg, BMR %.0f
今日已摄入：%.0fkcal (蛋白质 %.1fg)
今日已运动：%.0fkcal
目标热量：%.0fkcal
请给出简短的：1. 接下来的饮食建议 2. 接下来的运动方案。以 JSON 格式返回: {"diet": "...", "exercise": "..."}`,
		genderLabel, profile.Age, profile.Weight, bmr,
		stats.Calories, stats.Protein,
		stats.Burned-bmr,
		targets.Calories)

	content, err := callGemini(ctx, baseURL, "", prompt, nil)
	if err != nil {
		return recommendation{}, err
	}

	var recs recommendation
	if err := json.Unmarshal([]byte(content), &recs); err != nil {
		return recommendation{}, nil
	}
	return recs, nil
}
