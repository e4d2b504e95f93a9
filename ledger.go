package main

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handler holds shared dependencies (state store, gateway config) for all
// route handlers.
type Handler struct {
	store         *store
	geminiBaseURL string // Base URL for the Gemini API (overridable for tests)
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/summary", h.getSummary)
	api.POST("/meals", h.addMeal)
	api.DELETE("/meals/:id", h.deleteMeal)
	api.POST("/exercises", h.addExercise)
	api.DELETE("/exercises/:id", h.deleteExercise)
	api.PATCH("/profile", h.patchProfile)
	api.POST("/reset", h.resetDay)
	api.POST("/recommendations", h.getRecommendations)
}

// summarize recomputes everything derived from the current state. Cheap
// enough to run on every request — it's one pass over a day's ledger.
func summarize(state appState) summaryResponse {
	bmr := computeBMR(state.Profile)
	targets := computeTargets(state.Profile)
	stats := computeStats(state.Meals, state.Exercises, bmr, targets)
	return summaryResponse{
		Profile:   state.Profile,
		BMR:       bmr,
		TDEE:      computeTDEE(state.Profile),
		Targets:   targets,
		Stats:     stats,
		Progress:  computeProgress(stats, targets),
		Meals:     state.Meals,
		Exercises: state.Exercises,
	}
}

// getSummary returns the profile, derived targets, running totals, and
// progress ratios in one payload.
// GET /api/summary.
func (h *Handler) getSummary(c *gin.Context) {
	c.JSON(http.StatusOK, summarize(h.store.State()))
}

// addMeal analyzes a free-text meal description and appends the recognized
// food records. An analysis that succeeds but recognizes nothing is treated
// as a user-input problem here, not a gateway failure — the gateway returns
// a valid empty slice and this is the one place that decides what it means.
// POST /api/meals.
func (h *Handler) addMeal(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		apiError(c, http.StatusBadRequest, "text is required")
		return
	}

	records, err := analyzeMenu(c.Request.Context(), h.geminiBaseURL, req.Text)
	if err != nil {
		log.Printf("[meals] analysis error: %v", err)
		status, msg := menuErrorResponse(err)
		apiError(c, status, msg)
		return
	}
	if len(records) == 0 {
		apiError(c, http.StatusUnprocessableEntity, "未能从输入中识别出有效的饮食信息")
		return
	}

	added := h.store.AppendMeals(records)
	c.JSON(http.StatusCreated, added)
}

// addExercise analyzes a free-text activity description and appends the one
// resulting record. Failures collapse to a single generic message except for
// the missing-credential and rate-limit cases, which the user can act on.
// POST /api/exercises.
func (h *Handler) addExercise(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		apiError(c, http.StatusBadRequest, "text is required")
		return
	}

	record, err := analyzeExercise(c.Request.Context(), h.geminiBaseURL, req.Text)
	if err != nil {
		log.Printf("[exercises] analysis error: %v", err)
		switch {
		case errors.Is(err, errMissingAPIKey):
			apiError(c, http.StatusBadRequest, "请先配置 API Key")
		case errors.Is(err, errRateLimited):
			apiError(c, http.StatusTooManyRequests, "请求过于频繁，请稍后再试")
		default:
			apiError(c, http.StatusBadGateway, "运动消耗计算失败")
		}
		return
	}

	added := h.store.AppendExercise(record)
	c.JSON(http.StatusCreated, added)
}

// menuErrorResponse maps a menu analysis error to an HTTP status and the
// banner message the UI shows.
func menuErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, errMissingAPIKey):
		return http.StatusBadRequest, "请先配置 API Key"
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, "请求过于频繁，请稍后再试"
	default:
		return http.StatusBadGateway, "AI 解析失败，请检查网络或输入内容"
	}
}

// deleteMeal removes one meal by ID. Returns 204 on success.
// DELETE /api/meals/:id.
func (h *Handler) deleteMeal(c *gin.Context) {
	if !h.store.DeleteMeal(c.Param("id")) {
		apiError(c, http.StatusNotFound, "meal not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// deleteExercise removes one exercise by ID. Returns 204 on success.
// DELETE /api/exercises/:id.
func (h *Handler) deleteExercise(c *gin.Context) {
	if !h.store.DeleteExercise(c.Param("id")) {
		apiError(c, http.StatusNotFound, "exercise not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// patchProfile updates only the provided profile fields and returns the
// fresh summary so the UI can re-render targets in one round trip.
// PATCH /api/profile. Pointer fields distinguish "not provided" from zero.
func (h *Handler) patchProfile(c *gin.Context) {
	var body profilePatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Gender != nil && *body.Gender != "male" && *body.Gender != "female" {
		apiError(c, http.StatusBadRequest, "gender must be male or female")
		return
	}

	h.store.UpdateProfile(body)
	c.JSON(http.StatusOK, summarize(h.store.State()))
}

// resetDay clears today's meals and exercises, keeping the profile.
// POST /api/reset.
func (h *Handler) resetDay(c *gin.Context) {
	h.store.ResetDay()
	c.JSON(http.StatusOK, summarize(h.store.State()))
}

// getRecommendations asks the model for diet and exercise advice based on
// the current numbers. A response that fails to parse comes back as blank
// strings, rendered as empty recommendation text rather than an error.
// POST /api/recommendations.
func (h *Handler) getRecommendations(c *gin.Context) {
	state := h.store.State()
	bmr := computeBMR(state.Profile)
	targets := computeTargets(state.Profile)
	stats := computeStats(state.Meals, state.Exercises, bmr, targets)

	recs, err := fetchRecommendations(c.Request.Context(), h.geminiBaseURL, state.Profile, bmr, stats, targets)
	if err != nil {
		log.Printf("[recommendations] error: %v", err)
		switch {
		case errors.Is(err, errMissingAPIKey):
			apiError(c, http.StatusBadRequest, "请先配置 API Key")
		default:
			apiError(c, http.StatusBadGateway, "建议生成失败，请稍后重试")
		}
		return
	}

	c.JSON(http.StatusOK, recs)
}
