// Package rating exposes rating updates and reads over HTTP.
package rating

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	ratingsvc "github.com/zhouzirui/mockview/backend/internal/service/rating"
	"github.com/zhouzirui/mockview/backend/pkg/utils"
)

const defaultLeaderboardSize = 20

// Handler 评分服务的HTTP处理器
type Handler struct {
	ratings *ratingsvc.Service
}

// New 创建评分处理器
func New(ratings *ratingsvc.Service) *Handler {
	return &Handler{ratings: ratings}
}

// RegisterRoutes 注册评分相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ratings/{subjectID}", func(r chi.Router) {
		r.Post("/", h.handleApply)
		r.Get("/", h.handleProfile)
		r.Get("/history", h.handleHistory)
	})
	r.Get("/leaderboard", h.handleLeaderboard)
}

type applyRequest struct {
	Score      *float64 `json:"score"`
	Difficulty string   `json:"difficulty"`
	Category   string   `json:"category"`
}

// handleApply 用一次面试得分直接更新评分
func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErr(r.Context(), w, fmt.Errorf("invalid request body: %w", errs.ErrInvalidArgument))
		return
	}
	if req.Score == nil {
		utils.RespondErr(r.Context(), w, fmt.Errorf("score is required: %w", errs.ErrInvalidArgument))
		return
	}

	difficulty, err := ratingsvc.ParseDifficulty(req.Difficulty)
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}

	result, err := h.ratings.Apply(r.Context(), chi.URLParam(r, "subjectID"), *req.Score, difficulty, req.Category)
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r, 0)
	if !ok {
		return
	}
	profile, err := h.ratings.Profile(r.Context(), chi.URLParam(r, "subjectID"), limit)
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r, 0)
	if !ok {
		return
	}
	subjectID := chi.URLParam(r, "subjectID")
	points, err := h.ratings.History(r.Context(), subjectID, limit)
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"subjectId": subjectID,
		"history":   points,
	})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r, defaultLeaderboardSize)
	if !ok {
		return
	}
	records, err := h.ratings.Leaderboard(r.Context(), limit)
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"entries": records})
}

func queryLimit(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		utils.RespondErr(r.Context(), w, fmt.Errorf("limit %q is not a number: %w", raw, errs.ErrInvalidArgument))
		return 0, false
	}
	return limit, true
}
