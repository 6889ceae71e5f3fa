package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	model "github.com/zhouzirui/mockview/backend/internal/model/interview"
	"github.com/zhouzirui/mockview/backend/internal/model/persona"
	"github.com/zhouzirui/mockview/backend/internal/service/evaluation"
	interviewsvc "github.com/zhouzirui/mockview/backend/internal/service/interview"
	"github.com/zhouzirui/mockview/backend/pkg/utils"
)

// maxBodyBytes bounds JSON bodies; resumes can be pasted inline.
const maxBodyBytes = 1 << 20

// Evaluator grades ended sessions.
type Evaluator interface {
	Evaluate(ctx context.Context, req evaluation.Request) (evaluation.Result, error)
}

// Handler 面试会话的HTTP处理器
type Handler struct {
	engine           *interviewsvc.Engine
	evaluator        Evaluator
	personas         persona.Store
	defaultThreshold int
}

// New 创建面试处理器；evaluator 为空时评估接口返回503
func New(engine *interviewsvc.Engine, evaluator Evaluator, personas persona.Store, defaultThreshold int) *Handler {
	if defaultThreshold <= 0 {
		defaultThreshold = interviewsvc.DefaultTurnThreshold
	}
	return &Handler{
		engine:           engine,
		evaluator:        evaluator,
		personas:         personas,
		defaultThreshold: defaultThreshold,
	}
}

// RegisterRoutes 注册面试相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/interviews", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Delete("/", h.handleDiscard)
			r.Get("/transcript", h.handleTranscript)
			r.Post("/turns", h.handleTurn)
			r.Post("/end", h.handleEnd)
			r.Post("/evaluate", h.handleEvaluate)
		})
	})
}

type createRequest struct {
	PresetID          string `json:"presetId"`
	Name              string `json:"name"`
	Age               string `json:"age"`
	Language          string `json:"language"`
	CompanyName       string `json:"companyName"`
	JobDescription    string `json:"jobDescription"`
	IntervieweeResume string `json:"intervieweeResume"`
	Style             string `json:"style"`
	TurnThreshold     *int   `json:"turnThreshold"`
}

type createResponse struct {
	SessionID     string               `json:"sessionId"`
	TurnThreshold int                  `json:"turnThreshold"`
	Persona       model.PersonaContext `json:"persona"`
}

// handleCreate 创建面试会话，presetId 提供的面试官资料会被请求中的字段覆盖
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := model.PersonaContext{
		Name:              req.Name,
		Age:               req.Age,
		Language:          req.Language,
		CompanyName:       req.CompanyName,
		JobDescription:    req.JobDescription,
		IntervieweeResume: req.IntervieweeResume,
		Style:             req.Style,
	}
	ctx, err := h.personas.Resolve(req.PresetID, ctx)
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}

	threshold := h.defaultThreshold
	if req.TurnThreshold != nil {
		threshold = *req.TurnThreshold
	}

	session, err := h.engine.Create(r.Context(), ctx, threshold)
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, createResponse{
		SessionID:     session.ID,
		TurnThreshold: session.TurnThreshold,
		Persona:       session.Persona,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.engine.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Summary())
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	messages, err := h.engine.Transcript(r.Context(), sessionID)
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  messages,
	})
}

// handleTurn 提交候选人的回答并返回面试官的下一句
func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decode(w, r, &req) {
		return
	}

	result, err := h.engine.Advance(r.Context(), chi.URLParam(r, "sessionID"), req.Message)
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	closing, err := h.engine.End(r.Context(), sessionID)
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"sessionId": sessionID,
		"closing":   closing,
	})
}

func (h *Handler) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Discard(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEvaluate 对已结束的面试打分并更新候选人的评分
func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if h.evaluator == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "evaluation unavailable")
		return
	}

	var req evaluation.Request
	if !decode(w, r, &req) {
		return
	}
	req.SessionID = chi.URLParam(r, "sessionID")

	result, err := h.evaluator.Evaluate(r.Context(), req)
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondErr(r.Context(), w, fmt.Errorf("invalid request body: %w", errs.ErrInvalidArgument))
		return false
	}
	return true
}
