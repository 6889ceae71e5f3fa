package stream

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	interviewsvc "github.com/zhouzirui/mockview/backend/internal/service/interview"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
	"github.com/zhouzirui/mockview/backend/pkg/utils"
)

// Handler streams interviewer replies via Server-Sent Events.
type Handler struct {
	engine *interviewsvc.Engine
	log    logger.Logger
}

// New creates a new stream handler
func New(engine *interviewsvc.Engine) *Handler {
	return &Handler{engine: engine, log: logger.Named("stream")}
}

// RegisterRoutes 注册SSE路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event         string `json:"event"`
	Content       string `json:"content,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`
	Ended         bool   `json:"ended,omitempty"`
	TurnCount     int    `json:"turnCount,omitempty"`
	TurnThreshold int    `json:"turnThreshold,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	message := r.URL.Query().Get("message")
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	if err := h.HandleStreamRequest(r.Context(), w, sessionID, message); err != nil {
		h.log.Warn(r.Context(), "stream request failed", logger.String("session_id", sessionID), logger.Error(err))
	}
}

// HandleStreamRequest advances the session and pushes start, delta, message and end events.
// Failures detected before the stream opens are answered as plain JSON errors.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, message string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return errStreamingUnsupported
	}

	session, err := h.engine.Get(ctx, sessionID)
	if err != nil {
		utils.RespondErr(ctx, w, err)
		return err
	}
	if session.Terminated {
		utils.RespondErr(ctx, w, errEnded)
		return errEnded
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	send := func(resp StreamResponse) {
		resp.SessionID = sessionID
		if err := utils.SendSSEEvent(w, flusher, resp.Event, resp); err != nil {
			h.log.Debug(ctx, "sse write failed", logger.String("event", resp.Event), logger.Error(err))
		}
	}

	send(StreamResponse{Event: "start"})

	result, err := h.engine.AdvanceStream(ctx, sessionID, message, func(delta string) {
		if delta != "" {
			send(StreamResponse{Event: "delta", Content: delta})
		}
	})
	if err != nil {
		send(StreamResponse{Event: "error", Error: errs.PublicMessage(err)})
		return err
	}

	send(StreamResponse{Event: "message", Content: result.Reply})
	send(StreamResponse{
		Event:         "end",
		Ended:         result.Ended,
		TurnCount:     result.TurnCount,
		TurnThreshold: result.TurnThreshold,
	})

	h.log.Debug(ctx, "stream completed", logger.String("session_id", sessionID), logger.Int("turn_count", result.TurnCount))
	return nil
}
