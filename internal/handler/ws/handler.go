// Package ws carries interview turns over a websocket connection.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	interviewsvc "github.com/zhouzirui/mockview/backend/internal/service/interview"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
	"github.com/zhouzirui/mockview/backend/pkg/utils"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
	maxFrameSize = 64 << 10
)

// Handler WebSocket面试处理器
type Handler struct {
	engine   *interviewsvc.Engine
	upgrader websocket.Upgrader
	log      logger.Logger
}

// New 创建WebSocket处理器
func New(engine *interviewsvc.Engine) *Handler {
	return &Handler{
		engine: engine,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logger.Named("websocket"),
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// TextMessage 候选人的文本回答
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.engine.Get(r.Context(), sessionID)
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.pingLoop(ctx, conn)

	h.log.Info(ctx, "websocket connected", logger.String("session_id", sessionID))
	h.sendInfo(ctx, conn, sessionID, map[string]any{
		"type":          "connected",
		"status":        session.Status(),
		"turnCount":     session.TurnCount,
		"turnThreshold": session.TurnThreshold,
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn(ctx, "read error", logger.String("session_id", sessionID), logger.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(ctx, conn, "session mismatch")
			continue
		}
		h.handleMessage(ctx, conn, sessionID, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, sessionID string, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleTextMessage(ctx, conn, sessionID, msg.Data)
	case "end":
		h.handleEndMessage(ctx, conn, sessionID)
	default:
		h.sendError(ctx, conn, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) handleTextMessage(ctx context.Context, conn *websocket.Conn, sessionID string, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(ctx, conn, "invalid text payload")
		return
	}
	utterance := text.Text
	if strings.TrimSpace(utterance) == "" {
		h.sendError(ctx, conn, "text is required")
		return
	}

	h.sendInfo(ctx, conn, sessionID, map[string]any{"type": "user", "text": utterance})

	result, err := h.engine.AdvanceStream(ctx, sessionID, utterance, func(delta string) {
		if delta != "" {
			h.sendInfo(ctx, conn, sessionID, map[string]any{"type": "ai_delta", "text": delta})
		}
	})
	if err != nil {
		h.sendError(ctx, conn, errs.PublicMessage(err))
		return
	}

	h.sendInfo(ctx, conn, sessionID, map[string]any{
		"type":          "ai",
		"text":          result.Reply,
		"isFinal":       true,
		"ended":         result.Ended,
		"turnCount":     result.TurnCount,
		"turnThreshold": result.TurnThreshold,
	})
}

func (h *Handler) handleEndMessage(ctx context.Context, conn *websocket.Conn, sessionID string) {
	closing, err := h.engine.End(ctx, sessionID)
	if err != nil {
		h.sendError(ctx, conn, errs.PublicMessage(err))
		return
	}
	h.sendInfo(ctx, conn, sessionID, map[string]any{"type": "ended", "text": closing})
}

// sendInfo and sendError are only called from the read loop, so writes never overlap.
func (h *Handler) sendInfo(ctx context.Context, conn *websocket.Conn, sessionID string, data map[string]any) {
	h.write(ctx, conn, outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, message string) {
	h.write(ctx, conn, outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	})
}

func (h *Handler) write(ctx context.Context, conn *websocket.Conn, msg outgoingMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Debug(ctx, "write failed", logger.String("type", msg.Type), logger.Error(err))
	}
}

// pingLoop 定期发送ping消息；WriteControl 可以与 WriteJSON 并发调用
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
