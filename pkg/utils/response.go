package utils

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
)

// ErrorBody 是所有错误响应的JSON结构
type ErrorBody struct {
	Error string `json:"error"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Get().Warn(context.Background(), "failed to encode response", logger.Error(err))
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorBody{Error: message})
}

// RespondErr 根据错误类型选择状态码，内部错误不向客户端暴露细节
func RespondErr(ctx context.Context, w http.ResponseWriter, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Error(ctx, "request failed", logger.Int("status", status), logger.Error(err))
	}
	RespondError(w, status, errs.PublicMessage(err))
}
