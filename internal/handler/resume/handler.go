// Package resume accepts resume uploads and returns their text.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	resumesvc "github.com/zhouzirui/mockview/backend/internal/service/resume"
	"github.com/zhouzirui/mockview/backend/pkg/utils"
)

// multipartOverhead leaves room for boundaries and headers around the file part.
const multipartOverhead = 64 << 10

// Handler 简历解析的HTTP处理器
type Handler struct {
	extractor *resumesvc.Extractor
}

// New 创建简历处理器
func New(extractor *resumesvc.Extractor) *Handler {
	return &Handler{extractor: extractor}
}

// RegisterRoutes 注册简历相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/resume/parse", h.handleParse)
}

// handleParse 解析上传的简历（PDF或纯文本），字段名为 file
func (h *Handler) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.extractor.MaxBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(h.extractor.MaxBytes()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondErr(r.Context(), w, fmt.Errorf("resume exceeds %d bytes: %w", h.extractor.MaxBytes(), errs.ErrInvalidArgument))
			return
		}
		utils.RespondErr(r.Context(), w, fmt.Errorf("expected multipart form: %w", errs.ErrInvalidArgument))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondErr(r.Context(), w, fmt.Errorf("file field is required: %w", errs.ErrInvalidArgument))
		return
	}
	defer file.Close()

	data, err := h.extractor.Read(file)
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}

	var doc resumesvc.Document
	if isPDF(header.Filename, header.Header.Get("Content-Type"), data) {
		doc, err = h.extractor.ExtractPDF(r.Context(), data)
	} else {
		doc, err = h.extractor.ExtractText(data)
	}
	if err != nil {
		utils.RespondErr(r.Context(), w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, doc)
}

func isPDF(filename, contentType string, data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-")) ||
		strings.EqualFold(filepath.Ext(filename), ".pdf") ||
		strings.HasPrefix(contentType, "application/pdf")
}
