// Package resume turns uploaded resumes into plain text for the interviewer persona.
package resume

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
	"github.com/zhouzirui/mockview/backend/pkg/utils"
)

// DefaultMaxBytes caps uploads when no limit is configured.
const DefaultMaxBytes int64 = 5 << 20

// Document is the text pulled out of a resume.
type Document struct {
	Text      string `json:"text"`
	PageCount int    `json:"pageCount"`
}

// Extractor reads PDF resumes and plain text.
type Extractor struct {
	maxBytes int64
	log      logger.Logger
}

// NewExtractor returns an Extractor accepting at most maxBytes per upload.
func NewExtractor(maxBytes int64) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Extractor{
		maxBytes: maxBytes,
		log:      logger.Named("resume"),
	}
}

// MaxBytes is the upload limit.
func (e *Extractor) MaxBytes() int64 { return e.maxBytes }

// Read drains r, rejecting bodies over the limit.
func (e *Extractor) Read(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read resume: %w", err)
	}
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("resume exceeds %d bytes: %w", e.maxBytes, errs.ErrInvalidArgument)
	}
	return data, nil
}

// ExtractPDF returns the cleaned text of every readable page.
func (e *Extractor) ExtractPDF(ctx context.Context, data []byte) (doc Document, err error) {
	if len(data) == 0 {
		return Document{}, fmt.Errorf("resume is empty: %w", errs.ErrInvalidArgument)
	}
	if int64(len(data)) > e.maxBytes {
		return Document{}, fmt.Errorf("resume exceeds %d bytes: %w", e.maxBytes, errs.ErrInvalidArgument)
	}

	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn(ctx, "pdf reader panicked", logger.Any("panic", r))
			doc, err = Document{}, fmt.Errorf("unreadable pdf: %w", errs.ErrInvalidArgument)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("open pdf: %v: %w", err, errs.ErrInvalidArgument)
	}

	var b strings.Builder
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.log.Debug(ctx, "skipping unreadable page", logger.Int("page", i), logger.Error(err))
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	text := e.Sanitize(b.String())
	if text == "" {
		return Document{}, fmt.Errorf("no text content found in pdf: %w", errs.ErrInvalidArgument)
	}
	return Document{Text: text, PageCount: total}, nil
}

// ExtractText accepts a plain-text resume.
func (e *Extractor) ExtractText(data []byte) (Document, error) {
	if int64(len(data)) > e.maxBytes {
		return Document{}, fmt.Errorf("resume exceeds %d bytes: %w", e.maxBytes, errs.ErrInvalidArgument)
	}
	text := e.Sanitize(string(data))
	if text == "" {
		return Document{}, fmt.Errorf("resume is empty: %w", errs.ErrInvalidArgument)
	}
	return Document{Text: text, PageCount: 1}, nil
}

// Sanitize strips markup and normalizes whitespace.
func (e *Extractor) Sanitize(text string) string {
	return CleanText(utils.StripTags(text))
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
