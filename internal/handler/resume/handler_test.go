package resume

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	resumesvc "github.com/zhouzirui/mockview/backend/internal/service/resume"
)

func upload(t *testing.T, r http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/resume/parse", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupRouter(maxBytes int64) *chi.Mux {
	r := chi.NewRouter()
	New(resumesvc.NewExtractor(maxBytes)).RegisterRoutes(r)
	return r
}

func TestParsePlainText(t *testing.T) {
	rec := upload(t, setupRouter(1024), "resume.txt", []byte("Jane Doe\n\n  Go engineer, <b>5 years</b>  "))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var doc resumesvc.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Jane Doe\nGo engineer, 5 years", doc.Text)
}

func TestParseRejectsBrokenPDF(t *testing.T) {
	rec := upload(t, setupRouter(1024), "resume.pdf", []byte("%PDF-1.7 truncated"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseRejectsOversizedUpload(t *testing.T) {
	rec := upload(t, setupRouter(32), "resume.txt", []byte(strings.Repeat("a", 64)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseRequiresMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/resume/parse", strings.NewReader(`{"text":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	setupRouter(1024).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
