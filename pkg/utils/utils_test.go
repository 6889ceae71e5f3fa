package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/mockview/backend/internal/errs"
)

func TestRespondErr(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{fmt.Errorf("session x: %w", errs.ErrNotFound), http.StatusNotFound, "session x: not found"},
		{fmt.Errorf("ended: %w", errs.ErrInvalidState), http.StatusConflict, "ended: invalid state"},
		{errors.New("dial tcp 10.0.0.1:5432"), http.StatusInternalServerError, "internal error"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondErr(context.Background(), rec, tc.err)

		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var body ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.message, body.Error)
	}
}

func TestSendSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupSSEHeaders(rec)

	require.NoError(t, SendSSEEvent(rec, rec, "delta", map[string]string{"content": "hi"}))
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "event: delta\ndata: {\"content\":\"hi\"}\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)

	assert.Error(t, SendSSEEvent(rec, rec, "bad", make(chan int)))
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "use a < b && c", StripTags("<p>use a &lt; b && c</p>"))
	assert.Equal(t, "hello", StripTags("<script>alert(1)</script>hello"))
	assert.Equal(t, "R&D lead", StripTags("  <b>R&D</b> lead "))
}
