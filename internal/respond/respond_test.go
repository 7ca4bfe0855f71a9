package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorEnvelope(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rec := httptest.NewRecorder()

	Error(rec, logger, http.StatusUnauthorized, "Unauthorized - no token provided")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Unauthorized - no token provided", body["message"])
	assert.Empty(t, hook.AllEntries())
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestJSONLogsWriteFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	w := brokenWriter{httptest.NewRecorder()}

	JSON(w, logger, http.StatusOK, map[string]any{"success": true})

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.True(t, errors.Is(entry.Data[logrus.ErrorKey].(error), io.ErrClosedPipe))
	assert.Equal(t, http.StatusOK, entry.Data["status"])
}

func TestJSONLogsUnencodableBody(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rec := httptest.NewRecorder()

	JSON(rec, logger, http.StatusOK, map[string]any{"ch": make(chan int)})

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "failed to write response body", hook.LastEntry().Message)
}
