package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Compact(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "info"})
	require.NoError(t, err)

	logger.With("tree", "t1").Info("member created", "member", "m1", "name", "Ann Lee")
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "member created | tree=t1 member=m1 name=\"Ann Lee\"")
	assert.NotContains(t, out, "hidden")
}

func TestNew_JSONWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "debug", Format: "json"})
	require.NoError(t, err)

	ctx := WithRequestID(context.Background(), "abc123")
	logger.DebugContext(ctx, "loaded", "members", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "loaded", record["msg"])
	assert.Equal(t, "abc123", record["requestID"])
	assert.Equal(t, float64(3), record["members"])
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Options{Level: "loud"})
	require.Error(t, err)

	_, err = New(&bytes.Buffer{}, Options{Format: "xml"})
	require.Error(t, err)
}

func TestCompactHandler_SpecialKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCompactHandler(&buf, nil))

	logger.Warn("request failed", "requestID", "0123456789abcdef", "durationMs", int64(12), "error", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "req=01234567")
	assert.Contains(t, out, "duration=12ms")
	assert.Contains(t, out, `error="boom"`)
}

func TestCompactHandler_Group(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCompactHandler(&buf, nil)).WithGroup("http")

	logger.Info("done", "status", 200)
	assert.Contains(t, buf.String(), "http.status=200")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestGetRequestID(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Equal(t, "x", GetRequestID(WithRequestID(context.Background(), "x")))
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "debug", Format: "json"})
	require.NoError(t, err)

	var seen string
	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}))

	t.Run("generates request id", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/family-trees/x", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Len(t, seen, 36)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
		assert.Contains(t, buf.String(), `"msg":"request rejected"`)
		assert.Contains(t, buf.String(), `"status":404`)
	})

	t.Run("keeps incoming request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "abc123", seen)
		assert.Equal(t, "abc123", rec.Header().Get(RequestIDHeader))
	})
}
