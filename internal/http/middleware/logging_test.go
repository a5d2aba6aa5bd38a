package middleware

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/buger/jsonparser"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// accessLines returns the "request" log lines, one JSON object each.
func accessLines(t *testing.T, buf *bytes.Buffer) [][]byte {
	t.Helper()
	var out [][]byte
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		line := append([]byte(nil), sc.Bytes()...)
		if msg, _ := jsonparser.GetString(line, "message"); msg == "request" {
			out = append(out, line)
		}
	}
	return out
}

func str(line []byte, key string) string {
	v, _ := jsonparser.GetString(line, key)
	return v
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/people", func(c *gin.Context) {
		assert.NotEmpty(t, asString(c.Value(requestIDKey)))
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/people", nil))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	for _, hdr := range []string{strings.ToLower(requestIDHeader), requestIDHeader} {
		w = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/people", nil)
		req.Header.Set(hdr, "abc-123")
		r.ServeHTTP(w, req)
		assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader), hdr)
	}
}

func TestLogger_LevelsRouteAndResource(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger(RedactOptions{}))
	r.GET("/keyboards/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("storage down"))
		c.Status(http.StatusBadRequest)
	})

	for _, p := range []string{"/keyboards/7", "/missing", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	lines := accessLines(t, buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "info", str(lines[0], "level"))
	assert.Equal(t, "/keyboards/:id", str(lines[0], "route"))
	assert.Equal(t, "/keyboards/7", str(lines[0], "path"))
	assert.Equal(t, "keyboards", str(lines[0], "resource"))
	status, _ := jsonparser.GetInt(lines[0], "status")
	assert.EqualValues(t, http.StatusOK, status)

	assert.Equal(t, "warn", str(lines[1], "level"))
	assert.Equal(t, unmatchedRoute, str(lines[1], "route"))
	assert.Equal(t, "/missing", str(lines[1], "path"))
	assert.Empty(t, str(lines[1], "resource"))

	assert.Equal(t, "error", str(lines[2], "level"))
	assert.Contains(t, str(lines[2], "errors"), "storage down")
}

func TestLogger_ReplayedFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	lookup := func(_ context.Context, _, key string, _ time.Time) (bool, error) {
		return key == "seen-key-123", nil
	}
	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger(RedactOptions{}))
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.POST("/people", func(c *gin.Context) { c.Status(http.StatusCreated) })

	for _, key := range []string{"", "seen-key-123", "fresh-key-456"} {
		req := httptest.NewRequest(http.MethodPost, "/people", nil)
		if key != "" {
			req.Header.Set(HeaderIdempotencyKey, key)
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	lines := accessLines(t, buf)
	require.Len(t, lines, 3)

	_, _, _, err := jsonparser.Get(lines[0], "replayed")
	assert.ErrorIs(t, err, jsonparser.KeyPathNotFoundError, "no key, no flag")
	replayed, _ := jsonparser.GetBoolean(lines[1], "replayed")
	assert.True(t, replayed)
	replayed, err = jsonparser.GetBoolean(lines[2], "replayed")
	require.NoError(t, err)
	assert.False(t, replayed)
}

func TestRecovery_PanicsToJSON500AndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger(RedactOptions{}))
	r.Use(Recovery())
	r.GET("/people", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/people", nil)
	req.Header.Set(requestIDHeader, "rid-panic")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := w.Body.Bytes()
	assert.Equal(t, "internal_error", str(body, "code"))
	assert.Equal(t, "internal error", str(body, "message"))
	assert.Equal(t, "rid-panic", str(body, "request_id"))

	out := buf.String()
	assert.Contains(t, out, `"message":"panic recovered"`)
	assert.Contains(t, out, `"panic":"kaboom"`)
	// Logged through the request-scoped logger.
	assert.Contains(t, out, `"resource":"people"`)
}

func TestRecovery_PanicAfterWrite_NoJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger(RedactOptions{}))
	r.Use(Recovery())
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial-body")
		panic("late kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))

	assert.NotContains(t, w.Body.String(), "internal_error")
	assert.NotContains(t, strings.ToLower(w.Header().Get("Content-Type")), "application/json")
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestLoggerFrom_FallbackAndRequestScoped(t *testing.T) {
	gin.SetMode(gin.TestMode)

	buf := captureLogger(t)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/people", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("custom")
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/people", nil))
	assert.Contains(t, buf.String(), `"message":"custom"`)
	assert.NotContains(t, buf.String(), `"request_id"`)

	buf = captureLogger(t)
	r = gin.New()
	r.Use(RequestID())
	r.Use(Logger(RedactOptions{}))
	r.GET("/people", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("custom2")
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/people", nil))
	assert.Contains(t, buf.String(), `"message":"custom2"`)
	assert.Contains(t, buf.String(), `"request_id"`)
}

func TestHelpers_asString_and_truncate(t *testing.T) {
	assert.Equal(t, "x", asString("x"))
	assert.Empty(t, asString(123))
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "abcde…", truncate("abcdefgh", 5))
	assert.Equal(t, "abc", truncate("abc", 0))
}
