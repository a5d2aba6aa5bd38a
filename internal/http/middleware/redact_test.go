package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func withCapturedLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf) // plain JSON lines
	return &buf
}

func TestLogger_Redactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/people/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// Raw query is redacted with regex (no parsing), so simple occurrences are enough
	q := "email=a.b+tag@example.com&phone=+1-555-123-4567&id=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodGet, "/people/123?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Custom", "email a@b.com id=123e4567-e89b-12d3-a456-426614174000 phone 555-123-4567")
	req.Header.Set("X-Request-ID", "rid-req")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	logs := buf.String()
	if !strings.Contains(logs, `"level":"info"`) {
		t.Fatalf("expected info log, got: %s", logs)
	}
	if !strings.Contains(logs, `"route":"/people/:id"`) || !strings.Contains(logs, `"resource":"people"`) {
		t.Fatalf("expected route template and resource kind, got: %s", logs)
	}
	if !strings.Contains(logs, `"request_id":"rid-req"`) {
		t.Fatalf("expected propagated request_id, got: %s", logs)
	}
	if !strings.Contains(logs, `[REDACTED:email]`) || !strings.Contains(logs, `[REDACTED:phone]`) || !strings.Contains(logs, `[REDACTED:id]`) {
		t.Fatalf("expected query redactions, got: %s", logs)
	}
	if strings.Contains(logs, "example.com") || strings.Contains(logs, "topsecret") || strings.Contains(logs, "shhh") {
		t.Fatalf("sensitive value leaked: %s", logs)
	}
	for _, h := range []string{"Authorization", "Cookie", "X-Api-Key"} {
		if !strings.Contains(logs, `"`+h+`":"[REDACTED]"`) {
			t.Fatalf("%s must be masked: %s", h, logs)
		}
	}
	if !strings.Contains(logs, `"X-Custom":"email [REDACTED:email] id=[REDACTED:id] phone [REDACTED:phone]"`) {
		t.Fatalf("expected redacted X-Custom header, got: %s", logs)
	}
}

func TestLogger_RequestIDHeaderFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	// No RequestID() middleware: the incoming header is used.
	r := gin.New()
	r.Use(Logger(RedactOptions{}))
	r.GET("/error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	req := httptest.NewRequest(http.MethodGet, "/error", nil)
	req.Header.Set("X-Request-ID", "rid-err")
	r.ServeHTTP(httptest.NewRecorder(), req)

	logs := buf.String()
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, `"request_id":"rid-err"`) {
		t.Fatalf("error log not found or missing request_id fallback: %s", logs)
	}
}

func TestRedactor_StringAndHeaders(t *testing.T) {
	red := newRedactor(RedactOptions{MaskHeaders: []string{"  X-Token ", ""}})

	if got := red.String(""); got != "" {
		t.Fatalf("empty input changed: %q", got)
	}
	if got := red.String("name=Ana&city=Lisbon"); got != "name=Ana&city=Lisbon" {
		t.Fatalf("plain query altered: %q", got)
	}

	h := http.Header{}
	h.Set("X-Token", "t")
	h.Set("Set-Cookie", "a=b")
	h.Add("Accept", "application/json")
	h.Add("Accept", "text/plain")

	got := red.Headers(h)
	if got["X-Token"] != "[REDACTED]" || got["Set-Cookie"] != "[REDACTED]" {
		t.Fatalf("masking failed: %v", got)
	}
	if got["Accept"] != "application/json, text/plain" {
		t.Fatalf("multi-value join failed: %q", got["Accept"])
	}
}
