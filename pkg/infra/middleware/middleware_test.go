package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	logctx "github.com/kart-io/catalog-chat/pkg/infra/logger"
)

func newTestEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	return r
}

func TestRequestID_GeneratesID(t *testing.T) {
	r := newTestEngine(RequestID())

	var fromCtx string
	r.GET("/test", func(c *gin.Context) {
		fromCtx = GetRequestID(c.Request.Context())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	requestID := w.Header().Get(HeaderXRequestID)
	if len(requestID) != 26 {
		t.Errorf("Expected ULID request ID of length 26, got %q", requestID)
	}
	if fromCtx != requestID {
		t.Errorf("Expected context request ID %q, got %q", requestID, fromCtx)
	}
}

func TestRequestID_PreservesExistingID(t *testing.T) {
	r := newTestEngine(RequestID())
	r.GET("/test", func(_ *gin.Context) {})

	existingID := "existing-request-id-12345"
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderXRequestID, existingID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(HeaderXRequestID); got != existingID {
		t.Errorf("Expected request ID %s, got %s", existingID, got)
	}
}

func TestRequestID_ReplacesMalformedID(t *testing.T) {
	r := newTestEngine(RequestID())
	r.GET("/test", func(_ *gin.Context) {})

	for _, bad := range []string{"has space", "tab\tid", strings.Repeat("x", 129)} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderXRequestID, bad)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if got := w.Header().Get(HeaderXRequestID); got == bad || len(got) != 26 {
			t.Errorf("request id %q should be replaced by a ULID, got %q", bad, got)
		}
	}
}

func TestRequestID_ExtractsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	r := newTestEngine(RequestID())

	var traceID string
	var fields []any
	r.GET("/test", func(c *gin.Context) {
		traceID = trace.SpanContextFromContext(c.Request.Context()).TraceID().String()
		fields = logctx.Fields(c.Request.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	req.Header.Set(HeaderXRequestID, "req-trace")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if traceID != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("Expected trace id from traceparent, got %s", traceID)
	}
	want := []any{
		logctx.FieldRequestID, "req-trace",
		logctx.FieldTraceID, "4bf92f3577b34da6a3ce929d0e0e4736",
		logctx.FieldSpanID, "00f067aa0ba902b7",
	}
	if fmt.Sprint(fields) != fmt.Sprint(want) {
		t.Errorf("Expected log fields %v, got %v", want, fields)
	}
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name      string
		withStack bool
	}{
		{name: "without stack", withStack: false},
		{name: "with stack", withStack: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestEngine(Recovery(tt.withStack))
			r.GET("/panic", func(_ *gin.Context) { panic("boom") })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("Expected status 500, got %d", w.Code)
			}
			body := w.Body.String()
			if !strings.Contains(body, "panic: boom") {
				t.Errorf("Expected panic message in body, got %s", body)
			}
			if hasStack := strings.Contains(body, "goroutine"); hasStack != tt.withStack {
				t.Errorf("Expected stack in body = %v, got %v", tt.withStack, hasStack)
			}
		})
	}
}

func TestLogger_PassesThrough(t *testing.T) {
	r := newTestEngine(RequestID(), Logger("/healthz"))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for path, want := range map[string]int{"/healthz": http.StatusOK, "/fail": http.StatusBadGateway} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Errorf("%s: expected status %d, got %d", path, want, w.Code)
		}
	}
}
