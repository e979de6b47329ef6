package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/masstrack/internal/observability/context"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = priestcontext.WithPriestID(ctx, snowflake.ID(42))

	WithContext(ctx, zap.New(core)).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-1" {
		t.Fatalf("expected request_id req-1, got %v", fields["request_id"])
	}
	if fields["priest_id"] != "42" {
		t.Fatalf("expected priest_id 42, got %v", fields["priest_id"])
	}
}

func TestGinMiddlewareEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.GET("/api/ping", func(c *gin.Context) { c.Status(http.StatusUnauthorized) })

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-Request-Id", "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "abc" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
	warn := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(warn) != 1 || warn[0].Message != "http_request" {
		t.Fatalf("expected one warn http_request entry, got %v", logs.All())
	}
}

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"select * from users":                          "SELECT",
		"WITH x AS (SELECT 1) UPDATE bulk_intentions":  "SELECT",
		"  update bulk_intentions set current_count=1": "UPDATE",
		"": "UNKNOWN",
	}
	for sql, want := range cases {
		if got := operationFromSQL(sql); got != want {
			t.Fatalf("operationFromSQL(%q) = %q, want %q", sql, got, want)
		}
	}
}

func TestWithContextOmitsMissingFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	WithContext(context.Background(), zap.New(core)).Info("bare")

	fields := logs.All()[0].ContextMap()
	if _, ok := fields["priest_id"]; ok {
		t.Fatalf("expected no priest_id field, got %v", fields)
	}
	if _, ok := fields["trace_id"]; ok {
		t.Fatalf("expected no trace_id field, got %v", fields)
	}
}

func TestRequestLevel(t *testing.T) {
	cases := []struct {
		route  string
		status int
		want   zapcore.Level
	}{
		{"/health", http.StatusOK, zapcore.DebugLevel},
		{"/api/bulk-intentions/:id", http.StatusForbidden, zapcore.WarnLevel},
		{"/api/auth/login", http.StatusTooManyRequests, zapcore.WarnLevel},
		{"/api/dashboard", http.StatusInternalServerError, zapcore.ErrorLevel},
		{"/api/dashboard", http.StatusOK, zapcore.InfoLevel},
	}
	for _, tc := range cases {
		if got := requestLevel(tc.route, tc.status); got != tc.want {
			t.Fatalf("requestLevel(%q, %d) = %v, want %v", tc.route, tc.status, got, tc.want)
		}
	}
}
