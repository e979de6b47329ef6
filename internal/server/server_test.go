package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	dashboardservice "github.com/smallbiznis/masstrack/internal/dashboard/service"
	"github.com/smallbiznis/masstrack/internal/observability"
	"github.com/smallbiznis/masstrack/internal/report"
	"github.com/smallbiznis/masstrack/internal/server"
	"github.com/smallbiznis/masstrack/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	h      *testkit.Harness
	engine *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := testkit.New(t)

	dashboard := dashboardservice.NewService(dashboardservice.Params{
		Log:           h.Log,
		Clock:         h.Clock,
		Thresholds:    h.Thresholds,
		Bulk:          h.Bulk,
		Celebrations:  h.Celebrations,
		Intentions:    h.Intentions,
		Obligations:   h.Obligations,
		Notifications: h.Notifications,
	})
	reports := report.NewService(report.Params{
		Log:          h.Log,
		Clock:        h.Clock,
		Users:        h.Auth,
		Authz:        h.Authz,
		Celebrations: h.Celebrations,
		Obligations:  h.Obligations,
		Renderer:     report.NewPDFRenderer(),
	})

	srv := server.NewServer(server.ServerParams{
		Gin:             server.NewEngine(observability.Config{}, nil),
		Cfg:             h.Config,
		Clock:           h.Clock,
		Authsvc:         h.Auth,
		IntentionSvc:    h.Intentions,
		BulkSvc:         h.Bulk,
		CelebrationSvc:  h.Celebrations,
		ObligationSvc:   h.Obligations,
		NotificationSvc: h.Notifications,
		DashboardSvc:    dashboard,
		ReportSvc:       reports,
	})
	return &testServer{h: h, engine: srv.Engine()}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username":        username,
		"email":           username + "@parish.example",
		"password":        testkit.Password,
		"full_name":       "Fr. " + username,
		"ordination_date": "2001-06-29",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]any)
	tokens := data["tokens"].(map[string]any)
	return tokens["access_token"].(string)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "marco")

	rec := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "marco", user["username"])

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "marco", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "marco@parish.example", "password": testkit.Password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	refresh := decode(t, rec)["data"].(map[string]any)["tokens"].(map[string]any)["refresh_token"].(string)

	rec = s.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]any{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/auth/verify-token", "", map[string]any{"token": token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["valid"])

	rec = s.do(t, http.MethodPost, "/api/auth/verify-token", "", map[string]any{"token": "garbage"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["valid"])

	rec = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username":  "marco",
		"email":     "other@parish.example",
		"password":  testkit.Password,
		"full_name": "Fr. Other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPIRequiresBearerToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/mass-intentions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/mass-intentions", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)["error"].(map[string]any)
	assert.Equal(t, "unauthorized", body["type"])
}

func TestIntentionCelebrationAndObligation(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "paolo")

	rec := s.do(t, http.MethodPost, "/api/mass-intentions", token, map[string]any{
		"intention_type": "personal",
		"title":          "For my family",
		"source":         "individual",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	intentionID := decode(t, rec)["data"].(map[string]any)["id"].(string)

	rec = s.do(t, http.MethodPost, "/api/mass-celebrations", token, map[string]any{
		"celebration_date": "2024-03-10",
		"intention_id":     intentionID,
		"location":         "St. Anne",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "personal", result["kind"])

	rec = s.do(t, http.MethodGet, "/api/monthly-obligations/current", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	current := decode(t, rec)["data"].(map[string]any)
	assert.EqualValues(t, 1, current["completed_count"])

	rec = s.do(t, http.MethodGet, "/api/mass-celebrations/today", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["data"], 1)

	rec = s.do(t, http.MethodGet, "/api/mass-celebrations/search?q=anne", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/mass-intentions", token, map[string]any{
		"intention_type": "weekly",
		"title":          "x",
		"source":         "parish",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_intention_type", decode(t, rec)["error"].(map[string]any)["code"])
}

func TestBulkCelebrateAndPause(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "luca")

	rec := s.do(t, http.MethodPost, "/api/mass-intentions", token, map[string]any{
		"intention_type": "bulk",
		"title":          "Gregorian thirty",
		"source":         "province",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	intentionID := decode(t, rec)["data"].(map[string]any)["id"].(string)

	rec = s.do(t, http.MethodPost, "/api/bulk-intentions", token, map[string]any{
		"intention_id": intentionID,
		"total_count":  30,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bulkID := decode(t, rec)["data"].(map[string]any)["id"].(string)

	rec = s.do(t, http.MethodPost, "/api/bulk-intentions/"+bulkID+"/celebrate", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	celebrated := decode(t, rec)["data"].(map[string]any)
	assert.EqualValues(t, 29, celebrated["remaining_count"])
	assert.EqualValues(t, 30, celebrated["new_serial_number"])

	rec = s.do(t, http.MethodPost, "/api/bulk-intentions/"+bulkID+"/pause", token, map[string]any{"reason": "travel"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/bulk-intentions/"+bulkID+"/pause", token, map[string]any{"reason": "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/bulk-intentions/"+bulkID+"/celebrate", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/bulk-intentions/"+bulkID+"/resume", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/bulk-intentions/"+bulkID+"/pause-history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["data"], 2)

	other := s.register(t, "giorgio")
	rec = s.do(t, http.MethodGet, "/api/bulk-intentions/"+bulkID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLowCountUsesConfiguredThreshold(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "marco")

	thresholds := s.h.Thresholds.Get()
	thresholds.BulkWarning, thresholds.BulkCritical = 7, 3
	require.NoError(t, s.h.Thresholds.Store(thresholds))

	rec := s.do(t, http.MethodGet, "/api/bulk-intentions/low-count", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 7, decode(t, rec)["threshold"])

	rec = s.do(t, http.MethodGet, "/api/bulk-intentions/low-count?threshold=20", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 20, decode(t, rec)["threshold"])
}

func TestNotificationsAndDashboard(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "pietro")

	rec := s.do(t, http.MethodPost, "/api/notifications", token, map[string]any{
		"notification_type": "info",
		"title":             "Retreat",
		"message":           "Annual retreat next week",
		"priority":          "high",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/notifications/unread-count", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["data"].(map[string]any)["unread_count"])

	rec = s.do(t, http.MethodPost, "/api/notifications/mark-all-read", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/dashboard/calendar?year=2024&month=3", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/dashboard/statistics?year=2024&month=13", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMonthlyRegisterPDF(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "andrea")

	rec := s.do(t, http.MethodGet, "/api/mass-celebrations/monthly-report.pdf?year=2024&month=3", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, report.ContentTypePDF, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "mass-register-2024-03.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestBadPathAndUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "simone")

	rec := s.do(t, http.MethodGet, "/api/mass-intentions/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/mass-intentions/123456", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/nothing-here", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
