package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/internal/handlers"
	"github.com/restock-systems/stockwatch/internal/models"
)

type stubPipeline struct{}

func (stubPipeline) Analyze(context.Context, *models.WebhookPayload) (*models.AnalysisResult, error) {
	return &models.AnalysisResult{Message: "Analysis Done", Status: models.StatusSafe}, nil
}

func (stubPipeline) HealthReport(context.Context, string) (*models.HealthReport, error) {
	return &models.HealthReport{Status: models.StatusSafe, Alerts: []models.AlertEntry{}}, nil
}

func (stubPipeline) Push(context.Context, string, *models.PushRequest) (*models.PushResponse, error) {
	panic("dispatcher exploded")
}

func (stubPipeline) OrderText(context.Context, *models.OrderTextRequest) (*models.OrderTextResponse, error) {
	return &models.OrderTextResponse{Message: "ok"}, nil
}

func newTestRouter() http.Handler {
	h := handlers.NewHandler(stubPipeline{}, logging.Discard())
	return NewRouter(h, RouterConfig{MetricsEnabled: true}, logging.Discard())
}

func TestRouterCORS(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{PathStockHealthReport, PathGenerateOrderText} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "https://app.restock.id")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code, path)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), path)
		assert.Equal(t, "authorization, x-client-info, apikey, content-type", rec.Header().Get("Access-Control-Allow-Headers"), path)
	}

	req := httptest.NewRequest(http.MethodPost, PathAnalyzeStockHealth, strings.NewReader(`{}`))
	req.Header.Set("Origin", "https://app.restock.id")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterReportIsReachable(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathStockHealthReport, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"status":"SAFE","agent_message":"","alerts":[]}`, rec.Body.String())
}

func TestRouterRecoversPanics(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, PathPushNotification, strings.NewReader(`{"title":"t","body":"b"}`))
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestRouterMetrics(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
