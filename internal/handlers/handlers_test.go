package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/internal/models"
)

type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) Analyze(ctx context.Context, payload *models.WebhookPayload) (*models.AnalysisResult, error) {
	args := m.Called(ctx, payload)
	res, _ := args.Get(0).(*models.AnalysisResult)
	return res, args.Error(1)
}

func (m *mockPipeline) HealthReport(ctx context.Context, token string) (*models.HealthReport, error) {
	args := m.Called(ctx, token)
	res, _ := args.Get(0).(*models.HealthReport)
	return res, args.Error(1)
}

func (m *mockPipeline) Push(ctx context.Context, token string, req *models.PushRequest) (*models.PushResponse, error) {
	args := m.Called(ctx, token, req)
	res, _ := args.Get(0).(*models.PushResponse)
	return res, args.Error(1)
}

func (m *mockPipeline) OrderText(ctx context.Context, req *models.OrderTextRequest) (*models.OrderTextResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*models.OrderTextResponse)
	return res, args.Error(1)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAnalyzeStockHealth(t *testing.T) {
	delivered := true

	tests := []struct {
		name       string
		method     string
		body       string
		setup      func(m *mockPipeline)
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "malformed json is a no-op",
			method:     http.MethodPost,
			body:       `{"record": `,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"message": "No data"},
		},
		{
			name:       "empty body is a no-op",
			method:     http.MethodPost,
			body:       ``,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"message": "No data"},
		},
		{
			name:   "missing record is a no-op",
			method: http.MethodPost,
			body:   `{"type":"DELETE"}`,
			setup: func(m *mockPipeline) {
				m.On("Analyze", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: payload has no record", models.ErrValidation))
			},
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"message": "No data"},
		},
		{
			name:   "safe",
			method: http.MethodPost,
			body:   `{"record":{"id":1,"name":"Rice","current_stock":50,"min_stock":5}}`,
			setup: func(m *mockPipeline) {
				m.On("Analyze", mock.Anything, mock.MatchedBy(func(p *models.WebhookPayload) bool {
					return p.Record != nil && p.Record.ID == "1" && *p.Record.CurrentStock == 50
				})).Return(&models.AnalysisResult{Message: "Analysis Done", Status: "SAFE"}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"message": "Analysis Done", "status": "SAFE"},
		},
		{
			name:   "critical",
			method: http.MethodPost,
			body:   `{"record":{"id":42,"name":"Sugar","current_stock":2,"min_stock":5}}`,
			setup: func(m *mockPipeline) {
				m.On("Analyze", mock.Anything, mock.Anything).Return(&models.AnalysisResult{
					Message:      "Analysis Done",
					Status:       "CRITICAL",
					Notification: &models.Notification{Title: "ALERT STOCK", Body: "Bos, Sugar sisa 2 kg. Restock segera!"},
					Delivered:    &delivered,
				}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody: map[string]any{
				"message":      "Analysis Done",
				"status":       "CRITICAL",
				"notification": map[string]any{"title": "ALERT STOCK", "body": "Bos, Sugar sisa 2 kg. Restock segera!"},
				"delivered":    true,
			},
		},
		{
			name:   "missing configuration",
			method: http.MethodPost,
			body:   `{"record":{"id":42,"current_stock":2}}`,
			setup: func(m *mockPipeline) {
				m.On("Analyze", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: missing genai.api_key", models.ErrConfiguration))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"error": "configuration error: missing genai.api_key"},
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			wantStatus: http.StatusMethodNotAllowed,
			wantBody:   map[string]any{"error": "method not allowed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockPipeline{}
			if tt.setup != nil {
				tt.setup(m)
			}
			h := NewHandler(m, logging.Discard())

			req := httptest.NewRequest(tt.method, "/functions/v1/analyze-stock-health", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.AnalyzeStockHealth(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantBody, decode(t, rec))
			m.AssertExpectations(t)
		})
	}
}

func TestStockHealthReport(t *testing.T) {
	tests := []struct {
		name       string
		auth       string
		wantToken  string
		err        error
		wantStatus int
	}{
		{"ok", "Bearer user-token", "user-token", nil, http.StatusOK},
		{"missing token", "", "", fmt.Errorf("%w: missing bearer token", models.ErrAuth), http.StatusUnauthorized},
		{"data store down", "Bearer t", "t", fmt.Errorf("%w: data store returned 503", models.ErrExternalService), http.StatusBadGateway},
		{"misconfigured", "Bearer t", "t", fmt.Errorf("%w: missing datastore.url", models.ErrConfiguration), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockPipeline{}
			if tt.err != nil {
				m.On("HealthReport", mock.Anything, tt.wantToken).Return(nil, tt.err)
			} else {
				m.On("HealthReport", mock.Anything, tt.wantToken).Return(&models.HealthReport{
					Status:       "WARNING",
					AgentMessage: "Bos, 1 barang hampir habis.",
					Alerts:       []models.AlertEntry{{Name: "Eggs", RemainingQty: 1, DaysRemaining: 1, Severity: "CRITICAL"}},
				}, nil)
			}

			req := httptest.NewRequest(http.MethodGet, "/functions/v1/stock-health-report", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			NewHandler(m, logging.Discard()).StockHealthReport(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), body["error"])
				return
			}
			assert.Equal(t, "WARNING", body["status"])
			assert.Equal(t, []any{map[string]any{
				"name": "Eggs", "sisa": float64(1), "habis_dalam": float64(1), "severity": "CRITICAL",
			}}, body["alerts"])
		})
	}
}

func TestPushNotification(t *testing.T) {
	t.Run("delivered", func(t *testing.T) {
		m := &mockPipeline{}
		m.On("Push", mock.Anything, "service-role", &models.PushRequest{
			Title: "t", Body: "b", Data: map[string]any{"product_id": "42"},
		}).Return(&models.PushResponse{Success: true, FCMResponse: &models.DeliveryResult{Name: "projects/p/messages/1"}}, nil)

		req := httptest.NewRequest(http.MethodPost, "/functions/v1/push-notification",
			strings.NewReader(`{"title":"t","body":"b","data":{"product_id":"42"}}`))
		req.Header.Set("Authorization", "Bearer service-role")
		rec := httptest.NewRecorder()
		NewHandler(m, logging.Discard()).PushNotification(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{
			"success":      true,
			"fcm_response": map[string]any{"name": "projects/p/messages/1"},
		}, decode(t, rec))
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", fmt.Errorf("%w: title and body required", models.ErrValidation), http.StatusBadRequest},
		{"unauthorized", fmt.Errorf("%w: service key required", models.ErrAuth), http.StatusUnauthorized},
		{"gateway rejected", &models.DeliveryError{StatusCode: 404, Body: "not found"}, http.StatusBadGateway},
		{"exchange failed", fmt.Errorf("%w: invalid_grant", models.ErrAuthExchange), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockPipeline{}
			m.On("Push", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/functions/v1/push-notification", strings.NewReader(`{"title":"t"}`))
			rec := httptest.NewRecorder()
			NewHandler(m, logging.Discard()).PushNotification(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, decode(t, rec), "error")
		})
	}

	t.Run("unreadable body", func(t *testing.T) {
		m := &mockPipeline{}
		req := httptest.NewRequest(http.MethodPost, "/functions/v1/push-notification", strings.NewReader(`nope`))
		rec := httptest.NewRecorder()
		NewHandler(m, logging.Discard()).PushNotification(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, map[string]any{"error": "Title and Body required"}, decode(t, rec))
		m.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGenerateOrderText(t *testing.T) {
	m := &mockPipeline{}
	m.On("OrderText", mock.Anything, mock.MatchedBy(func(r *models.OrderTextRequest) bool {
		return len(r.Items) == 1 && r.SupplierName == "Toko Makmur"
	})).Return(&models.OrderTextResponse{Message: "Halo Toko Makmur"}, nil)
	m.On("OrderText", mock.Anything, mock.MatchedBy(func(r *models.OrderTextRequest) bool {
		return len(r.Items) == 0
	})).Return(nil, fmt.Errorf("%w: daftar item belanja wajib ada", models.ErrValidation))

	h := NewHandler(m, logging.Discard())

	req := httptest.NewRequest(http.MethodPost, "/functions/v1/generate-order-text",
		strings.NewReader(`{"items":[{"name":"Gula","qty":10,"unit":"kg"}],"supplier_name":"Toko Makmur"}`))
	rec := httptest.NewRecorder()
	h.GenerateOrderText(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"message": "Halo Toko Makmur"}, decode(t, rec))

	req = httptest.NewRequest(http.MethodPost, "/functions/v1/generate-order-text",
		strings.NewReader(`{"items":[{"name":"Gula","qty":"2 dus"}],"supplier_name":"Toko Makmur"}`))
	rec = httptest.NewRecorder()
	h.GenerateOrderText(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	m.AssertCalled(t, "OrderText", mock.Anything, mock.MatchedBy(func(r *models.OrderTextRequest) bool {
		return len(r.Items) == 1 && r.Items[0].Qty == "2 dus"
	}))

	req = httptest.NewRequest(http.MethodPost, "/functions/v1/generate-order-text", strings.NewReader(`{"items":[]}`))
	rec = httptest.NewRecorder()
	h.GenerateOrderText(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "daftar item belanja wajib ada")
}

func TestReadyCheck(t *testing.T) {
	h := NewHandler(&mockPipeline{}, logging.Discard()).
		WithReadiness(func(context.Context) error { return errors.New("db down") })

	rec := httptest.NewRecorder()
	h.ReadyCheck(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	NewHandler(&mockPipeline{}, logging.Discard()).ReadyCheck(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
