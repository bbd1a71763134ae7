package handlers

import (
	"errors"
	"net/http"

	"github.com/restock-systems/stockwatch/common/httputil"
	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/internal/models"
)

// MessageNoData answers change notifications that carry nothing to evaluate.
const MessageNoData = "No data"

// AnalyzeStockHealth handles POST /functions/v1/analyze-stock-health.
// Notifications without a usable record are acknowledged with 200 so the
// data store does not redeliver them.
func (h *Handler) AnalyzeStockHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var payload models.WebhookPayload
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		h.logger.WarnContext(r.Context(), "unreadable change notification", logging.Error(err))
		httputil.WriteMessage(w, http.StatusOK, MessageNoData)
		return
	}

	res, err := h.svc.Analyze(r.Context(), &payload)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			httputil.WriteMessage(w, http.StatusOK, MessageNoData)
			return
		}
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// StockHealthReport handles GET|POST /functions/v1/stock-health-report.
func (h *Handler) StockHealthReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	// A missing token is rejected by the validator after config checks.
	token, _ := httputil.BearerToken(r)

	report, err := h.svc.HealthReport(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// PushNotification handles POST /functions/v1/push-notification.
func (h *Handler) PushNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	token, _ := httputil.BearerToken(r)

	var req models.PushRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Title and Body required")
		return
	}

	res, err := h.svc.Push(r.Context(), token, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// GenerateOrderText handles POST /functions/v1/generate-order-text.
func (h *Handler) GenerateOrderText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req models.OrderTextRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.OrderText(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
