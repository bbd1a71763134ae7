// Package handlers provides the HTTP handlers of the stockwatch functions.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/restock-systems/stockwatch/common/httputil"
	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/internal/models"
)

// Pipeline is the set of operations the handlers expose.
type Pipeline interface {
	Analyze(ctx context.Context, payload *models.WebhookPayload) (*models.AnalysisResult, error)
	HealthReport(ctx context.Context, bearerToken string) (*models.HealthReport, error)
	Push(ctx context.Context, bearerToken string, req *models.PushRequest) (*models.PushResponse, error)
	OrderText(ctx context.Context, req *models.OrderTextRequest) (*models.OrderTextResponse, error)
}

// Handler provides HTTP handlers for stockwatch
type Handler struct {
	svc    Pipeline
	ready  func(ctx context.Context) error
	logger *logging.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(svc Pipeline, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// WithReadiness sets the check behind /readyz
func (h *Handler) WithReadiness(check func(ctx context.Context) error) *Handler {
	h.ready = check
	return h
}

// =============================================================================
// Helper Methods
// =============================================================================

// statusFor maps the pipeline's error taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, models.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrExternalService),
		errors.Is(err, models.ErrAuthExchange),
		errors.Is(err, models.ErrDelivery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			logging.Path(r.URL.Path),
			logging.Status(status),
			logging.Error(err),
		)
	}
	httputil.WriteError(w, status, err.Error())
}

func methodNotAllowed(w http.ResponseWriter) {
	httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// =============================================================================
// Health Check Handlers
// =============================================================================

// HealthCheck handles GET /healthz
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "stockwatch"})
}

// ReadyCheck handles GET /readyz
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": "stockwatch"})
}
