// Package server provides HTTP server setup for stockwatch.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/common/middleware"
	"github.com/restock-systems/stockwatch/internal/handlers"
)

// Function routes, kept at the paths the mobile client and the data store
// webhook already call.
const (
	PathAnalyzeStockHealth = "/functions/v1/analyze-stock-health"
	PathPushNotification   = "/functions/v1/push-notification"
	PathStockHealthReport  = "/functions/v1/stock-health-report"
	PathGenerateOrderText  = "/functions/v1/generate-order-text"
)

// RouterConfig selects optional routes.
type RouterConfig struct {
	MetricsEnabled bool
	MetricsPath    string
}

// NewRouter constructs a ServeMux with the stockwatch routes registered.
func NewRouter(h *handlers.Handler, cfg RouterConfig, logger *logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("/healthz", h.HealthCheck)
	mux.HandleFunc("/readyz", h.ReadyCheck)

	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, promhttp.Handler())
	}

	// Server-to-server functions carry no CORS headers.
	mux.HandleFunc(PathAnalyzeStockHealth, h.AnalyzeStockHealth)
	mux.HandleFunc(PathPushNotification, h.PushNotification)

	// Browser/mobile-facing functions.
	cors := middleware.CORS(middleware.PermissiveCORS())
	mux.Handle(PathStockHealthReport, cors(http.HandlerFunc(h.StockHealthReport)))
	mux.Handle(PathGenerateOrderText, cors(http.HandlerFunc(h.GenerateOrderText)))

	var handler http.Handler = mux
	handler = middleware.AccessLog(logger.Logger)(handler)
	handler = middleware.Recover(logger.Logger)(handler)
	return middleware.RequestID(handler)
}
