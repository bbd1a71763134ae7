// Package relay hands critical alerts from the analysis step to the
// notification dispatcher, over HTTP, NATS request/reply or in process.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/restock-systems/stockwatch/internal/models"
)

// Relay delivers a composed message to the dispatcher.
type Relay interface {
	Relay(ctx context.Context, msg *models.NotificationMessage) (*models.DeliveryResult, error)
}

// Dispatcher is the delivery end of a relay.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *models.NotificationMessage) (*models.DeliveryResult, error)
}

// =============================================================================
// Direct (in-process) relay
// =============================================================================

// DirectRelay calls the dispatcher in the same process.
type DirectRelay struct {
	dispatcher Dispatcher
}

// NewDirectRelay creates a DirectRelay.
func NewDirectRelay(d Dispatcher) *DirectRelay {
	return &DirectRelay{dispatcher: d}
}

func (r *DirectRelay) Relay(ctx context.Context, msg *models.NotificationMessage) (*models.DeliveryResult, error) {
	return r.dispatcher.Dispatch(ctx, msg)
}

// =============================================================================
// HTTP relay
// =============================================================================

// HTTPRelay posts the message to the push-notification endpoint
// authorized with the service key.
type HTTPRelay struct {
	url        string
	serviceKey string
	http       *http.Client
}

// NewHTTPRelay creates an HTTPRelay.
func NewHTTPRelay(url, serviceKey string, timeout time.Duration) *HTTPRelay {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRelay{url: url, serviceKey: serviceKey, http: &http.Client{Timeout: timeout}}
}

func (r *HTTPRelay) Relay(ctx context.Context, msg *models.NotificationMessage) (*models.DeliveryResult, error) {
	body, err := json.Marshal(models.NewPushRequest(msg))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build relay request: %v", models.ErrDelivery, err)
	}
	req.Header.Set("Authorization", "Bearer "+r.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: push endpoint unreachable: %v", models.ErrDelivery, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: push endpoint returned %d: %s", models.ErrDelivery, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var pr models.PushResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("%w: decode push response: %v", models.ErrDelivery, err)
	}
	if !pr.Success {
		return nil, fmt.Errorf("%w: push endpoint reported failure: %s", models.ErrDelivery, pr.Error)
	}
	if pr.FCMResponse == nil {
		return &models.DeliveryResult{}, nil
	}
	return pr.FCMResponse, nil
}
