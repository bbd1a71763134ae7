// Package dispatcher delivers notification messages to push topic
// subscribers through the FCM HTTP v1 API.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/internal/credentials"
	"github.com/restock-systems/stockwatch/internal/metrics"
	"github.com/restock-systems/stockwatch/internal/models"
)

const (
	DefaultGatewayURL = "https://fcm.googleapis.com"

	AndroidChannelID   = "stock_alert_channel"
	AndroidClickAction = "FLUTTER_NOTIFICATION_CLICK"
)

// Config holds delivery settings.
type Config struct {
	GatewayURL     string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

// DefaultConfig returns the production delivery settings.
func DefaultConfig() Config {
	return Config{
		GatewayURL:     DefaultGatewayURL,
		Timeout:        10 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// Dispatcher sends push messages authorized by a short-lived access token.
type Dispatcher struct {
	tokens     credentials.TokenSource
	credential *models.ServiceCredential
	httpClient *http.Client
	cfg        Config
	logger     *logging.Logger
}

// New creates a Dispatcher.
func New(tokens credentials.TokenSource, cred *models.ServiceCredential, cfg Config, logger *logging.Logger) *Dispatcher {
	def := DefaultConfig()
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = def.GatewayURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		tokens:     tokens,
		credential: cred,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// =============================================================================
// Gateway wire format
// =============================================================================

type sendRequest struct {
	Message gatewayMessage `json:"message"`
}

type gatewayMessage struct {
	Topic        string              `json:"topic"`
	Notification gatewayNotification `json:"notification"`
	Android      androidConfig       `json:"android"`
}

type gatewayNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// androidConfig carries the data map; only Android subscribers receive it.
type androidConfig struct {
	Priority     string              `json:"priority"`
	Notification androidNotification `json:"notification"`
	Data         map[string]string   `json:"data,omitempty"`
}

type androidNotification struct {
	ChannelID   string `json:"channel_id"`
	ClickAction string `json:"click_action"`
}

type sendResponse struct {
	Name string `json:"name"`
}

func buildRequest(msg *models.NotificationMessage) sendRequest {
	return sendRequest{Message: gatewayMessage{
		Topic:        msg.Topic,
		Notification: gatewayNotification{Title: msg.Title, Body: msg.Body},
		Android: androidConfig{
			Priority: "high",
			Notification: androidNotification{
				ChannelID:   AndroidChannelID,
				ClickAction: AndroidClickAction,
			},
			Data: msg.Data,
		},
	}}
}

// Dispatch delivers msg to its topic. Server errors, rate limiting and
// network failures are retried with exponential backoff; other rejections
// fail immediately with a *models.DeliveryError.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *models.NotificationMessage) (*models.DeliveryResult, error) {
	if msg == nil || msg.Title == "" || msg.Body == "" {
		return nil, fmt.Errorf("%w: title and body required", models.ErrValidation)
	}
	m := *msg
	if m.Topic == "" {
		m.Topic = models.DefaultTopic
	}
	msg = &m
	if err := d.credential.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(buildRequest(msg))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push message: %w", err)
	}

	start := time.Now()
	defer func() { metrics.DispatchDuration.Observe(time.Since(start).Seconds()) }()

	attempts := 0
	var result *models.DeliveryResult
	op := func() error {
		attempts++
		res, err := d.send(ctx, payload)
		if err != nil {
			if !retryable(err) {
				metrics.DispatchAttemptsTotal.WithLabelValues("permanent_error").Inc()
				return backoff.Permanent(err)
			}
			metrics.DispatchAttemptsTotal.WithLabelValues("retryable_error").Inc()
			return err
		}
		metrics.DispatchAttemptsTotal.WithLabelValues("success").Inc()
		result = res
		return nil
	}

	notify := func(err error, wait time.Duration) {
		d.logger.WarnContext(ctx, "push delivery failed, retrying",
			logging.Topic(msg.Topic),
			logging.Attempt(attempts),
			logging.Error(err),
			"retry_in", wait.String(),
		)
	}

	if err := backoff.RetryNotify(op, d.policy(ctx), notify); err != nil {
		return nil, err
	}

	result.Attempts = attempts
	d.logger.InfoContext(ctx, "push notification sent",
		logging.Topic(msg.Topic),
		logging.Attempt(attempts),
		"message_name", result.Name,
	)
	return result, nil
}

func (d *Dispatcher) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = d.cfg.InitialBackoff
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(d.cfg.MaxAttempts-1)), ctx)
}

func (d *Dispatcher) send(ctx context.Context, payload []byte) (*models.DeliveryResult, error) {
	tok, err := d.tokens.AccessToken(ctx, d.credential)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/messages:send", strings.TrimRight(d.cfg.GatewayURL, "/"), d.credential.ProjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.Value)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &networkError{err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.DeliveryError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var sr sendResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("%w: undecodable gateway response: %v", models.ErrDelivery, err)
	}
	return &models.DeliveryResult{Name: sr.Name}, nil
}

// networkError marks a transport failure; it is retryable and wraps ErrDelivery.
type networkError struct {
	err error
}

func (e *networkError) Error() string { return "push gateway unreachable: " + e.err.Error() }

func (e *networkError) Unwrap() []error { return []error{models.ErrDelivery, e.err} }

func retryable(err error) bool {
	var de *models.DeliveryError
	if errors.As(err, &de) {
		return de.Retryable()
	}
	var ne *networkError
	return errors.As(err, &ne) && !errors.Is(err, context.Canceled)
}
