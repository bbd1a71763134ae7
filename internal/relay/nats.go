package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/common/messaging"
	"github.com/restock-systems/stockwatch/internal/models"
)

// dispatchRequest is the NATS payload sent to dispatch workers.
type dispatchRequest struct {
	ID      string                      `json:"id"`
	Message *models.NotificationMessage `json:"message"`
}

// dispatchReply is the worker's answer.
type dispatchReply struct {
	Success bool                   `json:"success"`
	Result  *models.DeliveryResult `json:"result,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Kind    string                 `json:"kind,omitempty"`
}

// Error kinds carried in replies so the sentinel survives the hop.
const (
	kindValidation   = "validation"
	kindAuthExchange = "auth_exchange"
	kindDelivery     = "delivery"
)

func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrValidation):
		return kindValidation
	case errors.Is(err, models.ErrAuthExchange):
		return kindAuthExchange
	default:
		return kindDelivery
	}
}

func kindError(kind string) error {
	switch kind {
	case kindValidation:
		return models.ErrValidation
	case kindAuthExchange:
		return models.ErrAuthExchange
	default:
		return models.ErrDelivery
	}
}

// NATSRelay sends the message to a dispatch worker over NATS request/reply.
type NATSRelay struct {
	publisher messaging.Publisher
	subject   string
	timeout   time.Duration
}

// NewNATSRelay creates a NATSRelay on SubjectStockAlertsDispatch.
func NewNATSRelay(p messaging.Publisher, timeout time.Duration) *NATSRelay {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NATSRelay{publisher: p, subject: messaging.SubjectStockAlertsDispatch, timeout: timeout}
}

func (r *NATSRelay) Relay(ctx context.Context, msg *models.NotificationMessage) (*models.DeliveryResult, error) {
	data, err := json.Marshal(dispatchRequest{ID: uuid.NewString(), Message: msg})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dispatch request: %w", err)
	}

	resp, err := r.publisher.Request(ctx, r.subject, data, r.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: dispatch request: %v", models.ErrDelivery, err)
	}

	var reply dispatchReply
	if err := json.Unmarshal(resp.Data, &reply); err != nil {
		return nil, fmt.Errorf("%w: decode dispatch reply: %v", models.ErrDelivery, err)
	}
	if !reply.Success {
		return nil, fmt.Errorf("%w: %s", kindError(reply.Kind), reply.Error)
	}
	return reply.Result, nil
}

// =============================================================================
// Worker
// =============================================================================

// Worker consumes dispatch requests in the dispatch-workers queue group
// and replies with the delivery outcome.
type Worker struct {
	client     messaging.Client
	dispatcher Dispatcher
	logger     *logging.Logger
	sub        messaging.Subscription
}

// NewWorker creates a Worker.
func NewWorker(client messaging.Client, d Dispatcher, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{client: client, dispatcher: d, logger: logger}
}

// Start subscribes to the dispatch subject.
func (w *Worker) Start() error {
	sub, err := w.client.QueueSubscribe(messaging.SubjectStockAlertsDispatch, messaging.QueueDispatchWorkers, w.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", messaging.SubjectStockAlertsDispatch, err)
	}
	w.sub = sub
	w.logger.Info("dispatch worker started",
		logging.Topic(messaging.SubjectStockAlertsDispatch),
		"queue", messaging.QueueDispatchWorkers,
	)
	return nil
}

// Stop unsubscribes.
func (w *Worker) Stop() error {
	if w.sub == nil {
		return nil
	}
	return w.sub.Unsubscribe()
}

func (w *Worker) handle(ctx context.Context, msg *messaging.Message) error {
	var req dispatchRequest
	reply := dispatchReply{}

	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Message == nil {
		reply.Error = "malformed dispatch request"
		reply.Kind = kindValidation
	} else {
		res, err := w.dispatcher.Dispatch(ctx, req.Message)
		if err != nil {
			w.logger.WarnContext(ctx, "dispatch failed",
				"message_id", req.ID,
				logging.Topic(req.Message.Topic),
				logging.Error(err),
			)
			reply.Error = err.Error()
			reply.Kind = errorKind(err)
		} else {
			reply.Success = true
			reply.Result = res
		}
	}

	if msg.Reply == "" {
		return nil
	}
	data, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch reply: %w", err)
	}
	return w.client.PublishMsg(ctx, &messaging.Message{
		Subject:  msg.Reply,
		Data:     data,
		Metadata: map[string]string{messaging.HeaderMessageID: req.ID},
	})
}
