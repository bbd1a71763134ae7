package service

import (
	"context"

	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/internal/evaluator"
	"github.com/restock-systems/stockwatch/internal/idempotency"
	"github.com/restock-systems/stockwatch/internal/metrics"
	"github.com/restock-systems/stockwatch/internal/models"
)

// MessageAnalysisDone is the acknowledgement of every handled notification.
const MessageAnalysisDone = "Analysis Done"

// Analyze evaluates the record carried by a change notification and, when
// it is critical, composes an alert and relays it for delivery. Delivery
// failures are reported in the result rather than as an error.
func (s *Service) Analyze(ctx context.Context, payload *models.WebhookPayload) (*models.AnalysisResult, error) {
	if err := check(s.req.Analyzer); err != nil {
		return nil, err
	}

	rec, err := payload.StockRecord()
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues("event", "invalid").Inc()
		return nil, err
	}

	log := s.logger.With(logging.ProductID(string(rec.ID)), logging.Product(rec.Name))

	if !evaluator.EvaluateSingle(rec).IsCritical {
		metrics.EvaluationsTotal.WithLabelValues("event", "safe").Inc()
		log.DebugContext(ctx, "stock level safe")
		return &models.AnalysisResult{Message: MessageAnalysisDone, Status: models.StatusSafe}, nil
	}
	metrics.EvaluationsTotal.WithLabelValues("event", "critical").Inc()
	log.InfoContext(ctx, "stock level critical",
		"current_stock", rec.CurrentStock,
		"min_stock", rec.MinStock,
	)

	key := idempotency.Key(rec)
	if s.idem != nil {
		first, err := s.idem.Claim(ctx, key, s.idemTTL)
		if err != nil {
			log.WarnContext(ctx, "idempotency store unavailable, continuing", logging.Error(err))
		} else if !first {
			metrics.DuplicateNotificationsTotal.Inc()
			log.InfoContext(ctx, "duplicate change notification skipped")
			return &models.AnalysisResult{
				Message:   MessageAnalysisDone,
				Status:    models.StatusCritical,
				Duplicate: true,
			}, nil
		}
	}

	frag := s.composer.SingleItemAlert(ctx, rec)
	msg := &models.NotificationMessage{
		Title: frag.Title,
		Body:  frag.Body,
		Topic: models.DefaultTopic,
		Data: map[string]string{
			"product_id": string(rec.ID),
			"status":     models.StatusCritical,
		},
	}

	result := &models.AnalysisResult{
		Message:      MessageAnalysisDone,
		Status:       models.StatusCritical,
		Notification: &models.Notification{Title: frag.Title, Body: frag.Body},
	}

	delivered := true
	res, err := s.relay.Relay(ctx, msg)
	if err != nil {
		delivered = false
		result.DeliveryError = err.Error()
		log.ErrorContext(ctx, "failed to hand alert to push service", logging.Error(err))
		// Let a redelivered notification try again.
		if s.idem != nil {
			if rerr := s.idem.Release(ctx, key); rerr != nil {
				log.WarnContext(ctx, "failed to release idempotency key", logging.Error(rerr))
			}
		}
	} else {
		log.InfoContext(ctx, "alert handed over to push service",
			logging.Topic(msg.Topic),
			"message_name", res.Name,
		)
	}
	result.Delivered = &delivered

	return result, nil
}
