package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/internal/composer"
	"github.com/restock-systems/stockwatch/internal/evaluator"
	"github.com/restock-systems/stockwatch/internal/metrics"
	"github.com/restock-systems/stockwatch/internal/models"
)

// HealthReport authenticates the caller, forecasts depletion for all of
// their records and summarizes the items about to run out.
func (s *Service) HealthReport(ctx context.Context, bearerToken string) (*models.HealthReport, error) {
	if err := check(s.req.Report); err != nil {
		return nil, err
	}

	user, err := s.validator.Validate(ctx, bearerToken)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(logging.UserID(user.UserID))

	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	records, err := s.repo.ListByOwner(qctx, user.UserID)
	if err != nil {
		if !errors.Is(err, models.ErrExternalService) {
			err = fmt.Errorf("%w: %v", models.ErrExternalService, err)
		}
		log.ErrorContext(ctx, "failed to load stock records", logging.Error(err))
		return nil, err
	}

	alerts := evaluator.EvaluateBatch(records)
	metrics.ForecastAlertsTotal.Add(float64(len(alerts)))

	if len(alerts) == 0 {
		metrics.EvaluationsTotal.WithLabelValues("report", "safe").Inc()
		return &models.HealthReport{
			Status:       models.StatusSafe,
			AgentMessage: composer.AllClearMessage,
			Alerts:       alerts,
		}, nil
	}

	metrics.EvaluationsTotal.WithLabelValues("report", "warning").Inc()
	log.InfoContext(ctx, "stock forecast has alerts",
		"records", len(records),
		"alerts", len(alerts),
	)

	summary := s.composer.BatchSummary(ctx, alerts)
	return &models.HealthReport{
		Status:       models.StatusWarning,
		AgentMessage: summary.Message,
		Alerts:       alerts,
	}, nil
}
