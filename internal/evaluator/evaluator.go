// Package evaluator classifies stock records and forecasts depletion.
package evaluator

import (
	"math"

	"github.com/restock-systems/stockwatch/internal/models"
)

const (
	// FallbackBurnRate is used for items with no sales history, treating them
	// as slow movers and keeping the division defined.
	FallbackBurnRate = 0.1

	// AlertHorizonDays is the strict cut-off: only items forecast to run out
	// in fewer days are surfaced.
	AlertHorizonDays = 3.0
)

// Verdict is the outcome of evaluating a single record.
type Verdict struct {
	IsCritical bool
}

// EvaluateSingle reports whether a record is at or below its minimum stock.
func EvaluateSingle(r *models.StockRecord) Verdict {
	return Verdict{IsCritical: r.CurrentStock <= r.MinStock}
}

// BurnRate returns the average daily consumption used for forecasting.
func BurnRate(r *models.StockRecord) float64 {
	if r.AvgDailySales > 0 {
		return r.AvgDailySales
	}
	return FallbackBurnRate
}

// DaysRemaining forecasts how many days the current stock will last.
func DaysRemaining(r *models.StockRecord) float64 {
	return r.CurrentStock / BurnRate(r)
}

// EvaluateBatch returns one alert per record forecast to run out within the
// alert horizon, in input order.
func EvaluateBatch(records []*models.StockRecord) []models.AlertEntry {
	alerts := make([]models.AlertEntry, 0)
	for _, r := range records {
		if r == nil {
			continue
		}
		days := DaysRemaining(r)
		if days >= AlertHorizonDays {
			continue
		}
		alerts = append(alerts, models.AlertEntry{
			Name:          r.Name,
			RemainingQty:  r.CurrentStock,
			DaysRemaining: int(math.Ceil(days)),
			Severity:      models.SeverityCritical,
		})
	}
	return alerts
}

// MostUrgent returns the entry with the fewest days remaining; the first one
// wins on ties. ok is false for an empty list.
func MostUrgent(alerts []models.AlertEntry) (entry models.AlertEntry, ok bool) {
	for i, a := range alerts {
		if i == 0 || a.DaysRemaining < entry.DaysRemaining {
			entry = a
		}
	}
	return entry, len(alerts) > 0
}
