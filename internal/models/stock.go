// Package models holds the stock, alert and notification types that flow
// through the alerting pipeline, plus the pipeline's error taxonomy.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// =============================================================================
// Stock records
// =============================================================================

// RecordID is a stock record identifier. The data store may hand out integer
// or UUID keys, so both JSON numbers and strings are accepted.
type RecordID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id must be a string or number: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

// StockRecord is one inventory item owned by a store account.
type StockRecord struct {
	ID            RecordID `json:"id"`
	Name          string   `json:"name"`
	Unit          string   `json:"unit"`
	CurrentStock  float64  `json:"current_stock"`
	MinStock      float64  `json:"min_stock"`
	AvgDailySales float64  `json:"avg_daily_sales"`
	OwnerID       string   `json:"owner_id,omitempty"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}

// FormatQuantity renders a stock quantity without trailing zeros ("2", "2.5").
func FormatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// =============================================================================
// Change-notification (database webhook) payload
// =============================================================================

// WebhookRecord is the row image carried by a change notification. Numeric
// fields are pointers so absence can be told apart from zero.
type WebhookRecord struct {
	ID            RecordID `json:"id"`
	Name          string   `json:"name"`
	Unit          string   `json:"unit"`
	CurrentStock  *float64 `json:"current_stock"`
	MinStock      *float64 `json:"min_stock"`
	AvgDailySales *float64 `json:"avg_daily_sales"`
	OwnerID       string   `json:"owner_id"`
	UpdatedAt     string   `json:"updated_at"`
}

// WebhookPayload is the body posted by the data store on row changes.
type WebhookPayload struct {
	Type      string         `json:"type"`
	Table     string         `json:"table"`
	Schema    string         `json:"schema"`
	Record    *WebhookRecord `json:"record"`
	OldRecord *WebhookRecord `json:"old_record"`
}

// StockRecord validates the payload and returns the record it describes.
// A missing record, a missing current_stock or a negative stock level is an
// ErrValidation.
func (p *WebhookPayload) StockRecord() (*StockRecord, error) {
	if p == nil || p.Record == nil {
		return nil, fmt.Errorf("%w: payload has no record", ErrValidation)
	}
	r := p.Record
	if r.CurrentStock == nil {
		return nil, fmt.Errorf("%w: record has no current_stock", ErrValidation)
	}
	if *r.CurrentStock < 0 {
		return nil, fmt.Errorf("%w: current_stock is negative", ErrValidation)
	}

	rec := &StockRecord{
		ID:           r.ID,
		Name:         r.Name,
		Unit:         r.Unit,
		CurrentStock: *r.CurrentStock,
		OwnerID:      r.OwnerID,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.MinStock != nil {
		rec.MinStock = *r.MinStock
	}
	if r.AvgDailySales != nil {
		rec.AvgDailySales = *r.AvgDailySales
	}
	return rec, nil
}
