// Package repository reads stock records from the data store.
package repository

import (
	"context"

	"github.com/restock-systems/stockwatch/internal/models"
)

// Repository is the narrow read interface the health report needs.
type Repository interface {
	// ListByOwner returns every stock record owned by ownerID.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.StockRecord, error)

	// Health check
	Ping(ctx context.Context) error
	Close() error
}
