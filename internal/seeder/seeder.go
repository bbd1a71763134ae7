// Package seeder generates realistic stock records for development data stores.
package seeder

import (
	"fmt"
	"math"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/restock-systems/stockwatch/internal/models"
)

// Config controls generation.
type Config struct {
	OwnerID string
	Count   int
	// CriticalRatio is the share of records generated at or below their
	// minimum stock.
	CriticalRatio float64
	Seed          int64
}

var units = []string{"pcs", "kg", "liter", "pack", "dus", "botol", "sak"}

var goods = []string{
	"Gula Pasir", "Beras", "Minyak Goreng", "Tepung Terigu", "Telur", "Kopi Bubuk",
	"Teh Celup", "Susu Kental Manis", "Mie Instan", "Garam", "Kecap Manis",
	"Sabun Cuci", "Air Mineral", "Gas Elpiji", "Rokok Kretek", "Roti Tawar",
}

// Generate returns cfg.Count records owned by cfg.OwnerID. A zero Seed
// produces a different set on every call.
func Generate(cfg Config) ([]*models.StockRecord, error) {
	if cfg.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner id required", models.ErrValidation)
	}
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", models.ErrValidation)
	}
	if cfg.CriticalRatio < 0 || cfg.CriticalRatio > 1 {
		return nil, fmt.Errorf("%w: critical ratio must be within [0,1]", models.ErrValidation)
	}

	faker := gofakeit.New(cfg.Seed)
	critical := int(math.Round(float64(cfg.Count) * cfg.CriticalRatio))

	records := make([]*models.StockRecord, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		minStock := float64(faker.IntRange(2, 20))
		sales := math.Round(faker.Float64Range(0, 8)*10) / 10

		var stock float64
		if i < critical {
			stock = float64(faker.IntRange(0, int(minStock)))
		} else {
			stock = float64(faker.IntRange(int(minStock)+1, int(minStock)*6))
		}

		records = append(records, &models.StockRecord{
			Name:          fmt.Sprintf("%s %s", faker.RandomString(goods), faker.Company()),
			Unit:          faker.RandomString(units),
			CurrentStock:  stock,
			MinStock:      minStock,
			AvgDailySales: sales,
			OwnerID:       cfg.OwnerID,
		})
	}

	faker.ShuffleAnySlice(records)
	return records, nil
}
