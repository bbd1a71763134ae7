package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restock-systems/stockwatch/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool        *pgxpool.Pool
	table       string
	ownerColumn string
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, connString, table, ownerColumn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if table == "" {
		table = "products"
	}
	if ownerColumn == "" {
		ownerColumn = "owner_id"
	}

	return &PostgresRepository{
		pool:        pool,
		table:       pgx.Identifier{table}.Sanitize(),
		ownerColumn: pgx.Identifier{ownerColumn}.Sanitize(),
	}, nil
}

// ListByOwner returns the owner's records in id order
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.StockRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, name, unit, current_stock, min_stock, COALESCE(avg_daily_sales, 0), %[2]s, updated_at
		FROM %[1]s
		WHERE %[2]s = $1
		ORDER BY id`, r.table, r.ownerColumn)

	ctx, cancel := boundedContext(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: query stock records: %v", models.ErrExternalService, err)
	}
	defer rows.Close()

	records := []*models.StockRecord{}
	for rows.Next() {
		var (
			rec       models.StockRecord
			id        int64
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &rec.Name, &rec.Unit, &rec.CurrentStock, &rec.MinStock,
			&rec.AvgDailySales, &rec.OwnerID, &updatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan stock record: %v", models.ErrExternalService, err)
		}
		rec.ID = models.RecordID(strconv.FormatInt(id, 10))
		rec.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate stock records: %v", models.ErrExternalService, err)
	}

	return records, nil
}

// Insert stores a new record and sets its ID
func (r *PostgresRepository) Insert(ctx context.Context, rec *models.StockRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, name, unit, current_stock, min_stock, avg_daily_sales)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0::double precision))
		RETURNING id, updated_at`, r.table, r.ownerColumn)

	ctx, cancel := boundedContext(ctx, DefaultWriteTimeout)
	defer cancel()

	var (
		id        int64
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, query,
		rec.OwnerID, rec.Name, rec.Unit, rec.CurrentStock, rec.MinStock, rec.AvgDailySales,
	).Scan(&id, &updatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert stock record: %w", err)
	}

	rec.ID = models.RecordID(strconv.FormatInt(id, 10))
	rec.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	return nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
