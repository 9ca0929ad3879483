package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const merchantColumns = `id, name, description, user_id, created_at, updated_at`

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

// Create inserts a merchant and fills its id and timestamps.
func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	query := `INSERT INTO merchants (name, description, user_id)
		VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, m.Name, m.Description, m.UserID).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert merchant: %w", err)
	}
	return nil
}

// GetByID fetches a merchant by id.
func (r *MerchantRepo) GetByID(ctx context.Context, id int64) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`

	m := &domain.Merchant{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.Name, &m.Description, &m.UserID, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant by id: %w", err)
	}
	return m, nil
}

// List returns a page of merchants and the total count.
func (r *MerchantRepo) List(ctx context.Context, limit, offset int) ([]domain.Merchant, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM merchants`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count merchants: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+merchantColumns+` FROM merchants ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list merchants: %w", err)
	}
	defer rows.Close()

	merchants := make([]domain.Merchant, 0)
	for rows.Next() {
		var m domain.Merchant
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.UserID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan merchant row: %w", err)
		}
		merchants = append(merchants, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate merchant rows: %w", err)
	}
	return merchants, total, nil
}

// Update writes name and description.
func (r *MerchantRepo) Update(ctx context.Context, m *domain.Merchant) error {
	query := `UPDATE merchants SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3 RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, m.Name, m.Description, m.ID).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("merchant not found: %d", m.ID)
		}
		return fmt.Errorf("update merchant: %w", err)
	}
	return nil
}

// Delete removes the merchant. Items go with it via ON DELETE CASCADE.
func (r *MerchantRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM merchants WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete merchant: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetStats aggregates the merchant's recorded sales.
func (r *MerchantRepo) GetStats(ctx context.Context, merchantID int64) (*domain.MerchantStats, error) {
	query := `SELECT
		COUNT(*) AS sales,
		COALESCE(SUM(amount), 0) AS revenue,
		COUNT(DISTINCT item_id) AS items
		FROM transactions WHERE merchant_id = $1`

	stats := &domain.MerchantStats{MerchantID: merchantID}
	err := r.pool.QueryRow(ctx, query, merchantID).Scan(&stats.SalesCount, &stats.TotalRevenue, &stats.ItemsSold)
	if err != nil {
		return nil, fmt.Errorf("get merchant stats: %w", err)
	}
	return stats, nil
}
