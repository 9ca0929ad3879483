package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const itemColumns = `id, name, description, price, tax, merchant_id, created_at, updated_at`

// ItemRepo implements ports.ItemRepository.
type ItemRepo struct {
	pool Pool
}

// NewItemRepo creates a new ItemRepo.
func NewItemRepo(pool Pool) *ItemRepo {
	return &ItemRepo{pool: pool}
}

// Create inserts an item and fills its id and timestamps.
func (r *ItemRepo) Create(ctx context.Context, it *domain.Item) error {
	query := `INSERT INTO items (name, description, price, tax, merchant_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, it.Name, it.Description, it.Price, it.Tax, it.MerchantID).
		Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetByID fetches an item by id.
func (r *ItemRepo) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	it, err := scanItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get item by id: %w", err)
	}
	return it, nil
}

// List returns a page of items, optionally restricted to one merchant.
func (r *ItemRepo) List(ctx context.Context, merchantID int64, limit, offset int) ([]domain.Item, int64, error) {
	where := ""
	args := []any{}
	if merchantID != 0 {
		where = " WHERE merchant_id = $1"
		args = append(args, merchantID)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM items%s ORDER BY id LIMIT $%d OFFSET $%d`,
		itemColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate item rows: %w", err)
	}
	return items, total, nil
}

// Update writes the mutable item fields.
func (r *ItemRepo) Update(ctx context.Context, it *domain.Item) error {
	query := `UPDATE items SET name = $1, description = $2, price = $3, tax = $4, updated_at = NOW()
		WHERE id = $5 RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, it.Name, it.Description, it.Price, it.Tax, it.ID).Scan(&it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("item not found: %d", it.ID)
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// Delete removes an item.
func (r *ItemRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// scanItem returns (nil, nil) when the row does not exist.
func scanItem(row pgx.Row) (*domain.Item, error) {
	it := &domain.Item{}
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &it.Tax, &it.MerchantID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return it, nil
}
