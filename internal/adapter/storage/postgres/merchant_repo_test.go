package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"marketplace/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func merchantRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "description", "user_id", "created_at", "updated_at"})
}

func TestMerchantRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO merchants").
		WithArgs("Digi Shop", "cards", int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(2), now, now))

	m := &domain.Merchant{Name: "Digi Shop", Description: "cards", UserID: 4}
	require.NoError(t, NewMerchantRepo(mock).Create(context.Background(), m))
	assert.Equal(t, int64(2), m.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM merchants WHERE id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(merchantRows().AddRow(int64(2), "Digi Shop", "cards", int64(4), now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM merchants WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(merchantRows())

	repo := NewMerchantRepo(mock)
	m, err := repo.GetByID(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Digi Shop", m.Name)
	assert.True(t, m.OwnedBy(4))

	m, err = repo.GetByID(context.Background(), 3)
	assert.NoError(t, err)
	assert.Nil(t, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM merchants")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM merchants ORDER BY id LIMIT $1 OFFSET $2")).
		WithArgs(20, 20).
		WillReturnRows(merchantRows().AddRow(int64(21), "Late", "", int64(9), now, now))

	merchants, total, err := NewMerchantRepo(mock).List(context.Background(), 20, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, merchants, 1)
	assert.Equal(t, int64(21), merchants[0].ID)
}

func TestMerchantRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("UPDATE merchants SET").
		WithArgs("New", "desc", int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectQuery("UPDATE merchants SET").
		WithArgs("Gone", "", int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}))

	repo := NewMerchantRepo(mock)
	m := &domain.Merchant{ID: 2, Name: "New", Description: "desc"}
	require.NoError(t, repo.Update(context.Background(), m))
	assert.Equal(t, now, m.UpdatedAt)

	err = repo.Update(context.Background(), &domain.Merchant{ID: 3, Name: "Gone"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merchant not found")
}

func TestMerchantRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM merchants").WithArgs(int64(2)).WillReturnResult(pgxmock.NewResult("DELETE", 1))

	ok, err := NewMerchantRepo(mock).Delete(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions WHERE merchant_id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"sales", "revenue", "items"}).
			AddRow(int64(3), decimal.RequireFromString("90.5"), int64(2)))

	stats, err := NewMerchantRepo(mock).GetStats(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.MerchantID)
	assert.Equal(t, int64(3), stats.SalesCount)
	assert.True(t, stats.TotalRevenue.Equal(decimal.RequireFromString("90.5")))
	assert.Equal(t, int64(2), stats.ItemsSold)
}
