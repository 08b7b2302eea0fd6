package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

var sessionCols = []string{"id", "symbol", "direction", "current_mode", "status", "active_long", "active_short",
	"active_average_long", "active_average_short", "pnl", "commission", "created_time", "end_time"}

var orderCols = []string{"session_id", "order_id", "purpose", "direction", "status", "price", "count", "commission",
	"parent_order_id", "related_hedge_id", "created_time", "pnl_high", "trailing_active", "base_pnl", "max_change_pnl"}

func strPtr(v string) *string { return &v }

func TestPostgresStore_GetAllActive(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresStore(mock)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM trade_sessions WHERE status = \$1 ORDER BY created_time DESC`).
		WithArgs("ACTIVE").
		WillReturnRows(pgxmock.NewRows(sessionCols).AddRow(
			"s1", "BTCUSDT", "LONG", "HEDGING", "ACTIVE", true, true, false, false,
			decimal.Zero, decimal.Zero, created, (*time.Time)(nil)))

	mock.ExpectQuery(`SELECT (.+) FROM trade_orders WHERE session_id = ANY\(\$1\)`).
		WithArgs([]string{"s1"}).
		WillReturnRows(pgxmock.NewRows(orderCols).
			AddRow("s1", "m1", "MAIN_OPEN", "LONG", "FILLED", decimal.NewFromInt(50000), decimal.RequireFromString("0.01"),
				decimal.Zero, (*string)(nil), (*string)(nil), created,
				decimal.NewNullDecimal(decimal.RequireFromString("0.12")), true, decimal.NullDecimal{}, decimal.NullDecimal{}).
			AddRow("s1", "h1", "HEDGE_OPEN", "SHORT", "FILLED", decimal.NewFromInt(49750), decimal.RequireFromString("0.01"),
				decimal.Zero, (*string)(nil), strPtr("m1"), created.Add(time.Minute),
				decimal.NullDecimal{}, false, decimal.NullDecimal{}, decimal.NullDecimal{}))

	sessions, err := repo.GetAllActive(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	s := sessions[0]
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, trade.Long, s.Direction)
	assert.Equal(t, trade.ModeHedging, s.CurrentMode)
	assert.Nil(t, s.EndTime)
	require.Len(t, s.Orders, 2)
	assert.Equal(t, trade.MainOpen, s.Orders[0].Purpose)
	assert.True(t, s.Orders[0].TrailingActive)
	assert.Equal(t, "m1", s.Orders[1].RelatedHedgeID)
	assert.Empty(t, s.Orders[1].ParentOrderID)
	assert.True(t, s.HasBothPositionsActive())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresStore(mock)

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM trade_sessions WHERE id = \$1`).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(".*").WillReturnError(assert.AnError)

		_, err := repo.Get(ctx, "s1")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_Save(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresStore(mock)
	s, err := trade.NewSession("s1", "BTCUSDT", &trade.Order{
		ID: "m1", Purpose: trade.MainOpen, Direction: trade.Long, Status: trade.StatusFilled,
		Price: decimal.NewFromInt(50000), Count: decimal.RequireFromString("0.01"),
	})
	require.NoError(t, err)
	require.NoError(t, s.AddOrder(&trade.Order{
		ID: "c1", Purpose: trade.MainClose, Direction: trade.Long, Status: trade.StatusFilled,
		Price: decimal.NewFromInt(50100), Count: decimal.RequireFromString("0.01"), ParentOrderID: "m1",
	}))

	t.Run("success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO trade_sessions").WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO trade_orders").WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO trade_orders").WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()
		mock.ExpectRollback()

		require.NoError(t, repo.Save(ctx, s))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("order failure rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO trade_sessions").WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO trade_orders").WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := repo.Save(ctx, s)
		assert.ErrorContains(t, err, "failed to upsert order m1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
