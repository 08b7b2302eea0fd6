package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// Pool is an interface that abstracts the pgxpool.Pool for testability.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps sessions in the trade_sessions and trade_orders tables.
type PostgresStore struct {
	db Pool
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = "id, symbol, direction, current_mode, status, active_long, active_short, " +
	"active_average_long, active_average_short, pnl, commission, created_time, end_time"

const orderColumns = "session_id, order_id, purpose, direction, status, price, count, commission, " +
	"parent_order_id, related_hedge_id, created_time, pnl_high, trailing_active, base_pnl, max_change_pnl"

// GetAllActive returns every ACTIVE session with its order history.
func (r *PostgresStore) GetAllActive(ctx context.Context) ([]*trade.Session, error) {
	return r.List(ctx, Filter{Status: trade.SessionActive})
}

// List returns sessions matching f, newest first.
func (r *PostgresStore) List(ctx context.Context, f Filter) ([]*trade.Session, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		where = append(where, fmt.Sprintf("created_time >= $%d", len(args)))
	}
	query := "SELECT " + sessionColumns + " FROM trade_sessions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_time DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var (
		sessions []*trade.Session
		ids      []string
	)
	byID := make(map[string]*trade.Session)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
		ids = append(ids, s.ID)
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	if len(ids) == 0 {
		return sessions, nil
	}

	if err := r.loadOrders(ctx, ids, byID); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Get returns one session with its order history.
func (r *PostgresStore) Get(ctx context.Context, id string) (*trade.Session, error) {
	row := r.db.QueryRow(ctx, "SELECT "+sessionColumns+" FROM trade_sessions WHERE id = $1", id)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadOrders(ctx, []string{id}, map[string]*trade.Session{id: s}); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresStore) loadOrders(ctx context.Context, ids []string, byID map[string]*trade.Session) error {
	rows, err := r.db.Query(ctx,
		"SELECT "+orderColumns+" FROM trade_orders WHERE session_id = ANY($1) ORDER BY session_id, seq", ids)
	if err != nil {
		return fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sessionID string
			o         trade.Order
			parent    *string
			related   *string
			purpose   string
			direction string
			status    string
		)
		if err := rows.Scan(&sessionID, &o.ID, &purpose, &direction, &status, &o.Price, &o.Count, &o.Commission,
			&parent, &related, &o.CreatedTime, &o.PnlHigh, &o.TrailingActive, &o.BasePnl, &o.MaxChangePnl); err != nil {
			return fmt.Errorf("failed to scan order: %w", err)
		}
		o.Purpose = trade.Purpose(purpose)
		o.Direction = trade.Direction(direction)
		o.Status = trade.OrderStatus(status)
		if parent != nil {
			o.ParentOrderID = *parent
		}
		if related != nil {
			o.RelatedHedgeID = *related
		}
		if s, ok := byID[sessionID]; ok {
			s.Orders = append(s.Orders, &o)
		}
	}
	return rows.Err()
}

func scanSession(row pgx.Row) (*trade.Session, error) {
	var (
		s         trade.Session
		direction string
		mode      string
		status    string
		end       *time.Time
	)
	err := row.Scan(&s.ID, &s.Symbol, &direction, &mode, &status, &s.ActiveLong, &s.ActiveShort,
		&s.ActiveAverageLong, &s.ActiveAverageShort, &s.PnL, &s.Commission, &s.CreatedTime, &end)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	s.Direction = trade.Direction(direction)
	s.CurrentMode = trade.Mode(mode)
	s.Status = trade.SessionStatus(status)
	s.EndTime = end
	return &s, nil
}

// Save upserts the session and its orders in one transaction. Orders are append-only, so
// existing rows only take the mutable status and trailing columns.
func (r *PostgresStore) Save(ctx context.Context, s *trade.Session) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `INSERT INTO trade_sessions (`+sessionColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (id) DO UPDATE SET
			current_mode = EXCLUDED.current_mode,
			status = EXCLUDED.status,
			active_long = EXCLUDED.active_long,
			active_short = EXCLUDED.active_short,
			active_average_long = EXCLUDED.active_average_long,
			active_average_short = EXCLUDED.active_average_short,
			pnl = EXCLUDED.pnl,
			commission = EXCLUDED.commission,
			end_time = EXCLUDED.end_time,
			updated_at = NOW()`,
		s.ID, s.Symbol, string(s.Direction), string(s.CurrentMode), string(s.Status),
		s.ActiveLong, s.ActiveShort, s.ActiveAverageLong, s.ActiveAverageShort,
		s.PnL, s.Commission, s.CreatedTime, s.EndTime)
	if err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", s.ID, err)
	}

	for i, o := range s.Orders {
		_, err = tx.Exec(ctx, `INSERT INTO trade_orders (`+orderColumns+`, seq)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (order_id) DO UPDATE SET
				status = EXCLUDED.status,
				pnl_high = EXCLUDED.pnl_high,
				trailing_active = EXCLUDED.trailing_active,
				base_pnl = EXCLUDED.base_pnl,
				max_change_pnl = EXCLUDED.max_change_pnl`,
			s.ID, o.ID, string(o.Purpose), string(o.Direction), string(o.Status), o.Price, o.Count, o.Commission,
			nullString(o.ParentOrderID), nullString(o.RelatedHedgeID), o.CreatedTime,
			o.PnlHigh, o.TrailingActive, o.BasePnl, o.MaxChangePnl, i)
		if err != nil {
			return fmt.Errorf("failed to upsert order %s: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", s.ID, err)
	}
	return nil
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

