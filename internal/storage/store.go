package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/brandonnmartinsj/TradingAgents/internal/alerts"
	"github.com/brandonnmartinsj/TradingAgents/internal/portfolio"
)

// ErrNotFound is returned when an alert or position does not exist.
var ErrNotFound = errors.New("not found")

// Store persists the dashboard state: alerts, fired alert history and
// portfolio positions.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS alerts (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    ticker TEXT NOT NULL,
    params TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL,
    triggered INTEGER NOT NULL DEFAULT 0,
    active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS triggered_alerts (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    alert_id TEXT NOT NULL,
    type TEXT NOT NULL,
    ticker TEXT NOT NULL,
    params TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL,
    triggered_at TEXT NOT NULL,
    trigger_value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS positions (
    ticker TEXT PRIMARY KEY,
    shares TEXT NOT NULL,
    avg_price TEXT NOT NULL,
    cost_basis TEXT NOT NULL,
    current_price TEXT NOT NULL,
    current_value TEXT NOT NULL,
    purchase_date TEXT NOT NULL DEFAULT '',
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_alerts_ticker ON alerts(ticker);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveAlert(ctx context.Context, db execer, a alerts.Alert) error {
	params, err := json.Marshal(a.Params)
	if err != nil {
		return fmt.Errorf("encode alert params: %w", err)
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO alerts (id, type, ticker, params, created_at, triggered, active)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    type=excluded.type,
    ticker=excluded.ticker,
    params=excluded.params,
    triggered=excluded.triggered,
    active=excluded.active
`, a.ID, string(a.Type), a.Ticker, string(params), a.CreatedAt, a.Triggered, a.Active)
	if err != nil {
		return fmt.Errorf("save alert: %w", err)
	}
	return nil
}

func (s *Store) SaveAlert(ctx context.Context, a alerts.Alert) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("alert id is required")
	}
	return saveAlert(ctx, s.db, a)
}

// SaveAlerts writes every alert in one transaction.
func (s *Store) SaveAlerts(ctx context.Context, list []alerts.Alert) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, a := range list {
			if err := saveAlert(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

// Alerts lists alerts oldest first. activeOnly drops deactivated ones.
func (s *Store) Alerts(ctx context.Context, activeOnly bool) ([]alerts.Alert, error) {
	filter := 0
	if activeOnly {
		filter = 1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, type, ticker, params, created_at, triggered, active
FROM alerts
WHERE (? = 0 OR active = 1)
ORDER BY created_at ASC, rowid ASC
`, filter)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var list []alerts.Alert
	for rows.Next() {
		var (
			a      alerts.Alert
			params string
		)
		if err := rows.Scan(&a.ID, &a.Type, &a.Ticker, &params, &a.CreatedAt, &a.Triggered, &a.Active); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &a.Params); err != nil {
			return nil, fmt.Errorf("decode params of alert %s: %w", a.ID, err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list alerts rows: %w", err)
	}
	return list, nil
}

// DeactivateAlert keeps the alert for history but stops checking it.
func (s *Store) DeactivateAlert(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate alert: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return nil
}

func recordTriggered(ctx context.Context, db execer, a alerts.Alert) error {
	params, err := json.Marshal(a.Params)
	if err != nil {
		return fmt.Errorf("encode alert params: %w", err)
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO triggered_alerts (alert_id, type, ticker, params, created_at, triggered_at, trigger_value)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, a.ID, string(a.Type), a.Ticker, string(params), a.CreatedAt, a.TriggeredAt, a.TriggerValue)
	if err != nil {
		return fmt.Errorf("record triggered alert: %w", err)
	}
	return nil
}

// RecordCheck stores the outcome of an alert check: the flagged alerts and
// the stamped copies of those that fired.
func (s *Store) RecordCheck(ctx context.Context, updated, fired []alerts.Alert) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, a := range updated {
			if err := saveAlert(ctx, tx, a); err != nil {
				return err
			}
		}
		for _, a := range fired {
			if err := recordTriggered(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

// TriggeredAlerts lists fired alerts in firing order.
func (s *Store) TriggeredAlerts(ctx context.Context) ([]alerts.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT alert_id, type, ticker, params, created_at, triggered_at, trigger_value
FROM triggered_alerts
ORDER BY seq ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list triggered alerts: %w", err)
	}
	defer rows.Close()

	var list []alerts.Alert
	for rows.Next() {
		var (
			a      alerts.Alert
			params string
		)
		if err := rows.Scan(&a.ID, &a.Type, &a.Ticker, &params, &a.CreatedAt, &a.TriggeredAt, &a.TriggerValue); err != nil {
			return nil, fmt.Errorf("scan triggered alert: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &a.Params); err != nil {
			return nil, fmt.Errorf("decode params of alert %s: %w", a.ID, err)
		}
		a.Triggered = true
		a.Active = true
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list triggered alerts rows: %w", err)
	}
	return list, nil
}

func savePosition(ctx context.Context, db execer, p portfolio.Position) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO positions (ticker, shares, avg_price, cost_basis, current_price, current_value, purchase_date)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ticker) DO UPDATE SET
    shares=excluded.shares,
    avg_price=excluded.avg_price,
    cost_basis=excluded.cost_basis,
    current_price=excluded.current_price,
    current_value=excluded.current_value,
    purchase_date=excluded.purchase_date,
    updated_at=CURRENT_TIMESTAMP
`, p.Ticker, p.Shares.String(), p.AvgPrice.String(), p.CostBasis.String(),
		p.CurrentPrice.String(), p.CurrentValue.String(), p.PurchaseDate)
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

// SavePosition inserts p or replaces the position of the same ticker.
func (s *Store) SavePosition(ctx context.Context, p portfolio.Position) error {
	if strings.TrimSpace(p.Ticker) == "" {
		return fmt.Errorf("position ticker is required")
	}
	return savePosition(ctx, s.db, p)
}

// SavePositions writes every position in one transaction.
func (s *Store) SavePositions(ctx context.Context, list []portfolio.Position) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range list {
			if err := savePosition(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// Position returns the position of ticker or ErrNotFound.
func (s *Store) Position(ctx context.Context, ticker string) (portfolio.Position, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT ticker, shares, avg_price, cost_basis, current_price, current_value, purchase_date
FROM positions
WHERE ticker = ?
`, ticker)
	var p portfolio.Position
	err := row.Scan(&p.Ticker, &p.Shares, &p.AvgPrice, &p.CostBasis, &p.CurrentPrice, &p.CurrentValue, &p.PurchaseDate)
	if errors.Is(err, sql.ErrNoRows) {
		return portfolio.Position{}, fmt.Errorf("position %s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return portfolio.Position{}, fmt.Errorf("get position: %w", err)
	}
	return p, nil
}

// Positions lists positions by ticker.
func (s *Store) Positions(ctx context.Context) ([]portfolio.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT ticker, shares, avg_price, cost_basis, current_price, current_value, purchase_date
FROM positions
ORDER BY ticker ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var list []portfolio.Position
	for rows.Next() {
		var p portfolio.Position
		if err := rows.Scan(&p.Ticker, &p.Shares, &p.AvgPrice, &p.CostBasis, &p.CurrentPrice, &p.CurrentValue, &p.PurchaseDate); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list positions rows: %w", err)
	}
	return list, nil
}

func (s *Store) RemovePosition(ctx context.Context, ticker string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE ticker = ?`, ticker)
	if err != nil {
		return fmt.Errorf("remove position: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("position %s: %w", ticker, ErrNotFound)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
