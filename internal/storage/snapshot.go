package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/brandonnmartinsj/TradingAgents/internal/alerts"
	"github.com/brandonnmartinsj/TradingAgents/internal/portfolio"
)

// Snapshot is the portable JSON form of the dashboard state.
type Snapshot struct {
	Alerts          []alerts.Alert       `json:"alerts"`
	TriggeredAlerts []alerts.Alert       `json:"triggered_alerts"`
	Positions       []portfolio.Position `json:"positions"`
}

func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Alerts, err = s.Alerts(ctx, false); err != nil {
		return Snapshot{}, err
	}
	if snap.TriggeredAlerts, err = s.TriggeredAlerts(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Positions, err = s.Positions(ctx); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Restore loads snap. With replace set the current state is dropped first;
// otherwise alerts and positions are upserted and fired history appended.
func (s *Store) Restore(ctx context.Context, snap Snapshot, replace bool) error {
	for _, a := range snap.Alerts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("alert %s: %w", a.ID, err)
		}
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if replace {
			for _, table := range []string{"alerts", "triggered_alerts", "positions"} {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
					return fmt.Errorf("clear %s: %w", table, err)
				}
			}
		}
		for _, a := range snap.Alerts {
			if err := saveAlert(ctx, tx, a); err != nil {
				return err
			}
		}
		for _, a := range snap.TriggeredAlerts {
			if err := recordTriggered(ctx, tx, a); err != nil {
				return err
			}
		}
		for _, p := range snap.Positions {
			if err := savePosition(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func (s *Store) ImportJSON(ctx context.Context, r io.Reader, replace bool) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.Restore(ctx, snap, replace); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
