package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vitos/bsp_resonance/internal/domain"
)

// SQLiteStore is the signal journal.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			strategy TEXT NOT NULL,
			level TEXT NOT NULL,
			kind TEXT NOT NULL,
			type TEXT NOT NULL,
			direction TEXT NOT NULL,
			price REAL NOT NULL,
			bar_index INTEGER NOT NULL,
			bar_time DATETIME NOT NULL,
			point TEXT,
			features TEXT,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol, created_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// SignalRepository Implementation

func (s *SQLiteStore) SaveSignal(ctx context.Context, rec *domain.SignalRecord) error {
	var point sql.NullString
	if rec.Signal.Point != nil {
		b, err := json.Marshal(rec.Signal.Point)
		if err != nil {
			return fmt.Errorf("encode point: %w", err)
		}
		point = sql.NullString{String: string(b), Valid: true}
	}
	features, err := json.Marshal(rec.Signal.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	query := `INSERT INTO signals (id, symbol, strategy, level, kind, type, direction, price, bar_index, bar_time, point, features, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.Symbol, rec.Strategy, rec.Level, string(rec.Kind),
		rec.Signal.Type, string(rec.Signal.Direction), rec.Signal.Price,
		rec.Signal.Bar.Index, rec.Signal.Bar.Time.UTC(), point, string(features), rec.CreatedAt.UTC())
	return err
}

// ListSignals returns the newest records first. An empty symbol lists all.
func (s *SQLiteStore) ListSignals(ctx context.Context, symbol string, limit int) ([]*domain.SignalRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, symbol, strategy, level, kind, type, direction, price, bar_index, bar_time, point, features, created_at
			  FROM signals WHERE (? = '' OR symbol = ?) ORDER BY created_at DESC, rowid DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, symbol, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.SignalRecord
	for rows.Next() {
		var (
			r        domain.SignalRecord
			kind     string
			dir      string
			barTime  time.Time
			point    sql.NullString
			features sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Strategy, &r.Level, &kind,
			&r.Signal.Type, &dir, &r.Signal.Price, &r.Signal.Bar.Index, &barTime,
			&point, &features, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Kind = domain.SignalKind(kind)
		r.Signal.Direction = domain.Direction(dir)
		r.Signal.Bar.Time = barTime
		if point.Valid {
			var p domain.StructuralPoint
			if err := json.Unmarshal([]byte(point.String), &p); err != nil {
				return nil, fmt.Errorf("decode point of %s: %w", r.ID, err)
			}
			r.Signal.Point = &p
		}
		if features.Valid && features.String != "" {
			if err := json.Unmarshal([]byte(features.String), &r.Signal.Features); err != nil {
				return nil, fmt.Errorf("decode features of %s: %w", r.ID, err)
			}
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}
