package storage

// sqlite.go: persistencia de predicciones confirmadas.
//
// Tablas:
//   predictions: una fila por intent confirmado, única por (user, market, receipt, leg)
//   positions:   stake acumulado por (user, market); decimales como TEXT
//   submissions: journal de envíos para reconciliación manual

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
    id          TEXT PRIMARY KEY,
    user        TEXT    NOT NULL,
    market_id   TEXT    NOT NULL,
    receipt_id  TEXT    NOT NULL,
    leg         INTEGER NOT NULL,
    batch_id    TEXT    NOT NULL,
    intent_id   TEXT    NOT NULL,
    side        TEXT    NOT NULL,   -- YES / NO
    stake       TEXT    NOT NULL,
    created_at  TEXT    NOT NULL,
    UNIQUE (user, market_id, receipt_id, leg)
);

CREATE INDEX IF NOT EXISTS idx_predictions_receipt ON predictions(receipt_id);

CREATE TABLE IF NOT EXISTS positions (
    user           TEXT NOT NULL,
    market_id      TEXT NOT NULL,
    yes_stake      TEXT NOT NULL DEFAULT '0',
    no_stake       TEXT NOT NULL DEFAULT '0',
    total_invested TEXT NOT NULL DEFAULT '0',
    updated_at     TEXT NOT NULL,
    PRIMARY KEY (user, market_id)
);

CREATE TABLE IF NOT EXISTS submissions (
    batch_id             TEXT PRIMARY KEY,
    user                 TEXT    NOT NULL,
    receipt_id           TEXT    NOT NULL DEFAULT '',
    state                TEXT    NOT NULL,
    reason               TEXT    NOT NULL DEFAULT '',
    calls                INTEGER NOT NULL DEFAULT 0,
    submitted_at         TEXT    NOT NULL,
    resolved_at          TEXT,
    needs_reconciliation INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_submissions_user_state ON submissions(user, state);
`

const timeLayout = time.RFC3339Nano

// SQLiteStorage implementa ports.PredictionStorage y ports.SubmissionJournal
// usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	s := &SQLiteStorage{db: db}
	if err := s.ApplySchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: %w", err)
	}
	return s, nil
}

// ApplySchema crea las tablas si no existen. Idempotente.
func (s *SQLiteStorage) ApplySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("storage.ApplySchema: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
