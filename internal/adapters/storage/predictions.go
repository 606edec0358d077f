package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/shopspring/decimal"
)

// HasPrediction reporta si la predicción ya fue persistida.
func (s *SQLiteStorage) HasPrediction(ctx context.Context, key domain.PredictionKey) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM predictions
		WHERE user = ? AND market_id = ? AND receipt_id = ? AND leg = ?`,
		key.User, key.MarketID, key.ReceiptID, key.Leg,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage.HasPrediction: %w", err)
	}
	return n > 0, nil
}

// CreatePredictionRecord inserta la predicción. Un duplicado de la misma
// clave se ignora.
func (s *SQLiteStorage) CreatePredictionRecord(ctx context.Context, rec domain.PredictionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions
			(id, user, market_id, receipt_id, leg, batch_id, intent_id, side, stake, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user, market_id, receipt_id, leg) DO NOTHING`,
		rec.ID, rec.Key.User, rec.Key.MarketID, rec.Key.ReceiptID, rec.Key.Leg,
		rec.BatchID, rec.IntentID, string(rec.Side), rec.Stake.String(), formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.CreatePredictionRecord: %s: %w", rec.Key.MarketID, err)
	}
	return nil
}

// ListPredictions devuelve las predicciones persistidas bajo un receipt, en orden de leg.
func (s *SQLiteStorage) ListPredictions(ctx context.Context, receiptID string) ([]domain.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user, market_id, receipt_id, leg, batch_id, intent_id, side, stake, created_at
		FROM predictions WHERE receipt_id = ? ORDER BY leg`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("storage.ListPredictions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.PredictionRecord
	for rows.Next() {
		var r domain.PredictionRecord
		var side, stake, createdAt string
		if err := rows.Scan(&r.ID, &r.Key.User, &r.Key.MarketID, &r.Key.ReceiptID, &r.Key.Leg,
			&r.BatchID, &r.IntentID, &side, &stake, &createdAt); err != nil {
			return nil, fmt.Errorf("storage.ListPredictions: scan row: %w", err)
		}
		r.Side = domain.Side(side)
		r.Stake, _ = decimal.NewFromString(stake)
		r.CreatedAt = parseTime(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetPosition devuelve la posición, o una posición vacía si no existe.
func (s *SQLiteStorage) GetPosition(ctx context.Context, user, marketID string) (domain.Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user, market_id, yes_stake, no_stake, total_invested, updated_at
		FROM positions WHERE user = ? AND market_id = ?`, user, marketID)

	pos, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Position{User: user, MarketID: marketID}, nil
	}
	if err != nil {
		return domain.Position{}, fmt.Errorf("storage.GetPosition: %w", err)
	}
	return pos, nil
}

// UpsertPosition escribe la posición completa.
func (s *SQLiteStorage) UpsertPosition(ctx context.Context, pos domain.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (user, market_id, yes_stake, no_stake, total_invested, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user, market_id) DO UPDATE SET
			yes_stake      = excluded.yes_stake,
			no_stake       = excluded.no_stake,
			total_invested = excluded.total_invested,
			updated_at     = excluded.updated_at`,
		pos.User, pos.MarketID,
		pos.YesStake.String(), pos.NoStake.String(), pos.TotalInvested.String(),
		formatTime(pos.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.UpsertPosition: %s: %w", pos.MarketID, err)
	}
	return nil
}

// ListPositions devuelve las posiciones del usuario, la más reciente primero.
func (s *SQLiteStorage) ListPositions(ctx context.Context, user string) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user, market_id, yes_stake, no_stake, total_invested, updated_at
		FROM positions WHERE user = ? ORDER BY updated_at DESC`, user)
	if err != nil {
		return nil, fmt.Errorf("storage.ListPositions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListPositions: scan row: %w", err)
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(r rowScanner) (domain.Position, error) {
	var p domain.Position
	var yes, no, total, updatedAt string
	if err := r.Scan(&p.User, &p.MarketID, &yes, &no, &total, &updatedAt); err != nil {
		return domain.Position{}, err
	}
	var err error
	if p.YesStake, err = decimal.NewFromString(yes); err != nil {
		return domain.Position{}, fmt.Errorf("yes_stake %q: %w", yes, err)
	}
	if p.NoStake, err = decimal.NewFromString(no); err != nil {
		return domain.Position{}, fmt.Errorf("no_stake %q: %w", no, err)
	}
	if p.TotalInvested, err = decimal.NewFromString(total); err != nil {
		return domain.Position{}, fmt.Errorf("total_invested %q: %w", total, err)
	}
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}
