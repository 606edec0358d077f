package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alejandrodnm/swipebot/internal/domain"
)

// RecordSubmission guarda el estado actual de un envío. Al llegar a un estado
// terminal se limpia needs_reconciliation.
func (s *SQLiteStorage) RecordSubmission(ctx context.Context, e domain.SubmissionEntry) error {
	var resolvedAt *string
	if e.ResolvedAt != nil {
		v := formatTime(*e.ResolvedAt)
		resolvedAt = &v
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions
			(batch_id, user, receipt_id, state, reason, calls, submitted_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_id) DO UPDATE SET
			receipt_id  = excluded.receipt_id,
			state       = excluded.state,
			reason      = excluded.reason,
			calls       = excluded.calls,
			resolved_at = excluded.resolved_at,
			needs_reconciliation = CASE
				WHEN excluded.state IN ('CONFIRMED', 'REVERTED', 'ERRORED') THEN 0
				ELSE submissions.needs_reconciliation
			END`,
		e.BatchID, e.User, e.ReceiptID, string(e.State), e.Reason, e.Calls,
		formatTime(e.SubmittedAt), resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("storage.RecordSubmission: %s: %w", e.BatchID, err)
	}
	return nil
}

// MarkNeedsReconciliation marca un envío sin estado terminal.
func (s *SQLiteStorage) MarkNeedsReconciliation(ctx context.Context, batchID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET needs_reconciliation = 1 WHERE batch_id = ? AND state = 'PENDING'`, batchID)
	if err != nil {
		return fmt.Errorf("storage.MarkNeedsReconciliation: %s: %w", batchID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.MarkNeedsReconciliation: %s: no pending submission", batchID)
	}
	return nil
}

// ListUnresolvedSubmissions devuelve los envíos pendientes o marcados.
// user vacío = todos los usuarios.
func (s *SQLiteStorage) ListUnresolvedSubmissions(ctx context.Context, user string) ([]domain.SubmissionEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, user, receipt_id, state, reason, calls, submitted_at, resolved_at, needs_reconciliation
		FROM submissions
		WHERE (state = 'PENDING' OR needs_reconciliation = 1) AND (? = '' OR user = ?)
		ORDER BY submitted_at`, user, user)
	if err != nil {
		return nil, fmt.Errorf("storage.ListUnresolvedSubmissions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.SubmissionEntry
	for rows.Next() {
		var e domain.SubmissionEntry
		var state, submittedAt string
		var resolvedAt sql.NullString
		var flagged int
		if err := rows.Scan(&e.BatchID, &e.User, &e.ReceiptID, &state, &e.Reason, &e.Calls,
			&submittedAt, &resolvedAt, &flagged); err != nil {
			return nil, fmt.Errorf("storage.ListUnresolvedSubmissions: scan row: %w", err)
		}
		e.State = domain.SubmissionState(state)
		e.SubmittedAt = parseTime(submittedAt)
		if resolvedAt.Valid {
			t := parseTime(resolvedAt.String)
			e.ResolvedAt = &t
		}
		e.NeedsReconciliation = flagged == 1
		out = append(out, e)
	}
	return out, rows.Err()
}
