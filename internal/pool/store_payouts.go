package pool

import (
	"context"
	"database/sql"
	"fmt"
)

const payoutColumns = `id, batch_id, address, amount, txid, status, height, created_at, updated_at`

// CreateBatch records one payout row per candidate and moves the amounts out
// of the participants' pending balances, all in one transaction. The batch
// starts in the pending status.
func (s *Store) CreateBatch(ctx context.Context, batchID string, height int64, candidates []*Participant) error {
	if len(candidates) == 0 {
		return fmt.Errorf("payout batch %s has no candidates", batchID)
	}
	now := timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, candidate := range candidates {
		if candidate.Pending <= 0 {
			continue
		}
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO payouts (batch_id, address, amount, status, height, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			batchID,
			candidate.Address,
			int64(candidate.Pending),
			PayoutStatusPending,
			height,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("insert payout for %s: %w", candidate.Address, err)
		}
		_, err = tx.ExecContext(
			ctx,
			`UPDATE participants SET pending = pending - ?, updated_at = ? WHERE address = ?`,
			int64(candidate.Pending),
			now,
			candidate.Address,
		)
		if err != nil {
			return fmt.Errorf("reserve pending for %s: %w", candidate.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch %s: %w", batchID, err)
	}
	return nil
}

// MarkBatchSent records the wallet transaction for a batch and adds the
// amounts to the participants' paid totals.
func (s *Store) MarkBatchSent(ctx context.Context, batchID, txid string, height int64) error {
	now := timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sent tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`UPDATE participants SET
            total_paid = total_paid + (
                SELECT amount FROM payouts WHERE batch_id = ? AND address = participants.address AND status = ?
            ),
            updated_at = ?
         WHERE address IN (SELECT address FROM payouts WHERE batch_id = ? AND status = ?)`,
		batchID, PayoutStatusPending, now, batchID, PayoutStatusPending,
	)
	if err != nil {
		return fmt.Errorf("credit paid totals for %s: %w", batchID, err)
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE payouts SET txid = ?, status = ?, updated_at = ? WHERE batch_id = ? AND status = ?`,
		txid, PayoutStatusSent, now, batchID, PayoutStatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark batch %s sent: %w", batchID, err)
	}

	if err := setMetaTx(ctx, tx, metaLastPayoutHeight, fmt.Sprintf("%d", height)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sent %s: %w", batchID, err)
	}
	return nil
}

// MarkBatchFailed marks a batch failed and returns the reserved amounts to
// the participants' pending balances.
func (s *Store) MarkBatchFailed(ctx context.Context, batchID string) error {
	now := timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin failed tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`UPDATE participants SET
            pending = pending + (
                SELECT amount FROM payouts WHERE batch_id = ? AND address = participants.address AND status = ?
            ),
            updated_at = ?
         WHERE address IN (SELECT address FROM payouts WHERE batch_id = ? AND status = ?)`,
		batchID, PayoutStatusPending, now, batchID, PayoutStatusPending,
	)
	if err != nil {
		return fmt.Errorf("restore pending for %s: %w", batchID, err)
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE payouts SET status = ?, updated_at = ? WHERE batch_id = ? AND status = ?`,
		PayoutStatusFailed, now, batchID, PayoutStatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark batch %s failed: %w", batchID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failed %s: %w", batchID, err)
	}
	return nil
}

// ConfirmBatchesBefore promotes sent batches recorded at or below the given
// height to confirmed.
func (s *Store) ConfirmBatchesBefore(ctx context.Context, height int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE payouts SET status = ?, updated_at = ? WHERE status = ? AND height <= ?`,
		PayoutStatusConfirmed, timestamp(), PayoutStatusSent, height,
	)
	if err != nil {
		return fmt.Errorf("confirm batches: %w", err)
	}
	return nil
}

// Payouts returns the most recent payout rows, newest first.
func (s *Store) Payouts(ctx context.Context, limit int) ([]*Payout, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+payoutColumns+` FROM payouts ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()
	return collectPayouts(rows)
}

// PayoutsForAddress returns the payout history of one participant.
func (s *Store) PayoutsForAddress(ctx context.Context, address string, limit int) ([]*Payout, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE address = ? ORDER BY id DESC LIMIT ?`,
		address,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list payouts for %s: %w", address, err)
	}
	defer rows.Close()
	return collectPayouts(rows)
}

func collectPayouts(rows *sql.Rows) ([]*Payout, error) {
	var payouts []*Payout
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		payouts = append(payouts, payout)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payouts: %w", err)
	}
	return payouts, nil
}

func scanPayout(row rowScanner) (*Payout, error) {
	var payout Payout
	var amount int64
	var txid sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&payout.ID, &payout.BatchID, &payout.Address, &amount, &txid, &payout.Status, &payout.Height, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	payout.Amount = Amount(amount)
	payout.Txid = txid.String
	payout.CreatedAt = parseTimestamp(createdAt)
	payout.UpdatedAt = parseTimestamp(updatedAt)
	return &payout, nil
}
