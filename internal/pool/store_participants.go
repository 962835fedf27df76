package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const participantColumns = `address, accumulated, pending, total_paid, last_seen_height, updated_at`

// Participant fetches one participant's balances by spend address.
func (s *Store) Participant(ctx context.Context, address string) (*Participant, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+participantColumns+` FROM participants WHERE address = ?`,
		address,
	)
	participant, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return participant, nil
}

// Participants lists all participants ordered by accumulated reward.
func (s *Store) Participants(ctx context.Context) ([]*Participant, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+participantColumns+` FROM participants ORDER BY accumulated DESC, address`,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

// PayoutCandidates returns participants whose pending balance has reached
// the payout threshold, skipping amounts below the chain's minimum output.
func (s *Store) PayoutCandidates(ctx context.Context, threshold, minOutput Amount) ([]*Participant, error) {
	floor := threshold
	if minOutput > floor {
		floor = minOutput
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+participantColumns+` FROM participants WHERE pending >= ? ORDER BY address`,
		int64(floor),
	)
	if err != nil {
		return nil, fmt.Errorf("list payout candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return candidates, nil
}

// Summary aggregates store totals for the status surfaces.
func (s *Store) Summary(ctx context.Context) (*Summary, error) {
	var summary Summary

	height, hash, err := s.Tip(ctx)
	if err != nil {
		return nil, err
	}
	summary.LastHeight = height
	summary.LastBlockHash = hash

	row := s.db.QueryRowContext(ctx, `
        SELECT COUNT(1),
               COALESCE(SUM(reward), 0),
               COALESCE(SUM(pool_fee), 0),
               COALESCE(SUM(distributed), 0)
        FROM pool_blocks`)
	var reward, fees, distributed int64
	if err := row.Scan(&summary.BlocksFound, &reward, &fees, &distributed); err != nil {
		return nil, fmt.Errorf("aggregate blocks: %w", err)
	}
	summary.TotalReward = Amount(reward)
	summary.TotalPoolFees = Amount(fees)
	summary.TotalDistributed = Amount(distributed)

	row = s.db.QueryRowContext(ctx, `
        SELECT COUNT(1),
               COALESCE(SUM(pending), 0),
               COALESCE(SUM(total_paid), 0)
        FROM participants`)
	var pending, paid int64
	if err := row.Scan(&summary.Participants, &pending, &paid); err != nil {
		return nil, fmt.Errorf("aggregate participants: %w", err)
	}
	summary.TotalPending = Amount(pending)
	summary.TotalPaid = Amount(paid)

	lastPayout, err := s.metaInt(ctx, metaLastPayoutHeight)
	if err != nil {
		return nil, err
	}
	summary.LastPayoutHeight = lastPayout

	return &summary, nil
}

func scanParticipant(row rowScanner) (*Participant, error) {
	var participant Participant
	var accumulated, pending, paid int64
	var updatedAt string
	if err := row.Scan(&participant.Address, &accumulated, &pending, &paid, &participant.LastSeenHeight, &updatedAt); err != nil {
		return nil, err
	}
	participant.Accumulated = Amount(accumulated)
	participant.Pending = Amount(pending)
	participant.TotalPaid = Amount(paid)
	participant.UpdatedAt = parseTimestamp(updatedAt)
	return &participant, nil
}
