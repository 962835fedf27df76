package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// pool_meta keys.
const (
	metaTipHeight        = "tip_height"
	metaTipHash          = "tip_hash"
	metaChain            = "chain"
	metaLastPayoutHeight = "last_payout_height"
)

// Tip returns the last processed height and block hash. A zero height with
// an empty hash means no block has been processed yet.
func (s *Store) Tip(ctx context.Context) (int64, string, error) {
	height, err := s.metaInt(ctx, metaTipHeight)
	if err != nil {
		return 0, "", err
	}
	hash, err := s.meta(ctx, metaTipHash)
	if err != nil {
		return 0, "", err
	}
	return height, hash, nil
}

// SetTip advances the processed tip without recording a pool block. Used for
// chain blocks the pool did not stake.
func (s *Store) SetTip(ctx context.Context, height int64, hash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tip tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := setMetaTx(ctx, tx, metaTipHeight, fmt.Sprintf("%d", height)); err != nil {
		return err
	}
	if err := setMetaTx(ctx, tx, metaTipHash, hash); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tip: %w", err)
	}
	return nil
}

// RecordBlock stores a pool-staked block, credits each participant's share
// and advances the tip, all in one transaction.
func (s *Store) RecordBlock(ctx context.Context, block *Block, credits []Credit) error {
	now := timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin block tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO pool_blocks (
            height, hash, staker_address, reward, pool_fee, stake_bonus, distributed, found_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		block.Height,
		block.Hash,
		block.StakerAddress,
		int64(block.Reward),
		int64(block.PoolFee),
		int64(block.StakeBonus),
		int64(block.Distributed),
		now,
	)
	if err != nil {
		return fmt.Errorf("insert block %d: %w", block.Height, err)
	}

	for _, credit := range credits {
		if credit.Amount <= 0 {
			continue
		}
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO block_credits (height, address, amount) VALUES (?, ?, ?)`,
			block.Height,
			credit.Address,
			int64(credit.Amount),
		)
		if err != nil {
			return fmt.Errorf("insert credit for %s: %w", credit.Address, err)
		}
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO participants (address, accumulated, pending, total_paid, last_seen_height, updated_at)
             VALUES (?, ?, ?, 0, ?, ?)
             ON CONFLICT(address) DO UPDATE SET
                accumulated = accumulated + excluded.accumulated,
                pending = pending + excluded.pending,
                last_seen_height = excluded.last_seen_height,
                updated_at = excluded.updated_at`,
			credit.Address,
			int64(credit.Amount),
			int64(credit.Amount),
			block.Height,
			now,
		)
		if err != nil {
			return fmt.Errorf("credit participant %s: %w", credit.Address, err)
		}
	}

	if err := setMetaTx(ctx, tx, metaTipHeight, fmt.Sprintf("%d", block.Height)); err != nil {
		return err
	}
	if err := setMetaTx(ctx, tx, metaTipHash, block.Hash); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit block %d: %w", block.Height, err)
	}
	return nil
}

// RollbackBlock reverses the credits of the pool block at the given height,
// if one was recorded, and moves the tip back to the previous block. The
// caller supplies the previous block's hash as reported by the node.
func (s *Store) RollbackBlock(ctx context.Context, height int64, prevHash string) error {
	now := timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rollback tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT address, amount FROM block_credits WHERE height = ?`, height)
	if err != nil {
		return fmt.Errorf("load credits at %d: %w", height, err)
	}
	var credits []Credit
	for rows.Next() {
		var credit Credit
		var amount int64
		if err := rows.Scan(&credit.Address, &amount); err != nil {
			rows.Close()
			return fmt.Errorf("scan credit: %w", err)
		}
		credit.Amount = Amount(amount)
		credits = append(credits, credit)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate credits: %w", err)
	}
	rows.Close()

	for _, credit := range credits {
		_, err = tx.ExecContext(
			ctx,
			`UPDATE participants SET
                accumulated = accumulated - ?,
                pending = MAX(pending - ?, 0),
                updated_at = ?
             WHERE address = ?`,
			int64(credit.Amount),
			int64(credit.Amount),
			now,
			credit.Address,
		)
		if err != nil {
			return fmt.Errorf("reverse credit for %s: %w", credit.Address, err)
		}
	}

	// block_credits rows cascade with the block row.
	if _, err := tx.ExecContext(ctx, `DELETE FROM pool_blocks WHERE height = ?`, height); err != nil {
		return fmt.Errorf("delete block %d: %w", height, err)
	}

	if err := setMetaTx(ctx, tx, metaTipHeight, fmt.Sprintf("%d", height-1)); err != nil {
		return err
	}
	if err := setMetaTx(ctx, tx, metaTipHash, prevHash); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rollback %d: %w", height, err)
	}
	return nil
}

// Block fetches a recorded pool block by height.
func (s *Store) Block(ctx context.Context, height int64) (*Block, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT height, hash, staker_address, reward, pool_fee, stake_bonus, distributed, found_at
         FROM pool_blocks WHERE height = ?`,
		height,
	)
	block, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get block %d: %w", height, err)
	}
	return block, nil
}

// Blocks returns the most recently found pool blocks, newest first.
func (s *Store) Blocks(ctx context.Context, limit int) ([]*Block, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT height, hash, staker_address, reward, pool_fee, stake_bonus, distributed, found_at
         FROM pool_blocks ORDER BY height DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*Block
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}

// BlockCredits returns the per-participant credits recorded for a block.
func (s *Store) BlockCredits(ctx context.Context, height int64) ([]Credit, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT address, amount FROM block_credits WHERE height = ? ORDER BY address`,
		height,
	)
	if err != nil {
		return nil, fmt.Errorf("list credits: %w", err)
	}
	defer rows.Close()

	var credits []Credit
	for rows.Next() {
		var credit Credit
		var amount int64
		if err := rows.Scan(&credit.Address, &amount); err != nil {
			return nil, fmt.Errorf("scan credit: %w", err)
		}
		credit.Amount = Amount(amount)
		credits = append(credits, credit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credits: %w", err)
	}
	return credits, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlock(row rowScanner) (*Block, error) {
	var block Block
	var reward, fee, bonus, distributed int64
	var foundAt string
	if err := row.Scan(&block.Height, &block.Hash, &block.StakerAddress, &reward, &fee, &bonus, &distributed, &foundAt); err != nil {
		return nil, err
	}
	block.Reward = Amount(reward)
	block.PoolFee = Amount(fee)
	block.StakeBonus = Amount(bonus)
	block.Distributed = Amount(distributed)
	block.FoundAt = parseTimestamp(foundAt)
	return &block, nil
}

func (s *Store) meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM pool_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read meta %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) metaInt(ctx context.Context, key string) (int64, error) {
	value, err := s.meta(ctx, key)
	if err != nil || value == "" {
		return 0, err
	}
	var parsed int64
	if _, err := fmt.Sscanf(value, "%d", &parsed); err != nil {
		return 0, fmt.Errorf("parse meta %s=%q: %w", key, value, err)
	}
	return parsed, nil
}

// SetMeta stores a metadata key outside any other transaction.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO pool_meta (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

func setMetaTx(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO pool_meta (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// Chain returns the chain name the database was created for, recording it on
// first use. Opening a mainnet database with a testnet pool is refused.
func (s *Store) Chain(ctx context.Context, chain string) (string, error) {
	stored, err := s.meta(ctx, metaChain)
	if err != nil {
		return "", err
	}
	if stored == "" {
		if err := s.SetMeta(ctx, metaChain, chain); err != nil {
			return "", err
		}
		return chain, nil
	}
	if stored != chain {
		return stored, fmt.Errorf("database belongs to chain %q, pool configured for %q", stored, chain)
	}
	return stored, nil
}
