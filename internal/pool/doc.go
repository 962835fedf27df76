// Package pool implements the cold staking pool's accounting core: the
// SQLite-backed store of found blocks, participant balances and payout
// batches, the reward distribution arithmetic, and the engine that follows
// the chain via node RPC and keeps the store consistent across reorgs.
package pool
