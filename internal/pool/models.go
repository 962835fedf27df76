package pool

import "time"

// Payout statuses.
const (
	// PayoutStatusPending marks rows in a batch that has been recorded but
	// not broadcast. Observer pools leave expected batches in this state.
	PayoutStatusPending = "pending"
	// PayoutStatusSent marks rows whose batch transaction was accepted by
	// the wallet.
	PayoutStatusSent = "sent"
	// PayoutStatusConfirmed marks rows whose batch transaction has reached
	// the configured confirmation depth.
	PayoutStatusConfirmed = "confirmed"
	// PayoutStatusFailed marks rows whose batch send was rejected. Their
	// amounts are returned to the participants' pending balances.
	PayoutStatusFailed = "failed"
)

// Block is a chain block the pool staked, with the accounting split applied
// to its reward.
type Block struct {
	Height        int64
	Hash          string
	StakerAddress string
	Reward        Amount
	PoolFee       Amount
	StakeBonus    Amount
	Distributed   Amount
	FoundAt       time.Time
}

// Participant is the running balance for one cold-staking spend address.
type Participant struct {
	Address        string
	Accumulated    Amount
	Pending        Amount
	TotalPaid      Amount
	LastSeenHeight int64
	UpdatedAt      time.Time
}

// Payout is one recipient row of a payout batch.
type Payout struct {
	ID        int64
	BatchID   string
	Address   string
	Amount    Amount
	Txid      string
	Status    string
	Height    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credit is one participant's share of a block reward.
type Credit struct {
	Address string
	Amount  Amount
}

// Stake is one participant's delegated cold-staking weight at a height.
type Stake struct {
	Address string
	Value   Amount
}

// Summary aggregates store totals for the status surfaces.
type Summary struct {
	LastHeight       int64
	LastBlockHash    string
	BlocksFound      int64
	TotalReward      Amount
	TotalPoolFees    Amount
	TotalDistributed Amount
	TotalPending     Amount
	TotalPaid        Amount
	Participants     int64
	LastPayoutHeight int64
}
