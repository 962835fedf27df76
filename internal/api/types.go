package api

// VersionResponse is the payload of GET /json/version. Both fields are
// strings; core carries the node's numeric version (e.g. "18001000").
type VersionResponse struct {
	Pool string `json:"pool"`
	Core string `json:"core"`
}

// Parameters is the reward split in force at the reported height.
type Parameters struct {
	Height                   int64   `json:"height"`
	PoolFeePercent           float64 `json:"poolfeepercent"`
	StakeBonusPercent        float64 `json:"stakebonuspercent"`
	PayoutThreshold          float64 `json:"payoutthreshold"`
	MinBlocksBetweenPayments int64   `json:"minblocksbetweenpayments"`
	MinOutputValue           float64 `json:"minoutputvalue"`
}

// PoolStatus is the payload of GET /json.
type PoolStatus struct {
	Mode             string     `json:"mode"`
	Chain            string     `json:"chain"`
	PoolAddress      string     `json:"pooladdress"`
	RewardAddress    string     `json:"rewardaddress"`
	LastHeight       int64      `json:"lastheight"`
	LastBlockHash    string     `json:"lastblockhash"`
	BlocksFound      int64      `json:"blocksfound"`
	Participants     int64      `json:"participants"`
	TotalReward      string     `json:"totalreward"`
	TotalPoolFees    string     `json:"totalpoolfees"`
	TotalDistributed string     `json:"totaldistributed"`
	TotalPending     string     `json:"totalpending"`
	TotalPaid        string     `json:"totalpaid"`
	LastPayoutHeight int64      `json:"lastpayoutheight"`
	Parameters       Parameters `json:"parameters"`
}

// ParticipantStatus is the payload of GET /json/address/{addr}.
type ParticipantStatus struct {
	Address        string   `json:"address"`
	Accumulated    string   `json:"accumulated"`
	Pending        string   `json:"pending"`
	TotalPaid      string   `json:"totalpaid"`
	LastSeenHeight int64    `json:"lastseenheight"`
	Payouts        []Payout `json:"payouts,omitempty"`
}

// BlockSummary is one entry of GET /json/blocks.
type BlockSummary struct {
	Height        int64  `json:"height"`
	Hash          string `json:"hash"`
	StakerAddress string `json:"stakeraddress"`
	Reward        string `json:"reward"`
	PoolFee       string `json:"poolfee"`
	StakeBonus    string `json:"stakebonus"`
	Distributed   string `json:"distributed"`
	FoundAt       string `json:"foundat"`
}

// Payout is one recipient row of a payout batch.
type Payout struct {
	BatchID   string `json:"batchid"`
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	Txid      string `json:"txid,omitempty"`
	Status    string `json:"status"`
	Height    int64  `json:"height"`
	CreatedAt string `json:"createdat"`
}

// BlocksResponse wraps GET /json/blocks.
type BlocksResponse struct {
	Blocks []BlockSummary `json:"blocks"`
}

// PayoutsResponse wraps GET /json/payouts.
type PayoutsResponse struct {
	Payouts []Payout `json:"payouts"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
