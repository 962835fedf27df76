package capricoind

import "context"

// BlockchainInfo is the subset of getblockchaininfo the pool uses.
type BlockchainInfo struct {
	Chain                string `json:"chain"`
	Blocks               int64  `json:"blocks"`
	BestBlockHash        string `json:"bestblockhash"`
	InitialBlockDownload bool   `json:"initialblockdownload"`
}

// NetworkInfo is the subset of getnetworkinfo the pool uses.
type NetworkInfo struct {
	Version    int64  `json:"version"`
	Subversion string `json:"subversion"`
}

// BlockHeader is the subset of getblockheader the pool uses.
type BlockHeader struct {
	Hash              string `json:"hash"`
	Height            int64  `json:"height"`
	PreviousBlockHash string `json:"previousblockhash"`
	Time              int64  `json:"time"`
}

// ScriptPubKey carries the address information attached to an output. Cold
// staking outputs report both the spending addresses and the delegated stake
// addresses.
type ScriptPubKey struct {
	Type           string   `json:"type"`
	Addresses      []string `json:"addresses"`
	StakeAddresses []string `json:"stakeaddresses"`
}

// Vout is one transaction output from a verbose getblock result.
type Vout struct {
	Value        float64      `json:"value"`
	N            int          `json:"n"`
	ScriptPubKey ScriptPubKey `json:"scriptPubKey"`
}

// Tx is one transaction from a verbose getblock result.
type Tx struct {
	Txid string `json:"txid"`
	Vout []Vout `json:"vout"`
}

// Block is a verbose getblock result with transaction detail.
type Block struct {
	Hash              string `json:"hash"`
	Height            int64  `json:"height"`
	PreviousBlockHash string `json:"previousblockhash"`
	Time              int64  `json:"time"`
	Tx                []Tx   `json:"tx"`
}

// Coinstake returns the block's coinstake transaction. Proof-of-stake blocks
// carry it as the first transaction.
func (b *Block) Coinstake() *Tx {
	if b == nil || len(b.Tx) == 0 {
		return nil
	}
	return &b.Tx[0]
}

// ColdStakeOutput is one entry from listcoldstakeunspent: an unspent output
// delegated to the pool's stake address, with the participant's spending
// address and coin value.
type ColdStakeOutput struct {
	Height       int64   `json:"height"`
	Value        float64 `json:"value"`
	SpendAddress string  `json:"addrspend"`
}

// GetBlockchainInfo returns chain sync state.
func (c *Client) GetBlockchainInfo(ctx context.Context) (*BlockchainInfo, error) {
	var info BlockchainInfo
	if err := c.call(ctx, &info, "getblockchaininfo"); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetNetworkInfo returns node version information.
func (c *Client) GetNetworkInfo(ctx context.Context) (*NetworkInfo, error) {
	var info NetworkInfo
	if err := c.call(ctx, &info, "getnetworkinfo"); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetBestBlockHash returns the current tip hash.
func (c *Client) GetBestBlockHash(ctx context.Context) (string, error) {
	var hash string
	if err := c.call(ctx, &hash, "getbestblockhash"); err != nil {
		return "", err
	}
	return hash, nil
}

// GetBlockHash returns the hash of the block at the given height.
func (c *Client) GetBlockHash(ctx context.Context, height int64) (string, error) {
	var hash string
	if err := c.call(ctx, &hash, "getblockhash", height); err != nil {
		return "", err
	}
	return hash, nil
}

// GetBlockHeader returns header detail for a block hash.
func (c *Client) GetBlockHeader(ctx context.Context, hash string) (*BlockHeader, error) {
	var header BlockHeader
	if err := c.call(ctx, &header, "getblockheader", hash); err != nil {
		return nil, err
	}
	return &header, nil
}

// GetBlock returns a block with full transaction detail (verbosity 2).
func (c *Client) GetBlock(ctx context.Context, hash string) (*Block, error) {
	var block Block
	if err := c.call(ctx, &block, "getblock", hash, 2); err != nil {
		return nil, err
	}
	return &block, nil
}

type blockRewardResult struct {
	BlockReward float64 `json:"blockreward"`
}

// GetBlockReward returns the staking reward minted at the given height, in
// whole coins.
func (c *Client) GetBlockReward(ctx context.Context, height int64) (float64, error) {
	var result blockRewardResult
	if err := c.call(ctx, &result, "getblockreward", height); err != nil {
		return 0, err
	}
	return result.BlockReward, nil
}

// ListColdStakeUnspent returns the cold-staking outputs delegated to the
// given stake address as of the given height. Requires csindex=1 on the node.
func (c *Client) ListColdStakeUnspent(ctx context.Context, stakeAddress string, height int64) ([]ColdStakeOutput, error) {
	var outputs []ColdStakeOutput
	if err := c.call(ctx, &outputs, "listcoldstakeunspent", stakeAddress, height); err != nil {
		return nil, err
	}
	return outputs, nil
}

// Stop asks the node to shut down.
func (c *Client) Stop(ctx context.Context) error {
	return c.call(ctx, nil, "stop")
}
