package capricoind

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// GetNewAddress derives a fresh receive address from the wallet.
func (c *Client) GetNewAddress(ctx context.Context) (string, error) {
	var addr string
	if err := c.call(ctx, &addr, "getnewaddress"); err != nil {
		return "", err
	}
	return addr, nil
}

// ValidateAddressResult is the subset of validateaddress the pool uses. The
// stakeonly form is present when the queried address can be encoded for
// cold-stake delegation.
type ValidateAddressResult struct {
	IsValid          bool   `json:"isvalid"`
	Address          string `json:"address"`
	StakeOnlyAddress string `json:"stakeonly_address"`
}

// ValidateAddress checks an address and optionally requests extended detail.
func (c *Client) ValidateAddress(ctx context.Context, address string, detail bool) (*ValidateAddressResult, error) {
	var result ValidateAddressResult
	var err error
	if detail {
		err = c.call(ctx, &result, "validateaddress", address, true)
	} else {
		err = c.call(ctx, &result, "validateaddress", address)
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ImportAddress adds a watch-only address to the wallet.
func (c *Client) ImportAddress(ctx context.Context, address string) error {
	return c.call(ctx, nil, "importaddress", address)
}

type mnemonicResult struct {
	Mnemonic string `json:"mnemonic"`
}

// MnemonicNew generates a fresh recovery phrase.
func (c *Client) MnemonicNew(ctx context.Context) (string, error) {
	var result mnemonicResult
	if err := c.call(ctx, &result, "mnemonic", "new"); err != nil {
		return "", err
	}
	if strings.TrimSpace(result.Mnemonic) == "" {
		return "", errors.New("node returned empty mnemonic")
	}
	return result.Mnemonic, nil
}

// ExtKeyImportMaster seeds the wallet from a recovery phrase.
func (c *Client) ExtKeyImportMaster(ctx context.Context, mnemonic string) error {
	return c.call(ctx, nil, "extkeyimportmaster", mnemonic)
}

// WalletSettings applies a settings object under the given key, e.g.
// stakingoptions.
func (c *Client) WalletSettings(ctx context.Context, key string, settings map[string]any) error {
	return c.call(ctx, nil, "walletsettings", key, settings)
}

// SendMany sends to multiple addresses in one transaction and returns the
// txid. Amounts are whole-coin values keyed by address.
func (c *Client) SendMany(ctx context.Context, comment string, amounts map[string]float64) (string, error) {
	if len(amounts) == 0 {
		return "", errors.New("sendmany requires at least one output")
	}
	outputs := make(map[string]json.Number, len(amounts))
	for addr, value := range amounts {
		outputs[addr] = coinNumber(value)
	}
	var txid string
	if err := c.call(ctx, &txid, "sendmany", "", outputs, 1, comment); err != nil {
		return "", err
	}
	return txid, nil
}
