package prepare

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"coldstakepool/internal/config"
)

// NodeConfFileName is the node configuration file written into the node
// data directory.
const NodeConfFileName = "capricoinplus.conf"

// Wallet names created for a master pool. The staking wallet holds the
// delegated cold-stake key, the reward wallet collects block rewards.
const (
	StakeWalletName  = "pool_stake"
	RewardWalletName = "pool_reward"
)

// WriteNodeConf writes capricoinplus.conf for the chain. It refuses to
// overwrite an existing file so a re-run cannot clobber a configured node.
func WriteNodeConf(dataDir string, chain config.Chain) (string, error) {
	path := filepath.Join(dataDir, NodeConfFileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s exists, refusing to overwrite", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat node conf: %w", err)
	}

	var b strings.Builder
	if chain != config.ChainMainnet {
		fmt.Fprintf(&b, "%s=1\n\n", chain)
	}
	fmt.Fprintf(&b, "zmqpubhashblock=tcp://127.0.0.1:%d\n", chain.ZMQPort())
	prefix := chain.ConfPrefix()
	fmt.Fprintf(&b, "%swallet=%s\n", prefix, StakeWalletName)
	fmt.Fprintf(&b, "%swallet=%s\n", prefix, RewardWalletName)
	b.WriteString("csindex=1\n")
	b.WriteString("addressindex=1\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return "", fmt.Errorf("write node conf: %w", err)
	}
	return path, nil
}
