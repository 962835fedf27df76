// Package prepare performs one-shot pool setup: it installs the node
// release, writes capricoinplus.conf, boots a temporary node to create and
// seed the pool_stake and pool_reward wallets, and writes stakepool.json.
// Observer setups fetch the master pool's settings file instead of creating
// wallets.
package prepare
