package config

import "fmt"

// Chain identifies which capricoinplus network the pool follows.
type Chain string

const (
	ChainMainnet Chain = "mainnet"
	ChainTestnet Chain = "testnet"
	ChainRegtest Chain = "regtest"
)

// ParseChain validates a chain name.
func ParseChain(value string) (Chain, error) {
	switch Chain(value) {
	case ChainMainnet, ChainTestnet, ChainRegtest:
		return Chain(value), nil
	case "":
		return ChainMainnet, nil
	}
	return "", fmt.Errorf("unknown chain %q", value)
}

// ChainFromFlags maps the testnet/regtest boolean flags the tools expose to
// a Chain. Regtest takes precedence when both are set.
func ChainFromFlags(testnet, regtest bool) Chain {
	switch {
	case regtest:
		return ChainRegtest
	case testnet:
		return ChainTestnet
	}
	return ChainMainnet
}

// RPCPort returns the default node RPC port for the chain.
func (c Chain) RPCPort() int {
	switch c {
	case ChainTestnet:
		return 20892
	case ChainRegtest:
		return 20992
	}
	return 20792
}

// ZMQPort returns the zmqpubhashblock port written into capricoinplus.conf.
func (c Chain) ZMQPort() int {
	if c == ChainMainnet {
		return 207922
	}
	return 208922
}

// HTMLPort returns the default status API port.
func (c Chain) HTMLPort() int {
	if c == ChainMainnet {
		return 9000
	}
	return 9001
}

// ConfPrefix returns the per-chain key prefix used in capricoinplus.conf
// wallet entries.
func (c Chain) ConfPrefix() string {
	switch c {
	case ChainTestnet:
		return "test."
	case ChainRegtest:
		return "regtest."
	}
	return ""
}

// DataSubdir returns the chain's subdirectory inside the node datadir, empty
// for mainnet.
func (c Chain) DataSubdir() string {
	switch c {
	case ChainTestnet:
		return "testnet"
	case ChainRegtest:
		return "regtest"
	}
	return ""
}
