package coreinstall

import (
	"os"
	"strings"

	"coldstakepool/internal/config"
)

// Defaults for the capricoinplus-core release environment.
const (
	DefaultBinDir     = "~/capricoinplus-binaries"
	DefaultDaemonName = "capricoinplusd"
	DefaultCLIName    = "capricoinplus-cli"
	DefaultTxName     = "capricoinplus-tx"
	DefaultVersion    = "0.18.1.7"
	DefaultArch       = "x86_64-linux-gnu.tar.gz"
	DefaultRepo       = "Capricoinofficial"
)

// Env captures the release selection knobs the tools read from the
// environment: CAPRICOINPLUS_BINDIR, CAPRICOINPLUSD, CAPRICOINPLUS_CLI,
// CAPRICOINPLUS_VERSION, CAPRICOINPLUS_VERSION_TAG, CAPRICOINPLUS_ARCH and
// CAPRICOINPLUS_REPO.
type Env struct {
	BinDir     string
	DaemonName string
	CLIName    string
	TxName     string
	Version    string
	VersionTag string
	Arch       string
	Repo       string
}

// FromEnv resolves the release environment, expanding the bin directory.
func FromEnv() (Env, error) {
	env := Env{
		BinDir:     envOr("CAPRICOINPLUS_BINDIR", DefaultBinDir),
		DaemonName: envOr("CAPRICOINPLUSD", DefaultDaemonName),
		CLIName:    envOr("CAPRICOINPLUS_CLI", DefaultCLIName),
		TxName:     envOr("CAPRICOINPLUS_TX", DefaultTxName),
		Version:    envOr("CAPRICOINPLUS_VERSION", DefaultVersion),
		VersionTag: os.Getenv("CAPRICOINPLUS_VERSION_TAG"),
		Arch:       envOr("CAPRICOINPLUS_ARCH", DefaultArch),
		Repo:       envOr("CAPRICOINPLUS_REPO", DefaultRepo),
	}
	expanded, err := config.ExpandPath(env.BinDir)
	if err != nil {
		return Env{}, err
	}
	env.BinDir = expanded
	return env, nil
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
