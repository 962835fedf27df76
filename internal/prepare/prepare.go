package prepare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"coldstakepool/internal/config"
	"coldstakepool/internal/logging"
	"coldstakepool/internal/services/capricoind"
	"coldstakepool/internal/services/coreinstall"
)

// Options selects what the prepare run sets up.
type Options struct {
	DataDir              string
	PoolDir              string
	Chain                config.Chain
	Mode                 string
	ConfigURL            string
	StakeWalletMnemonic  string
	RewardWalletMnemonic string
}

// Result carries the artifacts of a prepare run. Mnemonic fields are only
// set for master pools; the caller must show them to the operator exactly
// once.
type Result struct {
	DataDir              string
	PoolDir              string
	SettingsPath         string
	PoolAddress          string
	RewardAddress        string
	StakeWalletMnemonic  string
	RewardWalletMnemonic string
}

// Preparer runs the setup flow.
type Preparer struct {
	opts       Options
	env        coreinstall.Env
	logger     *slog.Logger
	httpClient *http.Client

	install   func(ctx context.Context) error
	launch    func(ctx context.Context, dataDir string) error
	newClient func(chain config.Chain, dataDir string) (*capricoind.Client, error)
}

// Option overrides a Preparer collaborator, primarily for tests.
type Option func(*Preparer)

// WithHTTPClient overrides the client used to fetch remote settings.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Preparer) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithInstallFunc overrides the core release install step.
func WithInstallFunc(install func(ctx context.Context) error) Option {
	return func(p *Preparer) {
		if install != nil {
			p.install = install
		}
	}
}

// WithLaunchFunc overrides how the node daemon is started.
func WithLaunchFunc(launch func(ctx context.Context, dataDir string) error) Option {
	return func(p *Preparer) {
		if launch != nil {
			p.launch = launch
		}
	}
}

// WithClientFactory overrides how the node RPC client is built.
func WithClientFactory(factory func(chain config.Chain, dataDir string) (*capricoind.Client, error)) Option {
	return func(p *Preparer) {
		if factory != nil {
			p.newClient = factory
		}
	}
}

// New validates the options, resolves directories and builds a Preparer.
func New(opts Options, env coreinstall.Env, logger *slog.Logger, popts ...Option) (*Preparer, error) {
	switch opts.Mode {
	case "":
		opts.Mode = config.ModeMaster
	case config.ModeMaster, config.ModeObserver:
	default:
		return nil, fmt.Errorf("unknown pool mode %q", opts.Mode)
	}
	if opts.Mode == config.ModeObserver && opts.ConfigURL == "" {
		return nil, errors.New("observer mode requires --configurl")
	}

	dataDir, poolDir, err := ResolveDirs(opts.DataDir, opts.PoolDir, opts.Chain)
	if err != nil {
		return nil, err
	}
	opts.DataDir = dataDir
	opts.PoolDir = poolDir

	p := &Preparer{
		opts:       opts,
		env:        env,
		logger:     logging.NewComponentLogger(logger, "prepare"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	p.install = func(ctx context.Context) error {
		installer := coreinstall.New(p.env, p.logger)
		if err := installer.Download(ctx); err != nil {
			return err
		}
		return installer.Extract(ctx)
	}
	p.launch = func(ctx context.Context, dataDir string) error {
		return launchNode(ctx, p.env.BinDir, p.env.DaemonName, dataDir)
	}
	p.newClient = func(chain config.Chain, dataDir string) (*capricoind.Client, error) {
		return capricoind.New(capricoind.ResolveConfig(config.RPC{}, chain, dataDir))
	}
	for _, opt := range popts {
		opt(p)
	}
	return p, nil
}

// ResolveDirs expands the data and pool directories, applying the historical
// defaults: ~/.capricoinplus for the node, and stakepool under the chain
// subdirectory when the datadir itself was defaulted.
func ResolveDirs(dataDir, poolDir string, chain config.Chain) (string, string, error) {
	dataDirDefaulted := dataDir == ""
	if dataDirDefaulted {
		dataDir = "~/.capricoinplus"
	}
	dataDir, err := config.ExpandPath(dataDir)
	if err != nil {
		return "", "", err
	}

	if poolDir == "" {
		if dataDirDefaulted {
			poolDir = filepath.Join(dataDir, chain.DataSubdir(), "stakepool")
		} else {
			poolDir = filepath.Join(dataDir, "stakepool")
		}
	} else {
		poolDir, err = config.ExpandPath(poolDir)
		if err != nil {
			return "", "", err
		}
	}
	return dataDir, poolDir, nil
}

// Run executes the full prepare flow and returns the created artifacts.
func (p *Preparer) Run(ctx context.Context) (*Result, error) {
	if err := os.MkdirAll(p.env.BinDir, 0o755); err != nil {
		return nil, fmt.Errorf("create binaries dir: %w", err)
	}
	if err := p.install(ctx); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(p.opts.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create node datadir: %w", err)
	}
	if err := os.MkdirAll(p.opts.PoolDir, 0o700); err != nil {
		return nil, fmt.Errorf("create pool dir: %w", err)
	}

	confPath, err := WriteNodeConf(p.opts.DataDir, p.opts.Chain)
	if err != nil {
		return nil, err
	}
	p.logger.Info("wrote node configuration", logging.String("path", confPath))

	if err := p.launch(ctx, p.opts.DataDir); err != nil {
		return nil, err
	}
	client, err := p.newClient(p.opts.Chain, p.opts.DataDir)
	if err != nil {
		return nil, err
	}
	if err := waitForRPC(ctx, client); err != nil {
		return nil, err
	}
	defer func() {
		// The setup node must stop even when the flow fails partway.
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			p.logger.Warn("failed to stop setup node", logging.Error(err))
		}
	}()

	if p.opts.Mode == config.ModeObserver {
		return p.runObserver(ctx, client)
	}
	return p.runMaster(ctx, client)
}

func (p *Preparer) runMaster(ctx context.Context, client *capricoind.Client) (*Result, error) {
	stakeWallet := client.Wallet(StakeWalletName)
	rewardWallet := client.Wallet(RewardWalletName)

	stakeMnemonic := p.opts.StakeWalletMnemonic
	if stakeMnemonic == "" {
		var err error
		if stakeMnemonic, err = client.MnemonicNew(ctx); err != nil {
			return nil, fmt.Errorf("generate stake wallet mnemonic: %w", err)
		}
	}
	rewardMnemonic := p.opts.RewardWalletMnemonic
	if rewardMnemonic == "" {
		var err error
		if rewardMnemonic, err = client.MnemonicNew(ctx); err != nil {
			return nil, fmt.Errorf("generate reward wallet mnemonic: %w", err)
		}
	}

	if err := stakeWallet.ExtKeyImportMaster(ctx, stakeMnemonic); err != nil {
		return nil, fmt.Errorf("seed stake wallet: %w", err)
	}
	if err := rewardWallet.ExtKeyImportMaster(ctx, rewardMnemonic); err != nil {
		return nil, fmt.Errorf("seed reward wallet: %w", err)
	}

	// Participants delegate to the stake-only form of the pool address.
	baseAddress, err := stakeWallet.GetNewAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("derive pool address: %w", err)
	}
	validated, err := stakeWallet.ValidateAddress(ctx, baseAddress, true)
	if err != nil {
		return nil, fmt.Errorf("validate pool address: %w", err)
	}
	if validated.StakeOnlyAddress == "" {
		return nil, fmt.Errorf("address %s has no stake-only form", baseAddress)
	}
	poolAddress := validated.StakeOnlyAddress

	rewardAddress, err := rewardWallet.GetNewAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("derive reward address: %w", err)
	}

	if err := rewardWallet.WalletSettings(ctx, "stakingoptions", map[string]any{"enabled": "false"}); err != nil {
		return nil, fmt.Errorf("disable staking on reward wallet: %w", err)
	}
	if err := stakeWallet.WalletSettings(ctx, "stakingoptions", map[string]any{"rewardaddress": rewardAddress}); err != nil {
		return nil, fmt.Errorf("set staking reward address: %w", err)
	}

	settings := config.DefaultSettings(p.opts.Chain, p.env.BinDir, p.opts.DataDir)
	settings.PoolAddress = poolAddress
	settings.RewardAddress = rewardAddress
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := settings.Save(p.opts.PoolDir); err != nil {
		return nil, err
	}

	p.logger.Info("master pool prepared",
		logging.String("pool_address", poolAddress),
		logging.String("reward_address", rewardAddress),
	)
	return &Result{
		DataDir:              p.opts.DataDir,
		PoolDir:              p.opts.PoolDir,
		SettingsPath:         filepath.Join(p.opts.PoolDir, config.SettingsFileName),
		PoolAddress:          poolAddress,
		RewardAddress:        rewardAddress,
		StakeWalletMnemonic:  stakeMnemonic,
		RewardWalletMnemonic: rewardMnemonic,
	}, nil
}
