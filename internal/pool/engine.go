package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"coldstakepool/internal/config"
	"coldstakepool/internal/logging"
	"coldstakepool/internal/notifications"
	"coldstakepool/internal/services"
	"coldstakepool/internal/services/capricoind"
)

// ChainRPC is the node RPC surface the engine follows the chain with.
type ChainRPC interface {
	GetBlockchainInfo(ctx context.Context) (*capricoind.BlockchainInfo, error)
	GetBlockHash(ctx context.Context, height int64) (string, error)
	GetBlock(ctx context.Context, hash string) (*capricoind.Block, error)
	GetBlockReward(ctx context.Context, height int64) (float64, error)
	ListColdStakeUnspent(ctx context.Context, stakeAddress string, height int64) ([]capricoind.ColdStakeOutput, error)
}

// RewardWallet is the wallet RPC surface payouts are sent through.
type RewardWallet interface {
	SendMany(ctx context.Context, comment string, amounts map[string]float64) (string, error)
}

// Engine follows the chain via node RPC and keeps the accounting store
// consistent: it attributes pool-staked blocks, credits participants, rolls
// back reorged blocks and triggers payout batches.
type Engine struct {
	store    *Store
	chain    ChainRPC
	wallet   RewardWallet
	settings *config.Settings
	engine   config.Engine
	notifier notifications.Service
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewEngine builds an engine. The wallet may be nil for observer pools.
func NewEngine(store *Store, chain ChainRPC, wallet RewardWallet, settings *config.Settings, engineCfg config.Engine, notifier notifications.Service, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, errors.New("engine requires a store")
	}
	if chain == nil {
		return nil, errors.New("engine requires a chain client")
	}
	if settings == nil {
		return nil, errors.New("engine requires pool settings")
	}
	if !settings.Observer() && wallet == nil {
		return nil, errors.New("master pool requires a reward wallet")
	}
	if notifier == nil {
		notifier = notifications.NewService(&config.Config{})
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	eng := &Engine{
		store:    store,
		chain:    chain,
		wallet:   wallet,
		settings: settings,
		engine:   engineCfg,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "engine"),
	}
	return eng, nil
}

// Start begins background chain following.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.wg.Add(1)
	e.mu.Unlock()

	go e.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := e.SyncOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			e.logger.Error("chain sync failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "sync_failed"),
				logging.String(logging.FieldErrorHint, "check node rpc availability"),
			)
			_ = e.notifier.NotifyError(ctx, err, "engine")
			if !services.Retryable(err) {
				e.logger.Error("stopping chain follow",
					logging.Error(err),
					logging.String(logging.FieldEventType, "sync_aborted"),
					logging.String(logging.FieldErrorHint, "fix pool settings and restart"),
				)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(e.engine.ErrorRetryInterval) * time.Second):
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(e.engine.PollInterval) * time.Second):
		}
	}
}

// SyncOnce processes every new confirmed block since the stored tip: it
// unwinds reorged blocks first, then follows the chain forward one height at
// a time, and finally considers a payout batch.
func (e *Engine) SyncOnce(ctx context.Context) error {
	info, err := e.chain.GetBlockchainInfo(ctx)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "engine", "sync", "query chain state", err)
	}
	if info.InitialBlockDownload {
		e.logger.Info("node in initial block download, waiting", logging.Int64(logging.FieldHeight, info.Blocks))
		return nil
	}

	confirmations := e.engine.Confirmations
	if confirmations < 1 {
		confirmations = 1
	}
	target := info.Blocks - int64(confirmations) + 1

	tipHeight, tipHash, err := e.store.Tip(ctx)
	if err != nil {
		return err
	}
	if tipHash == "" {
		// Fresh database: accounting starts at the configured height.
		tipHeight = e.settings.StartHeight - 1
	} else if err := e.unwindReorg(ctx, &tipHeight, &tipHash); err != nil {
		return err
	}

	for height := tipHeight + 1; height <= target; height++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.processHeight(ctx, height); err != nil {
			return err
		}
	}

	if target > tipHeight {
		// target is already confirmation-depth behind the node tip, so any
		// batch sent at or below target-1 has matured.
		if err := e.store.ConfirmBatchesBefore(ctx, target-1); err != nil {
			return err
		}
		return e.maybePayout(ctx, target)
	}
	return nil
}

// unwindReorg rolls stored blocks back until the stored tip hash matches the
// node's hash at that height.
func (e *Engine) unwindReorg(ctx context.Context, tipHeight *int64, tipHash *string) error {
	for *tipHash != "" {
		nodeHash, err := e.chain.GetBlockHash(ctx, *tipHeight)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "engine", "reorg", "query block hash", err)
		}
		if nodeHash == *tipHash {
			return nil
		}

		e.logger.Warn("chain reorg detected, rolling back",
			logging.Int64(logging.FieldHeight, *tipHeight),
			logging.String(logging.FieldBlockHash, *tipHash),
			logging.String(logging.FieldEventType, "reorg_rollback"),
		)

		prevHash, err := e.chain.GetBlockHash(ctx, *tipHeight-1)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "engine", "reorg", "query previous hash", err)
		}
		if err := e.store.RollbackBlock(ctx, *tipHeight, prevHash); err != nil {
			return err
		}
		*tipHeight--
		*tipHash = prevHash

		if *tipHeight < e.settings.StartHeight {
			return nil
		}
	}
	return nil
}

func (e *Engine) processHeight(ctx context.Context, height int64) error {
	hash, err := e.chain.GetBlockHash(ctx, height)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "engine", "sync", "query block hash", err)
	}
	block, err := e.chain.GetBlock(ctx, hash)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "engine", "sync", "fetch block", err)
	}

	staker, isPool := e.poolStaker(block.Coinstake())
	if !isPool {
		return e.store.SetTip(ctx, height, hash)
	}

	rewardCoins, err := e.chain.GetBlockReward(ctx, height)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "engine", "sync", "query block reward", err)
	}
	reward := FromCoins(rewardCoins)

	outputs, err := e.chain.ListColdStakeUnspent(ctx, e.settings.PoolAddress, height-1)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "engine", "sync", "list delegated stakes", err)
	}
	stakes := make([]Stake, 0, len(outputs))
	for _, output := range outputs {
		stakes = append(stakes, Stake{Address: output.SpendAddress, Value: FromCoins(output.Value)})
	}

	params := e.settings.ParamsForHeight(height)
	dist, err := Distribute(reward, params, staker, stakes)
	if err != nil {
		return services.Wrap(services.ErrValidation, "engine", "distribute",
			fmt.Sprintf("block %d", height), err)
	}

	record := &Block{
		Height:        height,
		Hash:          hash,
		StakerAddress: staker,
		Reward:        dist.Reward,
		PoolFee:       dist.PoolFee,
		StakeBonus:    dist.StakeBonus,
		Distributed:   dist.Distributed(),
	}
	if err := e.store.RecordBlock(ctx, record, dist.Credits); err != nil {
		return err
	}

	e.logger.Info("pool staked block",
		logging.Int64(logging.FieldHeight, height),
		logging.String(logging.FieldBlockHash, hash),
		logging.String(logging.FieldAddress, staker),
		logging.String("reward", dist.Reward.String()),
		logging.String("pool_fee", dist.PoolFee.String()),
		logging.Int("participants", len(dist.Credits)),
	)
	_ = e.notifier.NotifyBlockFound(ctx, height, staker, dist.Reward.String())
	return nil
}

// poolStaker reports whether the coinstake kernel is delegated to the pool's
// stake address, and if so which spend address staked it.
func (e *Engine) poolStaker(coinstake *capricoind.Tx) (string, bool) {
	if coinstake == nil {
		return "", false
	}
	for _, vout := range coinstake.Vout {
		for _, stakeAddress := range vout.ScriptPubKey.StakeAddresses {
			if stakeAddress != e.settings.PoolAddress {
				continue
			}
			if len(vout.ScriptPubKey.Addresses) > 0 {
				return vout.ScriptPubKey.Addresses[0], true
			}
			return "", true
		}
	}
	return "", false
}
