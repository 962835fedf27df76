package pool

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"coldstakepool/internal/logging"
	"coldstakepool/internal/services"
)

// maybePayout checks whether a payout batch is due at the given height and,
// for master pools, sends it through the reward wallet. Observer pools
// record the expected batch without broadcasting anything.
func (e *Engine) maybePayout(ctx context.Context, height int64) error {
	params := e.settings.ParamsForHeight(height)
	if params.MinBlocksBetweenPayments <= 0 {
		return nil
	}

	lastPayout, err := e.store.metaInt(ctx, metaLastPayoutHeight)
	if err != nil {
		return err
	}
	if lastPayout > 0 && height-lastPayout < params.MinBlocksBetweenPayments {
		return nil
	}

	threshold := FromCoins(params.PayoutThreshold)
	minOutput := FromCoins(params.MinOutputValue)
	candidates, err := e.store.PayoutCandidates(ctx, threshold, minOutput)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	batchID := uuid.NewString()
	if err := e.store.CreateBatch(ctx, batchID, height, candidates); err != nil {
		return err
	}

	var total Amount
	outputs := make(map[string]float64, len(candidates))
	for _, candidate := range candidates {
		outputs[candidate.Address] = candidate.Pending.Coins()
		total += candidate.Pending
	}

	if e.settings.Observer() {
		e.logger.Info("recorded expected payout batch",
			logging.String(logging.FieldBatchID, batchID),
			logging.Int64(logging.FieldHeight, height),
			logging.Int("recipients", len(candidates)),
			logging.String("total", total.String()),
		)
		return e.store.SetMeta(ctx, metaLastPayoutHeight, fmt.Sprintf("%d", height))
	}

	txid, err := e.wallet.SendMany(ctx, "coldstakepool payout "+batchID, outputs)
	if err != nil {
		if markErr := e.store.MarkBatchFailed(ctx, batchID); markErr != nil {
			e.logger.Error("failed to mark payout batch failed",
				logging.Error(markErr),
				logging.String(logging.FieldBatchID, batchID),
			)
		}
		_ = e.notifier.NotifyPayoutFailed(ctx, batchID, err)
		return services.Wrap(services.ErrExternalTool, "engine", "payout",
			fmt.Sprintf("send batch %s", batchID), err)
	}

	if err := e.store.MarkBatchSent(ctx, batchID, txid, height); err != nil {
		return err
	}

	e.logger.Info("payout batch sent",
		logging.String(logging.FieldBatchID, batchID),
		logging.String(logging.FieldTxid, txid),
		logging.Int64(logging.FieldHeight, height),
		logging.Int("recipients", len(candidates)),
		logging.String("total", total.String()),
	)
	_ = e.notifier.NotifyPayoutSent(ctx, batchID, txid, len(candidates), total.String())
	return nil
}
