package api

import (
	"time"

	"coldstakepool/internal/config"
	"coldstakepool/internal/pool"
)

const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FromSummary builds a PoolStatus from store totals and the pool settings.
func FromSummary(summary *pool.Summary, settings *config.Settings, chain config.Chain) PoolStatus {
	status := PoolStatus{
		Mode:             settings.Mode,
		Chain:            string(chain),
		PoolAddress:      settings.PoolAddress,
		RewardAddress:    settings.RewardAddress,
		LastHeight:       summary.LastHeight,
		LastBlockHash:    summary.LastBlockHash,
		BlocksFound:      summary.BlocksFound,
		Participants:     summary.Participants,
		TotalReward:      summary.TotalReward.String(),
		TotalPoolFees:    summary.TotalPoolFees.String(),
		TotalDistributed: summary.TotalDistributed.String(),
		TotalPending:     summary.TotalPending.String(),
		TotalPaid:        summary.TotalPaid.String(),
		LastPayoutHeight: summary.LastPayoutHeight,
	}
	params := settings.ParamsForHeight(summary.LastHeight)
	status.Parameters = Parameters{
		Height:                   params.Height,
		PoolFeePercent:           params.PoolFeePercent,
		StakeBonusPercent:        params.StakeBonusPercent,
		PayoutThreshold:          params.PayoutThreshold,
		MinBlocksBetweenPayments: params.MinBlocksBetweenPayments,
		MinOutputValue:           params.MinOutputValue,
	}
	return status
}

// FromParticipant builds a ParticipantStatus with optional payout history.
func FromParticipant(participant *pool.Participant, payouts []*pool.Payout) ParticipantStatus {
	status := ParticipantStatus{
		Address:        participant.Address,
		Accumulated:    participant.Accumulated.String(),
		Pending:        participant.Pending.String(),
		TotalPaid:      participant.TotalPaid.String(),
		LastSeenHeight: participant.LastSeenHeight,
	}
	for _, payout := range payouts {
		status.Payouts = append(status.Payouts, FromPayout(payout))
	}
	return status
}

// FromBlock converts a recorded pool block.
func FromBlock(block *pool.Block) BlockSummary {
	return BlockSummary{
		Height:        block.Height,
		Hash:          block.Hash,
		StakerAddress: block.StakerAddress,
		Reward:        block.Reward.String(),
		PoolFee:       block.PoolFee.String(),
		StakeBonus:    block.StakeBonus.String(),
		Distributed:   block.Distributed.String(),
		FoundAt:       formatTime(block.FoundAt),
	}
}

// FromPayout converts a payout row.
func FromPayout(payout *pool.Payout) Payout {
	return Payout{
		BatchID:   payout.BatchID,
		Address:   payout.Address,
		Amount:    payout.Amount.String(),
		Txid:      payout.Txid,
		Status:    payout.Status,
		Height:    payout.Height,
		CreatedAt: formatTime(payout.CreatedAt),
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}
