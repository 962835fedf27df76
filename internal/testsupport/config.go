package testsupport

import (
	"testing"

	"coldstakepool/internal/config"
)

// NewConfig produces an ambient config tuned for fast tests.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Engine.PollInterval = 1
	cfg.Engine.ErrorRetryInterval = 1
	cfg.RPC.User = "test"
	cfg.RPC.Password = "test"
	return &cfg
}

// SettingsOption allows callers to customize the generated pool settings.
type SettingsOption func(*config.Settings)

// NewSettings produces master-mode pool settings with placeholder addresses
// and parameters that trigger payouts quickly.
func NewSettings(t testing.TB, opts ...SettingsOption) *config.Settings {
	t.Helper()

	settings := config.DefaultSettings(config.ChainRegtest, t.TempDir(), t.TempDir())
	settings.StartHeight = 1
	settings.PoolAddress = "pcs1qpoolstakeaddress"
	settings.RewardAddress = "PcRewardAddress"
	settings.Parameters = []config.Parameters{{
		Height:                   0,
		PoolFeePercent:           3,
		StakeBonusPercent:        5,
		PayoutThreshold:          0.5,
		MinBlocksBetweenPayments: 10,
		MinOutputValue:           0.1,
	}}
	for _, opt := range opts {
		opt(settings)
	}
	return settings
}

// WithObserverMode switches the generated settings to observer mode.
func WithObserverMode() SettingsOption {
	return func(s *config.Settings) {
		s.Mode = config.ModeObserver
	}
}

// WithStartHeight overrides the accounting start height.
func WithStartHeight(height int64) SettingsOption {
	return func(s *config.Settings) {
		s.StartHeight = height
	}
}
