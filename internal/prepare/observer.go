package prepare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/tidwall/gjson"

	"coldstakepool/internal/config"
	"coldstakepool/internal/logging"
	"coldstakepool/internal/services"
	"coldstakepool/internal/services/capricoind"
)

const maxSettingsSize = 1 << 20

func (p *Preparer) runObserver(ctx context.Context, client *capricoind.Client) (*Result, error) {
	raw, err := p.fetchRemoteSettings(ctx)
	if err != nil {
		return nil, err
	}

	poolAddress := gjson.GetBytes(raw, "pooladdress").String()
	rewardAddress := gjson.GetBytes(raw, "rewardaddress").String()
	if poolAddress == "" || rewardAddress == "" {
		return nil, fmt.Errorf("remote settings missing pool addresses")
	}

	var settings config.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("parse remote settings: %w", err)
	}
	settings.Mode = config.ModeObserver
	settings.CapricoinPlusBinDir = p.env.BinDir
	settings.CapricoinPlusDataDir = p.opts.DataDir

	validated, err := client.ValidateAddress(ctx, poolAddress, false)
	if err != nil {
		return nil, fmt.Errorf("validate pool address: %w", err)
	}
	if !validated.IsValid {
		return nil, fmt.Errorf("remote pool address %q is not valid on this chain", poolAddress)
	}

	// Watch-only imports let the observer's node index the pool's activity.
	if err := client.Wallet(StakeWalletName).ImportAddress(ctx, validated.Address); err != nil {
		return nil, fmt.Errorf("import pool address: %w", err)
	}
	if err := client.Wallet(RewardWalletName).ImportAddress(ctx, rewardAddress); err != nil {
		return nil, fmt.Errorf("import reward address: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := settings.Save(p.opts.PoolDir); err != nil {
		return nil, err
	}

	p.logger.Info("observer pool prepared",
		logging.String("pool_address", poolAddress),
		logging.String("config_url", p.opts.ConfigURL),
	)
	return &Result{
		DataDir:       p.opts.DataDir,
		PoolDir:       p.opts.PoolDir,
		SettingsPath:  filepath.Join(p.opts.PoolDir, config.SettingsFileName),
		PoolAddress:   poolAddress,
		RewardAddress: rewardAddress,
	}, nil
}

func (p *Preparer) fetchRemoteSettings(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.ConfigURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build settings request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "prepare", "fetch settings", p.opts.ConfigURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalTool, "prepare", "fetch settings",
			fmt.Sprintf("%s returned %d", p.opts.ConfigURL, resp.StatusCode), nil)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSettingsSize))
	if err != nil {
		return nil, fmt.Errorf("read remote settings: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("remote settings from %s are not valid json", p.opts.ConfigURL)
	}
	return raw, nil
}
