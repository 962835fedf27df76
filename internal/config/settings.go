package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Pool operation modes.
const (
	ModeMaster   = "master"
	ModeObserver = "observer"
)

// SettingsFileName is the pool settings file inside the pool data directory.
const SettingsFileName = "stakepool.json"

// Parameters is one height-indexed parameter set from stakepool.json. The
// set with the highest Height at or below the processed block applies.
// Threshold and value fields are denominated in whole coins.
type Parameters struct {
	Height                   int64   `json:"height"`
	PoolFeePercent           float64 `json:"poolfeepercent"`
	StakeBonusPercent        float64 `json:"stakebonuspercent"`
	PayoutThreshold          float64 `json:"payoutthreshold"`
	MinBlocksBetweenPayments int64   `json:"minblocksbetweenpayments"`
	MinOutputValue           float64 `json:"minoutputvalue"`
}

// Settings mirrors the stakepool.json layout produced by the prepare tool
// and consumed verbatim by observer pools.
type Settings struct {
	Mode                 string       `json:"mode"`
	Debug                bool         `json:"debug"`
	CapricoinPlusBinDir  string       `json:"capricoinplusbindir"`
	CapricoinPlusDataDir string       `json:"capricoinplusdatadir"`
	StartHeight          int64        `json:"startheight"`
	PoolAddress          string       `json:"pooladdress"`
	RewardAddress        string       `json:"rewardaddress"`
	ZMQHost              string       `json:"zmqhost"`
	ZMQPort              int          `json:"zmqport"`
	HTMLHost             string       `json:"htmlhost"`
	HTMLPort             int          `json:"htmlport"`
	Parameters           []Parameters `json:"parameters"`
}

// DefaultSettings returns the master-mode settings the prepare tool writes
// for a fresh pool.
func DefaultSettings(chain Chain, binDir, nodeDataDir string) *Settings {
	return &Settings{
		Mode:                 ModeMaster,
		Debug:                true,
		CapricoinPlusBinDir:  binDir,
		CapricoinPlusDataDir: nodeDataDir,
		StartHeight:          200000,
		ZMQHost:              "tcp://127.0.0.1",
		ZMQPort:              chain.ZMQPort(),
		HTMLHost:             "localhost",
		HTMLPort:             chain.HTMLPort(),
		Parameters: []Parameters{
			{
				Height:                   0,
				PoolFeePercent:           3,
				StakeBonusPercent:        5,
				PayoutThreshold:          0.5,
				MinBlocksBetweenPayments: 100,
				MinOutputValue:           0.1,
			},
		},
	}
}

// LoadSettings reads and validates stakepool.json from the pool directory.
func LoadSettings(poolDir string) (*Settings, error) {
	path := filepath.Join(poolDir, SettingsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pool settings: %w", err)
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", SettingsFileName, err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Save writes the settings file. It refuses to overwrite an existing file so
// a re-run of prepare cannot clobber a live pool's configuration.
func (s *Settings) Save(poolDir string) error {
	path := filepath.Join(poolDir, SettingsFileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s exists, refusing to overwrite", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat pool settings: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("encode pool settings: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write pool settings: %w", err)
	}
	return nil
}

// Validate checks the fields the daemon depends on.
func (s *Settings) Validate() error {
	switch s.Mode {
	case ModeMaster, ModeObserver:
	default:
		return fmt.Errorf("unknown pool mode %q", s.Mode)
	}
	if strings.TrimSpace(s.PoolAddress) == "" {
		return errors.New("pooladdress is required")
	}
	if strings.TrimSpace(s.RewardAddress) == "" {
		return errors.New("rewardaddress is required")
	}
	if len(s.Parameters) == 0 {
		return errors.New("at least one parameters entry is required")
	}
	for i, p := range s.Parameters {
		if p.Height < 0 {
			return fmt.Errorf("parameters[%d]: negative height", i)
		}
		if p.PoolFeePercent < 0 || p.PoolFeePercent > 100 {
			return fmt.Errorf("parameters[%d]: poolfeepercent out of range", i)
		}
		if p.StakeBonusPercent < 0 || p.StakeBonusPercent > 100 {
			return fmt.Errorf("parameters[%d]: stakebonuspercent out of range", i)
		}
		if p.PoolFeePercent+p.StakeBonusPercent > 100 {
			return fmt.Errorf("parameters[%d]: fee and bonus exceed 100%%", i)
		}
		if p.PayoutThreshold < 0 || p.MinOutputValue < 0 {
			return fmt.Errorf("parameters[%d]: negative threshold", i)
		}
		if p.MinBlocksBetweenPayments < 0 {
			return fmt.Errorf("parameters[%d]: negative minblocksbetweenpayments", i)
		}
	}
	if s.StartHeight < 0 {
		return errors.New("startheight must not be negative")
	}
	if s.HTMLPort < 0 || s.HTMLPort > 65535 {
		return fmt.Errorf("htmlport %d out of range", s.HTMLPort)
	}
	return nil
}

// ParamsForHeight returns the parameter set in effect at the given height.
func (s *Settings) ParamsForHeight(height int64) Parameters {
	params := make([]Parameters, len(s.Parameters))
	copy(params, s.Parameters)
	sort.Slice(params, func(i, j int) bool { return params[i].Height < params[j].Height })

	selected := params[0]
	for _, p := range params {
		if p.Height > height {
			break
		}
		selected = p
	}
	return selected
}

// Observer reports whether the pool mirrors a remote master.
func (s *Settings) Observer() bool {
	return s.Mode == ModeObserver
}

// StatusBind returns the htmlhost:htmlport address for the status server.
func (s *Settings) StatusBind() string {
	host := strings.TrimSpace(s.HTMLHost)
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s:%d", host, s.HTMLPort)
}
