package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// RPC contains connection settings for the capricoinplusd RPC interface.
// When user and password are empty the client falls back to the .cookie file
// written by the node under its datadir.
type RPC struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	User       string `toml:"user"`
	Password   string `toml:"password"`
	CookiePath string `toml:"cookie_path"`
	Timeout    int    `toml:"timeout"`
}

// Engine contains chain-follow timing and confirmation settings.
type Engine struct {
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	Confirmations      int `toml:"confirmations"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates ambient configuration for the pool tools. Pool
// accounting parameters live in stakepool.json (see Settings); this file
// only carries operational knobs.
type Config struct {
	Logging       Logging       `toml:"logging"`
	RPC           RPC           `toml:"rpc"`
	Engine        Engine        `toml:"engine"`
	Notifications Notifications `toml:"notifications"`
}

// Default returns the baseline configuration used when no file is present.
func Default() Config {
	return Config{
		Logging: Logging{
			Level:  "info",
			Format: "pool",
		},
		RPC: RPC{
			Host:    "127.0.0.1",
			Timeout: 30,
		},
		Engine: Engine{
			PollInterval:       10,
			ErrorRetryInterval: 30,
			Confirmations:      1,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
	}
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error; defaults apply and exists reports false.
func Load(path string) (cfg *Config, resolvedPath string, exists bool, err error) {
	base := Default()

	resolvedPath, exists, err = resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, openErr := os.Open(resolvedPath)
		if openErr != nil {
			return nil, "", false, fmt.Errorf("open config: %w", openErr)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if decodeErr := decoder.Decode(&base); decodeErr != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", decodeErr)
		}
	}

	if err = base.Validate(); err != nil {
		return nil, "", false, err
	}
	return &base, resolvedPath, exists, nil
}

// Validate checks value ranges that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json", "pool":
	default:
		return fmt.Errorf("logging format: unsupported value %q", c.Logging.Format)
	}
	if c.Engine.PollInterval <= 0 {
		return errors.New("engine poll_interval must be positive")
	}
	if c.Engine.ErrorRetryInterval <= 0 {
		return errors.New("engine error_retry_interval must be positive")
	}
	if c.Engine.Confirmations < 0 {
		return errors.New("engine confirmations must not be negative")
	}
	if c.RPC.Port < 0 || c.RPC.Port > 65535 {
		return fmt.Errorf("rpc port %d out of range", c.RPC.Port)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := ExpandPath("~/.config/coldstakepool/coldstakepool.toml")
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("coldstakepool.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath resolves a leading "~" and returns a cleaned absolute path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
