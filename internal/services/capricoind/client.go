package capricoind

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"coldstakepool/internal/config"
	"coldstakepool/internal/services"
)

// Config describes a capricoinplusd RPC endpoint. When User is empty the
// client authenticates with the node's .cookie file, re-reading it when the
// file changes so a node restart does not strand the pool.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	CookiePath string
	Timeout    time.Duration
}

// ResolveConfig fills endpoint defaults from the chain and node datadir.
func ResolveConfig(rpc config.RPC, chain config.Chain, nodeDataDir string) Config {
	cfg := Config{
		Host:       strings.TrimSpace(rpc.Host),
		Port:       rpc.Port,
		User:       rpc.User,
		Password:   rpc.Password,
		CookiePath: strings.TrimSpace(rpc.CookiePath),
		Timeout:    time.Duration(rpc.Timeout) * time.Second,
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = chain.RPCPort()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.User == "" && cfg.CookiePath == "" && nodeDataDir != "" {
		cfg.CookiePath = filepath.Join(nodeDataDir, chain.DataSubdir(), ".cookie")
	}
	return cfg
}

// Client is an HTTP JSON-RPC client for capricoinplusd. A Client is safe for
// concurrent use; wallet-scoped clones share the transport and request id
// sequence.
type Client struct {
	baseURL    string
	walletPath string
	auth       func() (user, pass string, err error)
	httpClient *http.Client
	nextID     *atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (primarily for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates an RPC client for the configured endpoint.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("rpc host required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("rpc port %d out of range", cfg.Port)
	}

	var auth func() (string, string, error)
	switch {
	case cfg.User != "":
		user, pass := cfg.User, cfg.Password
		auth = func() (string, string, error) { return user, pass, nil }
	case cfg.CookiePath != "":
		auth = cookieRetriever(cfg.CookiePath)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "capricoind", "auth", "no rpc credentials or cookie path", nil)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		baseURL:    fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		auth:       auth,
		httpClient: &http.Client{Timeout: timeout},
		nextID:     new(atomic.Uint64),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Wallet returns a clone routing requests to the named wallet.
func (c *Client) Wallet(name string) *Client {
	clone := *c
	clone.walletPath = "/wallet/" + url.PathEscape(name)
	return &clone
}

// RPCError is a JSON-RPC error returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RawRequest issues an arbitrary RPC call and returns the raw result. Typed
// wrappers cover everything the daemon needs; prepare-time calls with
// loosely-shaped results go through here.
func (c *Client) RawRequest(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if strings.TrimSpace(method) == "" {
		return nil, errors.New("rpc method required")
	}
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "1.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("encode rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.walletPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	user, pass, err := c.auth()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "capricoind", "auth", "read rpc credentials", err)
	}
	req.SetBasicAuth(user, pass)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "capricoind", method, "", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "capricoind", method, "", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "capricoind", method, "read response", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, services.Wrap(services.ErrConfiguration, "capricoind", method, "rpc authentication failed", nil)
	}

	var decoded rpcResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "capricoind", method,
			fmt.Sprintf("malformed response (http %d)", resp.StatusCode), err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("%s: %w", method, decoded.Error)
	}
	return decoded.Result, nil
}

func (c *Client) call(ctx context.Context, out any, method string, params ...any) error {
	raw, err := c.RawRequest(ctx, method, params...)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}
