package capricoind

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"coldstakepool/internal/config"
	"coldstakepool/internal/services"
)

type recordedRequest struct {
	path   string
	method string
	params []any
	user   string
	pass   string
}

func newTestServer(t *testing.T, results map[string]any) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		requests = append(requests, recordedRequest{
			path:   r.URL.Path,
			method: req.Method,
			params: req.Params,
			user:   user,
			pass:   pass,
		})

		result, ok := results[req.Method]
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": nil,
				"error":  map[string]any{"code": -32601, "message": "Method not found"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "error": nil})
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, &requests
}

func clientFor(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	client, err := New(Config{Host: u.Hostname(), Port: port, User: "pooluser", Password: "poolpass", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestTypedCallsAndAuth(t *testing.T) {
	server, requests := newTestServer(t, map[string]any{
		"getblockchaininfo": map[string]any{"chain": "test", "blocks": 200123, "bestblockhash": "abcd"},
		"getbestblockhash":  "ffee",
		"getblockhash":      "1122",
		"getnetworkinfo":    map[string]any{"version": 18001000, "subversion": "/CapricoinPlus:0.18.1.7/"},
	})
	client := clientFor(t, server)
	ctx := context.Background()

	info, err := client.GetBlockchainInfo(ctx)
	if err != nil {
		t.Fatalf("GetBlockchainInfo: %v", err)
	}
	if info.Chain != "test" || info.Blocks != 200123 {
		t.Fatalf("unexpected blockchain info %+v", info)
	}

	hash, err := client.GetBestBlockHash(ctx)
	if err != nil || hash != "ffee" {
		t.Fatalf("GetBestBlockHash: %q %v", hash, err)
	}

	if _, err := client.GetBlockHash(ctx, 5); err != nil {
		t.Fatalf("GetBlockHash: %v", err)
	}

	net, err := client.GetNetworkInfo(ctx)
	if err != nil || net.Version != 18001000 {
		t.Fatalf("GetNetworkInfo: %+v %v", net, err)
	}

	for _, req := range *requests {
		if req.user != "pooluser" || req.pass != "poolpass" {
			t.Fatalf("basic auth not applied: %+v", req)
		}
	}
	last := (*requests)[2]
	if last.method != "getblockhash" || len(last.params) != 1 {
		t.Fatalf("unexpected recorded request %+v", last)
	}
}

func TestWalletRouting(t *testing.T) {
	server, requests := newTestServer(t, map[string]any{
		"getnewaddress": "CnewAddr",
	})
	client := clientFor(t, server)

	addr, err := client.Wallet("pool_stake").GetNewAddress(context.Background())
	if err != nil || addr != "CnewAddr" {
		t.Fatalf("GetNewAddress: %q %v", addr, err)
	}
	if got := (*requests)[0].path; got != "/wallet/pool_stake" {
		t.Fatalf("expected wallet path, got %q", got)
	}
	// The base client stays unscoped.
	if _, err := client.GetNewAddress(context.Background()); err != nil {
		t.Fatalf("base client call: %v", err)
	}
	if got := (*requests)[1].path; got != "/" {
		t.Fatalf("expected base path, got %q", got)
	}
}

func TestRPCErrorSurfaces(t *testing.T) {
	server, _ := newTestServer(t, map[string]any{})
	client := clientFor(t, server)

	_, err := client.GetBestBlockHash(context.Background())
	if err == nil {
		t.Fatal("expected rpc error")
	}
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Code != -32601 {
		t.Fatalf("unexpected code %d", rpcErr.Code)
	}
}

func TestUnreachableNodeIsExternalToolError(t *testing.T) {
	client, err := New(Config{Host: "127.0.0.1", Port: 1, User: "u", Password: "p", Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.GetBestBlockHash(context.Background())
	if err == nil || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{Host: "127.0.0.1", Port: 20792})
	if err == nil || !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCookieFileParsing(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cookie")
	if err := os.WriteFile(path, []byte("__cookie__:s3cret\n"), 0o600); err != nil {
		t.Fatalf("write cookie: %v", err)
	}
	user, pass, err := readCookieFile(path)
	if err != nil {
		t.Fatalf("readCookieFile: %v", err)
	}
	if user != "__cookie__" || pass != "s3cret" {
		t.Fatalf("unexpected credentials %q %q", user, pass)
	}

	if err := os.WriteFile(path, []byte("no-separator"), 0o600); err != nil {
		t.Fatalf("write cookie: %v", err)
	}
	if _, _, err := readCookieFile(path); err == nil {
		t.Fatal("expected error for malformed cookie")
	}
}

func TestResolveConfigDefaults(t *testing.T) {
	cfg := ResolveConfig(config.RPC{}, config.ChainTestnet, "/data/capricoinplus")
	if cfg.Port != config.ChainTestnet.RPCPort() {
		t.Fatalf("unexpected port %d", cfg.Port)
	}
	want := filepath.Join("/data/capricoinplus", "testnet", ".cookie")
	if cfg.CookiePath != want {
		t.Fatalf("cookie path %q, want %q", cfg.CookiePath, want)
	}

	withUser := ResolveConfig(config.RPC{User: "u", Password: "p"}, config.ChainMainnet, "/data")
	if withUser.CookiePath != "" {
		t.Fatal("cookie path should stay empty when credentials are set")
	}
}

func TestCoinNumberPrecision(t *testing.T) {
	if got := string(coinNumber(0.1)); got != "0.10000000" {
		t.Fatalf("unexpected coin encoding %q", got)
	}
	if got := string(coinNumber(12.34567891)); !strings.HasPrefix(got, "12.3456789") {
		t.Fatalf("unexpected coin encoding %q", got)
	}
}
