package prepare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"coldstakepool/internal/config"
	"coldstakepool/internal/services/capricoind"
	"coldstakepool/internal/services/coreinstall"
)

func TestWriteNodeConfTestnet(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteNodeConf(dir, config.ChainTestnet)
	if err != nil {
		t.Fatalf("WriteNodeConf: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read conf: %v", err)
	}
	want := "testnet=1\n\n" +
		"zmqpubhashblock=tcp://127.0.0.1:208922\n" +
		"test.wallet=pool_stake\n" +
		"test.wallet=pool_reward\n" +
		"csindex=1\n" +
		"addressindex=1\n"
	if string(data) != want {
		t.Fatalf("conf mismatch:\n%s", data)
	}
}

func TestWriteNodeConfMainnet(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteNodeConf(dir, config.ChainMainnet)
	if err != nil {
		t.Fatalf("WriteNodeConf: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read conf: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "mainnet=1") {
		t.Fatal("mainnet must not write a chain flag")
	}
	if !strings.Contains(content, "zmqpubhashblock=tcp://127.0.0.1:207922\n") {
		t.Fatalf("missing mainnet zmq line:\n%s", content)
	}
	if !strings.Contains(content, "wallet=pool_stake\n") || strings.Contains(content, "test.wallet") {
		t.Fatalf("wallet lines wrong:\n%s", content)
	}
}

func TestWriteNodeConfRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, NodeConfFileName)
	if err := os.WriteFile(existing, []byte("daemon=1\n"), 0o600); err != nil {
		t.Fatalf("seed conf: %v", err)
	}
	if _, err := WriteNodeConf(dir, config.ChainTestnet); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	data, err := os.ReadFile(existing)
	if err != nil || string(data) != "daemon=1\n" {
		t.Fatalf("existing conf modified: %q, %v", data, err)
	}
}

func TestResolveDirs(t *testing.T) {
	dataDir, poolDir, err := ResolveDirs("/var/lib/cpsnode", "", config.ChainTestnet)
	if err != nil {
		t.Fatalf("ResolveDirs: %v", err)
	}
	if dataDir != "/var/lib/cpsnode" || poolDir != "/var/lib/cpsnode/stakepool" {
		t.Fatalf("got %q, %q", dataDir, poolDir)
	}

	_, poolDir, err = ResolveDirs("/var/lib/cpsnode", "/srv/pool", config.ChainTestnet)
	if err != nil {
		t.Fatalf("ResolveDirs: %v", err)
	}
	if poolDir != "/srv/pool" {
		t.Fatalf("explicit pooldir overridden: %q", poolDir)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	dataDir, poolDir, err = ResolveDirs("", "", config.ChainTestnet)
	if err != nil {
		t.Fatalf("ResolveDirs: %v", err)
	}
	if dataDir != filepath.Join(home, ".capricoinplus") {
		t.Fatalf("default datadir = %q", dataDir)
	}
	if poolDir != filepath.Join(home, ".capricoinplus", "testnet", "stakepool") {
		t.Fatalf("default pooldir = %q", poolDir)
	}
}

// fakeNode answers the wallet RPC surface prepare drives.
type fakeNode struct {
	mu         sync.Mutex
	calls      []string
	mnemonics  int
	walletOpts map[string]map[string]any
	stopped    bool
}

func (f *fakeNode) record(wallet, method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if wallet != "" {
		f.calls = append(f.calls, wallet+":"+method)
		return
	}
	f.calls = append(f.calls, method)
}

func (f *fakeNode) called(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (f *fakeNode) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		wallet := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/wallet/"), "/")
		if !strings.HasPrefix(r.URL.Path, "/wallet/") {
			wallet = ""
		}
		f.record(wallet, req.Method)

		reply := func(result any) {
			payload, _ := json.Marshal(result)
			fmt.Fprintf(w, `{"result":%s,"error":null,"id":1}`, payload)
		}

		switch req.Method {
		case "getblockchaininfo":
			reply(map[string]any{"chain": "test", "blocks": 100})
		case "mnemonic":
			f.mu.Lock()
			f.mnemonics++
			n := f.mnemonics
			f.mu.Unlock()
			reply(map[string]string{"mnemonic": fmt.Sprintf("abandon ability phrase %d", n)})
		case "extkeyimportmaster", "importaddress":
			reply(nil)
		case "getnewaddress":
			if wallet == StakeWalletName {
				reply("PsStakeBaseAddress")
				return
			}
			reply("PrRewardAddress")
		case "validateaddress":
			addr, _ := req.Params[0].(string)
			result := map[string]any{"isvalid": true, "address": addr}
			if len(req.Params) > 1 {
				result["stakeonly_address"] = "2StakeOnlyPoolAddress"
			}
			reply(result)
		case "walletsettings":
			key, _ := req.Params[0].(string)
			opts, _ := req.Params[1].(map[string]any)
			f.mu.Lock()
			if f.walletOpts == nil {
				f.walletOpts = make(map[string]map[string]any)
			}
			f.walletOpts[wallet+":"+key] = opts
			f.mu.Unlock()
			reply(nil)
		case "stop":
			f.mu.Lock()
			f.stopped = true
			f.mu.Unlock()
			reply("capricoinplus server stopping")
		default:
			fmt.Fprintf(w, `{"result":null,"error":{"code":-32601,"message":"unknown method %s"},"id":1}`, req.Method)
		}
	}
}

func newFakePreparer(t *testing.T, node *fakeNode, opts Options) (*Preparer, *bool) {
	t.Helper()

	server := httptest.NewServer(node.handler())
	t.Cleanup(server.Close)

	parsed, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	launched := false
	env := coreinstall.Env{BinDir: t.TempDir(), DaemonName: "capricoinplusd"}
	p, err := New(opts, env, nil,
		WithInstallFunc(func(context.Context) error { return nil }),
		WithLaunchFunc(func(context.Context, string) error {
			launched = true
			return nil
		}),
		WithClientFactory(func(config.Chain, string) (*capricoind.Client, error) {
			return capricoind.New(capricoind.Config{
				Host:     parsed.Hostname(),
				Port:     port,
				User:     "pool",
				Password: "secret",
			})
		}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, &launched
}

func TestMasterFlow(t *testing.T) {
	node := &fakeNode{}
	dataDir := filepath.Join(t.TempDir(), "node")
	poolDir := filepath.Join(t.TempDir(), "pool")

	p, launched := newFakePreparer(t, node, Options{
		DataDir: dataDir,
		PoolDir: poolDir,
		Chain:   config.ChainTestnet,
		Mode:    config.ModeMaster,
	})

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !*launched {
		t.Fatal("node was not launched")
	}
	if !node.stopped {
		t.Fatal("setup node was not stopped")
	}

	if result.PoolAddress != "2StakeOnlyPoolAddress" {
		t.Fatalf("pool address = %q", result.PoolAddress)
	}
	if result.RewardAddress != "PrRewardAddress" {
		t.Fatalf("reward address = %q", result.RewardAddress)
	}
	if result.StakeWalletMnemonic == "" || result.StakeWalletMnemonic == result.RewardWalletMnemonic {
		t.Fatalf("mnemonics = %q, %q", result.StakeWalletMnemonic, result.RewardWalletMnemonic)
	}

	if _, err := os.Stat(filepath.Join(dataDir, NodeConfFileName)); err != nil {
		t.Fatalf("node conf missing: %v", err)
	}

	settings, err := config.LoadSettings(poolDir)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if settings.Mode != config.ModeMaster {
		t.Fatalf("mode = %q", settings.Mode)
	}
	if settings.PoolAddress != "2StakeOnlyPoolAddress" || settings.RewardAddress != "PrRewardAddress" {
		t.Fatalf("addresses = %q, %q", settings.PoolAddress, settings.RewardAddress)
	}
	if settings.StartHeight != 200000 || settings.HTMLPort != 9001 {
		t.Fatalf("settings = %+v", settings)
	}
	if len(settings.Parameters) != 1 || settings.Parameters[0].PoolFeePercent != 3 {
		t.Fatalf("parameters = %+v", settings.Parameters)
	}

	if got := node.walletOpts["pool_reward:stakingoptions"]; got == nil || got["enabled"] != "false" {
		t.Fatalf("reward wallet staking options = %v", got)
	}
	if got := node.walletOpts["pool_stake:stakingoptions"]; got == nil || got["rewardaddress"] != "PrRewardAddress" {
		t.Fatalf("stake wallet staking options = %v", got)
	}
}

func TestMasterFlowKeepsProvidedMnemonics(t *testing.T) {
	node := &fakeNode{}
	p, _ := newFakePreparer(t, node, Options{
		DataDir:              filepath.Join(t.TempDir(), "node"),
		PoolDir:              filepath.Join(t.TempDir(), "pool"),
		Chain:                config.ChainRegtest,
		StakeWalletMnemonic:  "stake phrase one",
		RewardWalletMnemonic: "reward phrase two",
	})

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.StakeWalletMnemonic != "stake phrase one" || result.RewardWalletMnemonic != "reward phrase two" {
		t.Fatalf("mnemonics = %+v", result)
	}
	if node.mnemonics != 0 {
		t.Fatalf("mnemonic new called %d times", node.mnemonics)
	}
}

func TestObserverFlow(t *testing.T) {
	master := config.DefaultSettings(config.ChainTestnet, "/remote/bin", "/remote/data")
	master.PoolAddress = "2StakeOnlyPoolAddress"
	master.RewardAddress = "PrRewardAddress"
	payload, err := json.Marshal(master)
	if err != nil {
		t.Fatalf("marshal master settings: %v", err)
	}
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer remote.Close()

	node := &fakeNode{}
	dataDir := filepath.Join(t.TempDir(), "node")
	poolDir := filepath.Join(t.TempDir(), "pool")
	p, _ := newFakePreparer(t, node, Options{
		DataDir:   dataDir,
		PoolDir:   poolDir,
		Chain:     config.ChainTestnet,
		Mode:      config.ModeObserver,
		ConfigURL: remote.URL + "/stakepool.json",
	})

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.StakeWalletMnemonic != "" {
		t.Fatal("observer must not create wallets")
	}

	settings, err := config.LoadSettings(poolDir)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if settings.Mode != config.ModeObserver {
		t.Fatalf("mode = %q", settings.Mode)
	}
	if settings.CapricoinPlusDataDir != dataDir {
		t.Fatalf("datadir = %q", settings.CapricoinPlusDataDir)
	}
	if settings.CapricoinPlusBinDir == "/remote/bin" {
		t.Fatal("bindir must point at the local install")
	}
	if settings.PoolAddress != "2StakeOnlyPoolAddress" {
		t.Fatalf("pool address = %q", settings.PoolAddress)
	}

	if !node.called("pool_stake:importaddress") || !node.called("pool_reward:importaddress") {
		t.Fatalf("watch-only imports missing: %v", node.calls)
	}
	if node.mnemonics != 0 {
		t.Fatal("observer must not generate mnemonics")
	}
}

func TestObserverRequiresConfigURL(t *testing.T) {
	_, err := New(Options{Mode: config.ModeObserver, Chain: config.ChainTestnet}, coreinstall.Env{BinDir: t.TempDir()}, nil)
	if err == nil {
		t.Fatal("expected error without configurl")
	}
}

func TestRunRefusesExistingNodeConf(t *testing.T) {
	node := &fakeNode{}
	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, NodeConfFileName), []byte("daemon=1\n"), 0o600); err != nil {
		t.Fatalf("seed conf: %v", err)
	}

	p, launched := newFakePreparer(t, node, Options{
		DataDir: dataDir,
		PoolDir: filepath.Join(t.TempDir(), "pool"),
		Chain:   config.ChainTestnet,
	})
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected existing conf to abort the run")
	}
	if *launched {
		t.Fatal("node must not launch when the conf exists")
	}
}
