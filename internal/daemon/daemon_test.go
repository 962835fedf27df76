package daemon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"coldstakepool/internal/config"
	"coldstakepool/internal/pool"
	"coldstakepool/internal/services/capricoind"
	"coldstakepool/internal/testsupport"
)

func TestStartStopLifecycle(t *testing.T) {
	d := newTestDaemon(t)
	defer d.Close()

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Status().Running {
		t.Fatal("expected running after start")
	}
	if d.APIAddr() == "" {
		t.Fatal("expected bound api address")
	}

	// The status API must answer while the daemon runs.
	resp, err := http.Get("http://" + d.APIAddr() + "/json/version")
	if err != nil {
		t.Fatalf("GET version: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected stopped after stop")
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	first := newTestDaemon(t)
	defer first.Close()

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	store := testsupport.MustOpenStore(t)
	cfg := testsupport.NewConfig(t)
	settings := testsupport.NewSettings(t, testsupport.WithObserverMode())
	settings.HTMLHost = "127.0.0.1"
	settings.HTMLPort = 0

	engine, err := pool.NewEngine(store, stubChain{}, nil, settings, cfg.Engine, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	// Same pool directory, so the lock file collides.
	second, err := New(cfg, settings, config.ChainRegtest, first.poolDir, store, engine, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer second.Close()

	err = second.Start(ctx)
	if err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStartAgainAfterStop(t *testing.T) {
	d := newTestDaemon(t)
	defer d.Close()

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	d.Stop()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	d.Stop()
}

func TestCoreVersionCached(t *testing.T) {
	var calls int
	rpc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"result":{"version":18001000,"subversion":"/Satoshi:0.18.1/","connections":4},"error":null,"id":1}`)
	}))
	defer rpc.Close()

	host, port, err := splitURLHostPort(rpc.URL)
	if err != nil {
		t.Fatalf("parse rpc url: %v", err)
	}

	client, err := capricoind.New(capricoind.Config{
		Host:     host,
		Port:     port,
		User:     "pool",
		Password: "secret",
		Timeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("capricoind.New: %v", err)
	}

	store := testsupport.MustOpenStore(t)
	cfg := testsupport.NewConfig(t)
	settings := testsupport.NewSettings(t, testsupport.WithObserverMode())

	engine, err := pool.NewEngine(store, stubChain{}, nil, settings, cfg.Engine, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	d, err := New(cfg, settings, config.ChainRegtest, t.TempDir(), store, engine, client, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		v, err := d.CoreVersion(ctx)
		if err != nil {
			t.Fatalf("CoreVersion: %v", err)
		}
		if v != 18001000 {
			t.Fatalf("version = %d", v)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one rpc call, got %d", calls)
	}
	if got := d.coreVersionString(ctx); got != "18001000" {
		t.Fatalf("core version string = %q", got)
	}
}

func TestCoreVersionWithoutClient(t *testing.T) {
	d := newTestDaemon(t)
	defer d.Close()

	if _, err := d.CoreVersion(context.Background()); err == nil {
		t.Fatal("expected error without rpc client")
	}
	if got := d.coreVersionString(context.Background()); got != "0" {
		t.Fatalf("core version string = %q", got)
	}
}

func splitURLHostPort(rawURL string) (string, int, error) {
	trimmed := strings.TrimPrefix(rawURL, "http://")
	idx := strings.LastIndex(trimmed, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("no port in %q", rawURL)
	}
	port, err := strconv.Atoi(trimmed[idx+1:])
	if err != nil {
		return "", 0, err
	}
	return trimmed[:idx], port, nil
}
