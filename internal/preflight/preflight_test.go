package preflight

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"coldstakepool/internal/config"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	result := CheckDirectoryAccess("Pool directory", dir)
	if !result.Passed {
		t.Fatalf("expected check to pass, got detail %q", result.Detail)
	}

	result = CheckDirectoryAccess("Pool directory", filepath.Join(dir, "missing"))
	if result.Passed {
		t.Fatal("expected missing directory to fail")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	result = CheckDirectoryAccess("Pool directory", file)
	if result.Passed {
		t.Fatal("expected regular file to fail")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	result := CheckDiskSpace("Free space", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected temp dir to have free space, got detail %q", result.Detail)
	}
	if !strings.Contains(result.Detail, "MiB free") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckNodeRPC(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(readBody(t, r), "getnetworkinfo"):
			w.Write([]byte(`{"result":{"version":18001000,"subversion":"/Capricoin+:0.18.1.7/"},"error":null,"id":1}`))
		default:
			w.Write([]byte(`{"result":null,"error":{"code":-32601,"message":"method not found"},"id":1}`))
		}
	}))
	defer server.Close()

	host, port := splitHostPort(t, server.URL)
	rpc := config.RPC{Host: host, Port: port, User: "pool", Password: "secret", Timeout: 5}

	result := CheckNodeRPC(context.Background(), rpc, config.ChainMainnet, "")
	if !result.Passed {
		t.Fatalf("expected rpc check to pass, got detail %q", result.Detail)
	}
	if !strings.Contains(result.Detail, "18001000") {
		t.Fatalf("expected core version in detail, got %q", result.Detail)
	}
}

func TestCheckNodeRPCUnreachable(t *testing.T) {
	rpc := config.RPC{Host: "127.0.0.1", Port: 1, User: "pool", Password: "secret", Timeout: 1}
	result := CheckNodeRPC(context.Background(), rpc, config.ChainMainnet, "")
	if result.Passed {
		t.Fatal("expected rpc check to fail")
	}
	if result.Detail == "" {
		t.Fatal("expected detail for failed rpc check")
	}
}

func TestFailedIgnoresOptionalChecks(t *testing.T) {
	results := []Result{
		{Name: "required", Passed: true},
		{Name: "optional", Passed: false, Optional: true},
	}
	if Failed(results) {
		t.Fatal("optional failures should not fail preflight")
	}
	results = append(results, Result{Name: "broken", Passed: false})
	if !Failed(results) {
		t.Fatal("required failure should fail preflight")
	}
}

func readBody(t *testing.T, r *http.Request) string {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func splitHostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	host, portText, err := net.SplitHostPort(strings.TrimPrefix(rawURL, "http://"))
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return host, port
}
