package services_test

import (
	"errors"
	"testing"

	"coldstakepool/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrExternalTool, "capricoind", "getblockchaininfo", "", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool marker in %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause in %v", err)
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "capricoind", "", "no response", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	if services.Retryable(services.Wrap(services.ErrConfiguration, "config", "", "bad", nil)) {
		t.Fatal("configuration errors must not be retryable")
	}
	if !services.Retryable(services.Wrap(services.ErrTimeout, "rpc", "", "", nil)) {
		t.Fatal("timeouts should be retryable")
	}
}
