package prepare

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"coldstakepool/internal/services"
	"coldstakepool/internal/services/capricoind"
)

const (
	rpcWaitAttempts = 20
	rpcWaitInterval = 500 * time.Millisecond
)

// launchNode starts capricoinplusd detached. The node forks itself with
// -daemon, so the command returns once the parent process exits.
func launchNode(ctx context.Context, binDir, daemonName, dataDir string) error {
	daemonPath := filepath.Join(binDir, daemonName)

	cmd := exec.CommandContext(ctx, daemonPath,
		"-daemon", "-noconnect", "-nostaking", "-nodnsseed", "-datadir="+dataDir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return services.Wrap(services.ErrExternalTool, "prepare", "start node", detail, err)
		}
		return services.Wrap(services.ErrExternalTool, "prepare", "start node", "", err)
	}
	if detail := strings.TrimSpace(stderr.String()); detail != "" {
		return services.Wrap(services.ErrExternalTool, "prepare", "start node", detail, nil)
	}
	return nil
}

// waitForRPC polls getblockchaininfo until the node answers.
func waitForRPC(ctx context.Context, client *capricoind.Client) error {
	var lastErr error
	for attempt := 0; attempt < rpcWaitAttempts; attempt++ {
		if _, lastErr = client.GetBlockchainInfo(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rpcWaitInterval):
		}
	}
	return fmt.Errorf("node rpc not responding: %w", lastErr)
}
