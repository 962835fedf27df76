package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"coldstakepool/internal/config"
	"coldstakepool/internal/deps"
	"coldstakepool/internal/services/capricoind"
)

// minFreeBytes is the least free space the pool directory may have before
// startup is refused. The block index and payout history grow slowly, so a
// small floor catches only genuinely full disks.
const minFreeBytes = 512 << 20

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies that the filesystem holding path has room for the
// database to grow.
func CheckDiskSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := uint64(stat.Bsize) * stat.Bavail
	if free < minFreeBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%d MiB free, need %d MiB)", path, free>>20, uint64(minFreeBytes)>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d MiB free)", path, free>>20)}
}

// CheckNodeRPC verifies that the Capricoin+ daemon answers authenticated RPC
// calls. It uses a 10-second timeout and a single attempt.
func CheckNodeRPC(ctx context.Context, rpc config.RPC, chain config.Chain, nodeDataDir string) Result {
	const name = "Node RPC"

	client, err := capricoind.New(capricoind.ResolveConfig(rpc, chain, nodeDataDir))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	info, err := client.GetNetworkInfo(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeRPCError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("core version %d", info.Version)}
}

// CheckSystemDeps evaluates the external binaries the pool shells out to.
// Both the daemon and the CLI status command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(binDir string) []deps.Status {
	statuses := deps.CheckCoreBinaries(binDir)
	statuses = append(statuses, deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "gpg",
			Command:     "gpg",
			Description: "Verifies Core release signatures during prepare",
			Optional:    true,
		},
	})...)
	return statuses
}

// summarizeRPCError produces a human-readable summary for RPC check failures.
func summarizeRPCError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "rpc check timed out (daemon unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "rpc check timed out (daemon unreachable)"
	}
	return err.Error()
}
