package preflight

import (
	"context"

	"coldstakepool/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all startup preflight checks for the given pool.
func RunAll(ctx context.Context, cfg *config.Config, settings *config.Settings, chain config.Chain, poolDir string) []Result {
	if cfg == nil || settings == nil {
		return nil
	}

	var results []Result

	// Pool directory holds the database and settings, always checked.
	results = append(results, CheckDirectoryAccess("Pool directory", poolDir))
	results = append(results, CheckDiskSpace("Pool directory free space", poolDir))

	if settings.CapricoinPlusDataDir != "" {
		results = append(results, CheckDirectoryAccess("Node data directory", settings.CapricoinPlusDataDir))
	}

	for _, status := range CheckSystemDeps(settings.CapricoinPlusBinDir) {
		result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command
		}
		results = append(results, result)
	}

	results = append(results, CheckNodeRPC(ctx, cfg.RPC, chain, settings.CapricoinPlusDataDir))

	return results
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, result := range results {
		if !result.Passed && !result.Optional {
			return true
		}
	}
	return false
}
