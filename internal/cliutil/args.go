// Package cliutil holds small helpers shared by the pool command binaries.
package cliutil

import "strings"

// NormalizeArgs rewrites single-dash long options to the double-dash form,
// so documented invocations like "-datadir=~/pool -testnet" keep working.
// Single-letter flags pass through untouched.
func NormalizeArgs(args []string) []string {
	normalized := make([]string, 0, len(args))
	for _, arg := range args {
		normalized = append(normalized, normalizeArg(arg))
	}
	return normalized
}

func normalizeArg(arg string) string {
	if len(arg) < 3 || arg[0] != '-' || arg[1] == '-' {
		return arg
	}
	name := arg[1:]
	if idx := strings.IndexByte(name, '='); idx >= 0 {
		name = name[:idx]
	}
	if len(name) < 2 {
		return arg
	}
	return "-" + arg
}
