// Package logging builds slog loggers for the pool daemon and tools.
//
// Three output formats are supported: "console" for human-readable terminal
// output, "json" for machine ingestion, and "pool" which reproduces the flat
// tab-separated stakepool.log format existing deployments and log tooling
// expect.
package logging
