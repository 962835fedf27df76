// Package daemon coordinates the long-running pool process: it enforces
// single-instance execution with a lock file, runs the accounting engine in
// the background and serves the JSON status endpoints on the configured
// html host and port.
package daemon
