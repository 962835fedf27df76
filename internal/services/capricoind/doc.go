// Package capricoind is an HTTP JSON-RPC client for the capricoinplusd full
// node. It authenticates with configured credentials or the node's .cookie
// file, routes wallet calls through /wallet/<name>, and exposes typed
// wrappers for the calls the pool engine depends on plus a RawRequest escape
// hatch for the prepare workflow.
package capricoind
