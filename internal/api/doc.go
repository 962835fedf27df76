// Package api defines the wire-format types and converters for the pool's
// JSON status endpoints. It translates internal accounting models into
// transport DTOs that web dashboards and the operator CLI can render without
// coupling to internal types, and provides the HTTP client the CLI uses to
// query a running pool.
//
// Amounts are rendered as decimal coin strings so JavaScript consumers never
// see 64-bit satoshi integers. The /json/version payload is fixed: two string
// fields, pool and core.
package api
