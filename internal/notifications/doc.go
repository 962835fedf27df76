// Package notifications delivers pool events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// coldstakepool.toml and gracefully degrades to a no-op when notifications
// are disabled. The Service interface covers the operational milestones an
// operator cares about: blocks found, payout batches sent or failed, and
// engine errors.
//
// Extend this package if you need alternative transports; the engine depends
// only on the Service interface.
package notifications
