// Package device keeps the record of every media player the bridge has
// discovered.
//
// A record is created the first time a discovery config arrives for an
// identity and removed when the player is deleted. Records survive restarts
// so the bridge can resubscribe known players before the broker replays
// their retained configs.
//
// Registry wraps a Repository with an in-memory cache. Its CreateIfAbsent is
// the single point where check-then-create happens, so two discovery
// messages for the same identity can never create two records.
package device
