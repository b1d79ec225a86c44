// Package mediaplayer bridges MQTT-discovered media players.
//
// Devices announce themselves with a retained JSON config on
// <prefix>/<identity>/config. The config names the topics a device publishes
// its state on and the topics it accepts commands on. The bridge binds those
// topics to a live state snapshot and turns user intents back into messages.
//
// # Architecture
//
//	                 ┌────────────┐  DiscoveryEvent  ┌──────────┐
//	<prefix>/# ─────►│ Dispatcher │─────────────────►│  Bridge  │── Registry
//	                 └────────────┘                  └────┬─────┘
//	                                                      │ one per device
//	<prefix>/<id>/config ──────────────────────────►┌─────▼─────┐
//	state topics (Generation) ─────────────────────►│  Player   │──► observers
//	command topics ◄────────────────────────────────└───────────┘
//
// # Rebinding
//
// Every config message rebuilds the player's TopicMap. The live Generation
// is unsubscribed in full before the new one is subscribed, so at most one
// set of state subscriptions exists per device. Updates still queued from an
// older generation are dropped.
//
// # Ordering
//
// Each Player has its own mailbox goroutine. Config messages, state updates
// and commands for one device run one at a time in arrival order. Different
// devices run concurrently. Transport callbacks only enqueue work, so they
// never wait on the broker.
//
// # Errors
//
// Malformed payloads and bad field values are logged and degrade the field
// (null duration, zero volume). Commands return ErrCapabilityUnavailable when
// the device has no topic for them and ErrTransport when publishing fails.
package mediaplayer
