// Package api provides the HTTP REST API and WebSocket server for the media
// bridge.
//
// It lists discovered media players, exposes their current state and album
// art, accepts commands and removes players. State changes are pushed to
// WebSocket clients subscribed to the "player.state_changed" channel.
//
// The server follows the same lifecycle pattern as the infrastructure
// packages:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// When security.jwt.secret is set every route except /api/v1/health needs an
// HS256 bearer token. WebSocket clients may pass the token as ?token=.
package api
