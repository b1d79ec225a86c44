// Package auth issues and verifies the HS256 bearer tokens that guard the
// bridge HTTP API.
//
// There are no users or sessions: any holder of a token signed with
// security.jwt.secret may read player state and send commands. Tokens carry
// a subject naming the client (a dashboard, a wall panel) for logging, and
// always expire.
package auth
