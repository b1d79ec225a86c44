package mediaplayer

import "errors"

// Sentinel errors for the media player bridge. Check with errors.Is.
//
// Payload and field errors stay inside a Player and only reach the logs.
// Capability, transport and media errors are returned to whoever issued the
// command.
var (
	// ErrMalformedPayload is returned when a payload is not a JSON object or
	// a config key holds a non-scalar value.
	ErrMalformedPayload = errors.New("mediaplayer: malformed payload")

	// ErrInvalidFieldValue is returned when a single field cannot be decoded
	// as a number or base64 blob.
	ErrInvalidFieldValue = errors.New("mediaplayer: invalid field value")

	// ErrIdentityMismatch is returned when a config message is addressed to
	// another device.
	ErrIdentityMismatch = errors.New("mediaplayer: identity mismatch")

	// ErrCapabilityUnavailable is returned for a command whose topic is not
	// configured.
	ErrCapabilityUnavailable = errors.New("mediaplayer: capability unavailable")

	// ErrTransport wraps subscribe, unsubscribe and publish failures.
	ErrTransport = errors.New("mediaplayer: transport error")

	// ErrMediaUnresolvable is returned when a media-source reference cannot
	// be turned into a playable URL.
	ErrMediaUnresolvable = errors.New("mediaplayer: media unresolvable")

	// ErrInvalidCommand is returned for an unknown intent or an argument
	// outside its range.
	ErrInvalidCommand = errors.New("mediaplayer: invalid command")

	// ErrPlayerDisposed is returned when commanding a disposed player.
	ErrPlayerDisposed = errors.New("mediaplayer: player disposed")

	// ErrPlayerNotFound is returned by Bridge lookups for unknown identities.
	ErrPlayerNotFound = errors.New("mediaplayer: player not found")
)
