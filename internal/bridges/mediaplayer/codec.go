package mediaplayer

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IsEmptyPayload reports whether payload is empty or whitespace only.
// An empty retained config is how a device retracts itself.
func IsEmptyPayload(payload []byte) bool {
	return len(bytes.TrimSpace(payload)) == 0
}

// ParseObject decodes a JSON object, keeping values raw so each field can be
// interpreted on its own.
func ParseObject(payload []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedPayload)
	}
	return obj, nil
}

// scalarString interprets a raw JSON value as text. Strings are unquoted,
// numbers and booleans keep their literal form, null counts as absent.
// Objects and arrays are rejected.
func scalarString(raw json.RawMessage) (value string, present bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false, nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		return s, true, nil
	case '{', '[':
		return "", false, fmt.Errorf("%w: expected a scalar, got %s", ErrMalformedPayload, trimmed[:1])
	default:
		return string(trimmed), true, nil
	}
}

// ParseFloat decodes a bare decimal number. NaN and infinities are rejected
// so snapshots stay JSON-encodable.
func ParseFloat(payload []byte) (float64, error) {
	text := strings.TrimSpace(string(payload))
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidFieldValue, text)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not finite", ErrInvalidFieldValue, text)
	}
	return v, nil
}

// DecodeBase64 decodes standard base64 after removing line breaks, which
// publishers insert every 76 characters.
func DecodeBase64(payload []byte) ([]byte, error) {
	clean := strings.ReplaceAll(string(payload), "\n", "")
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFieldValue, err)
	}
	return data, nil
}

// EncodeNumber renders v the way players expect bare numbers: shortest
// decimal form, with ".0" kept on integral values ("1.0", not "1").
func EncodeNumber(v float64) []byte {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return []byte(s)
}

// playMediaPayload is the wire form of a play-media command.
type playMediaPayload struct {
	MediaType string `json:"media_type"`
	MediaID   string `json:"media_id"`
}

// EncodePlayMedia builds {"media_type": ..., "media_id": ...}.
func EncodePlayMedia(mediaType, mediaID string) ([]byte, error) {
	data, err := json.Marshal(playMediaPayload{MediaType: mediaType, MediaID: mediaID})
	if err != nil {
		return nil, fmt.Errorf("encoding play media payload: %w", err)
	}
	return data, nil
}

// IdentityFromTopic returns the second-to-last segment of a discovery topic,
// so ".../kitchen/config" yields "kitchen" at any nesting depth.
func IdentityFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: topic %q has no identity segment", ErrIdentityMismatch, topic)
	}
	identity := parts[len(parts)-2]
	if identity == "" {
		return "", fmt.Errorf("%w: topic %q has an empty identity segment", ErrIdentityMismatch, topic)
	}
	return identity, nil
}
