package device

import (
	"fmt"
	"strings"
)

// maxIdentityLength bounds identities taken from topic segments.
const maxIdentityLength = 255

// ValidateIdentity checks that identity can stand as a single topic segment.
func ValidateIdentity(identity string) error {
	if strings.TrimSpace(identity) == "" {
		return fmt.Errorf("%w: identity is required", ErrInvalidIdentity)
	}
	if len(identity) > maxIdentityLength {
		return fmt.Errorf("%w: identity exceeds %d characters", ErrInvalidIdentity, maxIdentityLength)
	}
	if strings.ContainsAny(identity, "/+#") {
		return fmt.Errorf("%w: identity %q contains a topic separator or wildcard", ErrInvalidIdentity, identity)
	}
	return nil
}
