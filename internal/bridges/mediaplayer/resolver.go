package mediaplayer

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
)

// MediaSourceScheme prefixes references that must be resolved before play.
const MediaSourceScheme = "media-source://"

const fallbackMimeType = "application/octet-stream"

// PrefixResolver maps media-source://<path> onto BaseURL/<path>.
type PrefixResolver struct {
	BaseURL string
}

// IsMediaSourceID reports whether id is a media-source reference.
func (r PrefixResolver) IsMediaSourceID(id string) bool {
	return strings.HasPrefix(id, MediaSourceScheme)
}

// Resolve returns the playable URL for id and a mime type guessed from its
// extension.
func (r PrefixResolver) Resolve(_ context.Context, id string) (ResolvedMedia, error) {
	if !r.IsMediaSourceID(id) {
		return ResolvedMedia{}, fmt.Errorf("%w: %q is not a media-source reference", ErrMediaUnresolvable, id)
	}
	if r.BaseURL == "" {
		return ResolvedMedia{}, fmt.Errorf("%w: no media base URL configured", ErrMediaUnresolvable)
	}

	rel := strings.TrimPrefix(id, MediaSourceScheme)
	if rel == "" {
		return ResolvedMedia{}, fmt.Errorf("%w: empty media path", ErrMediaUnresolvable)
	}

	resolved, err := url.JoinPath(r.BaseURL, rel)
	if err != nil {
		return ResolvedMedia{}, fmt.Errorf("%w: %w", ErrMediaUnresolvable, err)
	}

	mimeType := mime.TypeByExtension(path.Ext(rel))
	if mimeType == "" {
		mimeType = fallbackMimeType
	}
	return ResolvedMedia{URL: resolved, MimeType: mimeType}, nil
}
