package storage

import (
	"context"
	"io"
	"strings"
)

// ArtifactStore persists generated look images. Existence of a key is the
// cache's ground truth: there is no separate index, no TTL and no eviction.
type ArtifactStore interface {
	// Exists reports whether an artifact is already stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Put stores data under key. An existing artifact is left untouched:
	// the first write for a key wins and later writes are no-ops.
	Put(ctx context.Context, key string, data []byte) error
	// Open returns a reader over the stored artifact.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	default:
		return ""
	}
}
