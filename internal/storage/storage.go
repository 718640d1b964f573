// Package storage routes object operations across the two storage backends
// the episode fleet is spread over: Cloudflare R2 for the ongoing migration
// and the legacy Hostinger host that still owns most of the back catalog.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Provider identifies which backend owns a stored file. The tag is persisted
// on the episode row and is the source of truth for routing delete and URL
// operations.
type Provider string

const (
	ProviderR2        Provider = "r2"
	ProviderHostinger Provider = "hostinger"
)

// ParseProvider normalizes a persisted provider tag. Matching is
// case-insensitive; unrecognized tags route to the primary backend.
func ParseProvider(tag string) Provider {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case string(ProviderHostinger):
		return ProviderHostinger
	default:
		return ProviderR2
	}
}

// ErrNotExist is returned by backends when the object is missing. Router
// delete treats it as success.
var ErrNotExist = errors.New("object does not exist")

// ProgressFunc receives upload progress as a percentage. Values are
// monotonically non-decreasing and end at 100 on success.
type ProgressFunc func(percent int)

// Backend is one object-storage target.
type Backend interface {
	// Upload stores the object under key. size must be the total byte
	// count so progress can be reported; progress may be nil.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string, progress ProgressFunc) error

	// Delete removes the object. Returns ErrNotExist when it was already
	// gone.
	Delete(ctx context.Context, key, bucket string) error

	// PublicURL derives the public URL for (key, bucket) without any
	// network call.
	PublicURL(key, bucket string) string

	// Exists probes for an object stored under its original filename.
	Exists(ctx context.Context, filename string) (bool, error)

	// Ping verifies connectivity and credentials.
	Ping(ctx context.Context) error

	// Provider returns the tag this backend serves.
	Provider() Provider
}
