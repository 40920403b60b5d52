// Package objectstore turns opaque storage keys into references a browser
// can load. Two backends exist: S3 presigned URLs and an HTTP gateway that
// hands out URLs itself.
package objectstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrObjectNotFound is returned when the key does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrUnauthorized is returned when the storage service rejected the credential.
	ErrUnauthorized = errors.New("storage request unauthorized")
)

// GetOptions mirrors the per-request options of the storage collaborator.
type GetOptions struct {
	// Prefix is prepended to the key. The dashboard stores maze images at
	// the bucket root, so it is usually empty.
	Prefix string

	// Headers are sent with the request, typically Authorization.
	Headers map[string]string

	// Expires overrides the backend's default lifetime of the reference.
	Expires time.Duration
}

// Store resolves a key to a reference such as a presigned URL.
type Store interface {
	Get(ctx context.Context, key string, opts GetOptions) (string, error)
}

// BearerHeaders builds the header set for a bearer token.
func BearerHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
