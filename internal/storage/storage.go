// Package storage abstracts the blob store holding uploaded report
// files. The pipeline treats it as opaque: bytes in, path out.
package storage

import "context"

// Store is the blob-store collaborator
type Store interface {
	// Upload writes content under the given object path
	Upload(ctx context.Context, path string, content []byte) error
	// Download returns the bytes stored at path
	Download(ctx context.Context, path string) ([]byte, error)
	// Delete removes the object at path
	Delete(ctx context.Context, path string) error
	// PublicURL returns a URL from which the object can be fetched
	PublicURL(path string) string
}
