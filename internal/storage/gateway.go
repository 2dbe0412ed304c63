// Package storage contains the gateways through which encrypted answer blobs are read and written.
package storage

import "context"

// Gateway is one endpoint of the content-addressed blob store.
type Gateway interface {
	// Name identifies the gateway in logs.
	Name() string
	// Fetch downloads a blob. It returns errorcode.ErrorNotFound when the gateway does not have it.
	Fetch(ctx context.Context, blobID string) ([]byte, error)
	// Store uploads data and returns its blob ID.
	Store(ctx context.Context, data []byte, epochs int) (string, error)
}
