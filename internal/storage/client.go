package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Name       string
	Size       int64
	ModifiedAt time.Time
}

// BlobStore is a flat namespace of named binary objects.
type BlobStore interface {
	// Put writes content under name, replacing any existing blob atomically.
	Put(ctx context.Context, name string, content io.Reader) error

	// Open returns the blob's content.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// Exists checks if a blob exists.
	Exists(ctx context.Context, name string) (bool, error)

	// List returns every stored blob.
	List(ctx context.Context) ([]BlobInfo, error)
}

// ValidateName rejects names that could escape the store's namespace.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid blob name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("blob name %q must not contain path separators", name)
	case strings.HasPrefix(name, tmpPrefix):
		return fmt.Errorf("blob name %q uses a reserved prefix", name)
	}
	return nil
}

// FilterBlobs filters a blob list by a predicate function.
func FilterBlobs(blobs []BlobInfo, predicate func(BlobInfo) bool) []BlobInfo {
	var filtered []BlobInfo
	for _, b := range blobs {
		if predicate(b) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}
