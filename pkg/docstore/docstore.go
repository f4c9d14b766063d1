// Package docstore is a key-path addressable document store in the shape the
// game protocol needs: point reads, full-overwrite writes, partial field
// updates, deletes and change subscriptions. Documents are opaque JSON blobs;
// a nil snapshot means the document is absent or was deleted.
package docstore

import (
	"context"
	"strings"
)

// Snapshot is one observed document version.
type Snapshot struct {
	Path string
	// Data is the raw JSON value, nil when the document does not exist.
	Data []byte
}

type Store interface {
	// Get returns the document at path, or (nil, nil) when absent.
	Get(ctx context.Context, path string) ([]byte, error)
	// Set overwrites the whole document. There is no merge: last write wins.
	Set(ctx context.Context, path string, data []byte) error
	// Update merges the given fields into the document, creating it if absent.
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	// Children lists the direct child documents of path, ordered by path.
	Children(ctx context.Context, path string) ([]Snapshot, error)
	// Observe emits the current snapshot, then one snapshot per change.
	// A snapshot with nil Data signals deletion. The channel closes when
	// ctx is cancelled.
	Observe(ctx context.Context, path string) (<-chan Snapshot, error)
	// ObserveChildren emits the full child list of path on every change
	// beneath it, starting with the current list.
	ObserveChildren(ctx context.Context, path string) (<-chan []Snapshot, error)
}

// Join composes a key path from segments: Join("games", id) == "games/id".
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Parent returns the path one level up, or "" for a root-level path.
func Parent(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}
