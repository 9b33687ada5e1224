// Package storage provides named-blob archives that hold map files: the map
// and terrain headers, editable sections and baked region chunks.
package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned when an archive has no entry with the given name.
var ErrNotFound = errors.New("entry not found")

// Archive is a flat namespace of byte blobs addressed by slash-separated
// names.
type Archive interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Delete(name string) error
	Exists(name string) bool
	List(prefix string) ([]string, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendDir     = "dir"
	BackendLevelDB = "leveldb"
)

// Open opens an archive with the named backend.
func Open(backend, root string) (Archive, error) {
	switch backend {
	case BackendDir, "":
		return OpenDir(root)
	case BackendLevelDB:
		return OpenLevel(root)
	}
	return nil, fmt.Errorf("unknown storage backend %q", backend)
}

// normalizeName converts separators and cleans the name so every backend
// sees the same key.
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean("/" + name)
	return strings.TrimPrefix(name, "/")
}
