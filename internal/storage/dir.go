package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirArchive stores entries as files under a root directory.
type DirArchive struct {
	root string
}

// OpenDir opens or creates a directory archive.
func OpenDir(root string) (*DirArchive, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &DirArchive{root: root}, nil
}

// Root returns the archive directory.
func (a *DirArchive) Root() string { return a.root }

func (a *DirArchive) path(name string) string {
	return filepath.Join(a.root, filepath.FromSlash(normalizeName(name)))
}

// Read returns the contents of an entry.
func (a *DirArchive) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(a.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// Write replaces an entry. The data is written to a temporary file first
// so readers never see a partial entry.
func (a *DirArchive) Write(name string, data []byte) error {
	p := a.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", name, err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

// Delete removes an entry.
func (a *DirArchive) Delete(name string) error {
	err := os.Remove(a.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}

// Exists reports whether an entry exists.
func (a *DirArchive) Exists(name string) bool {
	info, err := os.Stat(a.path(name))
	return err == nil && info.Mode().IsRegular()
}

// List returns the names of all entries starting with prefix.
func (a *DirArchive) List(prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(a.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(a.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing archive: %w", err)
	}
	return names, nil
}

// Close is a no-op for directory archives.
func (a *DirArchive) Close() error { return nil }
