package storage

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelArchive stores entries as keys of a LevelDB database.
type LevelArchive struct {
	db *leveldb.DB
}

// OpenLevel opens or creates a LevelDB archive at path.
func OpenLevel(path string) (*LevelArchive, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb archive: %w", err)
	}
	return &LevelArchive{db: db}, nil
}

// Read returns the contents of an entry.
func (a *LevelArchive) Read(name string) ([]byte, error) {
	data, err := a.db.Get([]byte(normalizeName(name)), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// Write replaces an entry.
func (a *LevelArchive) Write(name string, data []byte) error {
	if err := a.db.Put([]byte(normalizeName(name)), data, nil); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Delete removes an entry.
func (a *LevelArchive) Delete(name string) error {
	key := []byte(normalizeName(name))
	ok, err := a.db.Has(key, nil)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := a.db.Delete(key, nil); err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

// Exists reports whether an entry exists.
func (a *LevelArchive) Exists(name string) bool {
	ok, err := a.db.Has([]byte(normalizeName(name)), nil)
	return err == nil && ok
}

// List returns the names of all entries starting with prefix.
func (a *LevelArchive) List(prefix string) ([]string, error) {
	iter := a.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var names []string
	for iter.Next() {
		names = append(names, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("listing archive: %w", err)
	}
	return names, nil
}

// Close closes the database.
func (a *LevelArchive) Close() error {
	return a.db.Close()
}
