// Package store persists motor positions between restarts.
package store

import (
	"os"
	"path/filepath"

	"github.com/asdine/storm/v3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const positionsBucket = "positions"

type Store struct {
	db *storm.DB
}

// Open opens (or creates) the state file at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "store: create %s failed", dir)
		}
	}

	db, err := storm.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "store: open %s failed", path)
	}

	logrus.Debugf("store: opened %s", path)
	return &Store{db: db}, nil
}

// LoadPosition returns the stored position of the named motor.
// found is false when nothing was stored yet.
func (s *Store) LoadPosition(name string) (position int, found bool, err error) {
	err = s.db.Get(positionsBucket, name, &position)
	if errors.Is(err, storm.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "store: %s: load position failed", name)
	}

	return position, true, nil
}

func (s *Store) StorePosition(name string, position int) error {
	if err := s.db.Set(positionsBucket, name, position); err != nil {
		return errors.Wrapf(err, "store: %s: store position failed", name)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
