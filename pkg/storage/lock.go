package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is the name of the lock file created in the data directory
const LockFileName = ".wqdb.lock"

// ErrDataDirLocked is returned when another process holds the data directory
var ErrDataDirLocked = errors.New("data directory is locked by another process")

// DataDirLock is an advisory, process-wide lock on a data directory. Only one
// server may write collection files to a directory at a time.
type DataDirLock struct {
	flock *flock.Flock
}

// LockDataDir acquires the lock on dir, creating the directory if needed.
// It fails with ErrDataDirLocked instead of waiting.
func LockDataDir(dir string) (*DataDirLock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fl := flock.New(filepath.Join(dir, LockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock data directory %s: %w", dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrDataDirLocked, dir)
	}
	return &DataDirLock{flock: fl}, nil
}

// Path returns the lock file path
func (l *DataDirLock) Path() string {
	return l.flock.Path()
}

// Unlock releases the lock
func (l *DataDirLock) Unlock() error {
	return l.flock.Unlock()
}
