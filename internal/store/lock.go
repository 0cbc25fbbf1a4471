package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
)

// IndexLockFile is the lock file kept in every index directory.
const IndexLockFile = ".index.lock"

// IndexLock guards an index directory across processes. A writer holds
// the exclusive lock for the lifetime of its index context; readers hold
// the shared lock.
type IndexLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewIndexLock creates a lock for the index directory dir.
func NewIndexLock(dir string) *IndexLock {
	lockPath := filepath.Join(dir, IndexLockFile)
	return &IndexLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock takes the exclusive lock without blocking. It fails with
// ERR_206_INDEX_LOCKED when another context holds the directory.
func (l *IndexLock) TryLock() error {
	return l.try(l.flock.TryLock)
}

// TryRLock takes the shared lock without blocking.
func (l *IndexLock) TryRLock() error {
	return l.try(l.flock.TryRLock)
}

func (l *IndexLock) try(acquire func() (bool, error)) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := acquire()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return pkgerrors.New(pkgerrors.ErrCodeIndexLocked,
			fmt.Sprintf("index directory %s is in use", filepath.Dir(l.path)), nil).
			WithDetail("lock", l.path).
			WithSuggestion("Wait for the running index build to finish")
	}

	l.locked = true
	return nil
}

// Unlock releases the lock. It is safe to call on an unlocked IndexLock.
func (l *IndexLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *IndexLock) Path() string {
	return l.path
}

// IsLocked returns true if the lock is currently held.
func (l *IndexLock) IsLocked() bool {
	return l.locked
}
