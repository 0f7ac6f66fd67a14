package storage

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/starford/daymark/internal/apperr"
)

// LockFileName is created in the vault root while an indexer owns it.
const LockFileName = ".daymark.lock"

// Lock guards a vault against a second indexer process.
type Lock struct {
	path  string
	flock *flock.Flock
}

// NewLock creates an (unacquired) lock for the vault rooted at root.
func NewLock(root string) *Lock {
	p := filepath.Join(root, LockFileName)
	return &Lock{path: p, flock: flock.New(p)}
}

// TryAcquire takes the lock without blocking. It returns apperr.ErrLocked
// when another process holds it.
func (l *Lock) TryAcquire() error {
	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("storage: lock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("storage: vault in use (%s): %w", l.path, apperr.ErrLocked)
	}
	return nil
}

// Release frees the lock. Safe to call when not held.
func (l *Lock) Release() error {
	if !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("storage: unlock %s: %w", l.path, err)
	}
	return nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}
