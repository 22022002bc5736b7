// Package runlock serializes pipeline runs. Dedup reads and writes are not
// atomic, so two concurrent runs could double-deliver; a file lock keeps the
// scheduled ticker and manual admin triggers from interleaving.
package runlock

import (
	"path/filepath"

	"github.com/gofrs/flock"
)

type Lock struct {
	fl *flock.Flock
}

func New(dataDir string) *Lock {
	return &Lock{fl: flock.New(filepath.Join(dataDir, "run.lock"))}
}

// TryAcquire returns false without blocking when another run holds the lock.
func (l *Lock) TryAcquire() (bool, error) {
	return l.fl.TryLock()
}

func (l *Lock) Release() error {
	return l.fl.Unlock()
}
