// Package runlock enforces at most one active run system-wide.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrHeld is returned when another run already holds the lock.
var ErrHeld = errors.New("runlock: another run is already active")

// Acquire takes the cross-run exclusivity lock without blocking. A held
// lock fails fast with ErrHeld. The returned release drops the lock; the
// kernel also drops it if the process dies, so crash paths are covered.
func Acquire(path string) (release func(), err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("runlock: %s: %w", path, err)
		}
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("runlock: %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock file %s)", ErrHeld, path)
	}
	return func() { _ = fl.Unlock() }, nil
}
