// Package runlock guards against concurrent setup runs mutating the
// same setup directory.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StaleThreshold is the maximum age of a lock before it is considered
// abandoned by a crashed run.
const StaleThreshold = 10 * time.Minute

// lockFile is the lock's name inside the setup directory.
const lockFile = "setup.lock"

// ErrLockHeld is returned when another setup run holds the lock.
var ErrLockHeld = errors.New("another usblink-setup run is in progress")

// Lock is an exclusive per-setup-directory lock.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the lock for the given setup directory. A lock older
// than StaleThreshold is assumed abandoned, broken, and re-acquired
// once.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create setup directory: %w", err)
	}

	lockPath := filepath.Join(dir, lockFile)

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if stale, _ := isStale(lockPath); !stale {
			return nil, ErrLockHeld
		}
		os.Remove(lockPath)
		file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
		if err != nil {
			return nil, ErrLockHeld
		}
	}

	meta := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(meta); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock metadata: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{path: lockPath, file: file}, nil
}

// Release removes the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}
	return nil
}

func isStale(lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, err
	}
	return time.Since(info.ModTime()) > StaleThreshold, nil
}
