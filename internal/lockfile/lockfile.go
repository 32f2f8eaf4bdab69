// Package lockfile enforces single-daemon-per-workspace via an advisory
// file lock with pid metadata alongside for diagnostics.
package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Info is the metadata written next to the lock for status commands.
type Info struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	DBPath    string    `json:"db_path,omitempty"`
}

// Lock is a held daemon lock. Release it with Unlock.
type Lock struct {
	fl       *flock.Flock
	infoPath string
}

// Acquire takes the daemon lock at path without blocking. A held lock
// returns (nil, false, nil).
func Acquire(path, dbPath string) (*Lock, bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, false, nil
	}

	lock := &Lock{fl: fl, infoPath: path + ".info"}
	info := Info{PID: os.Getpid(), StartedAt: time.Now().UTC(), DBPath: dbPath}
	data, err := json.MarshalIndent(info, "", "  ")
	if err == nil {
		err = os.WriteFile(lock.infoPath, data, 0o644)
	}
	if err != nil {
		_ = fl.Unlock()
		return nil, false, fmt.Errorf("failed to write lock metadata: %w", err)
	}
	return lock, true, nil
}

// Unlock releases the lock and removes the metadata file.
func (l *Lock) Unlock() error {
	_ = os.Remove(l.infoPath)
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// ReadInfo reads the metadata of a lock at path, if any. Stale metadata
// from a dead process is detected by the caller via the pid.
func ReadInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path + ".info")
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("corrupt lock metadata at %s: %w", path+".info", err)
	}
	return &info, nil
}

// Held reports whether another process currently holds the lock at path.
func Held(path string) (bool, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if ok {
		_ = fl.Unlock()
		return false, nil
	}
	return true, nil
}
