package os

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

type Flock struct {
	f *flock.Flock
}

// NewFileLock prepares a lock file, the system temp dir is used for an empty path.
func NewFileLock(path string) (*Flock, error) {
	if path == "" {
		path = os.TempDir() + string(os.PathSeparator) + "iceorch.lock"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0660)
	if err != nil {
		return nil, err
	}
	_ = f.Close()

	return &Flock{f: flock.New(path)}, nil
}

// TryLock takes the lock without blocking and reports whether it got it.
func (f *Flock) TryLock() (bool, error) { return f.f.TryLock() }
func (f *Flock) Lock() error            { return f.f.Lock() }
func (f *Flock) Unlock() error          { return f.f.Unlock() }
