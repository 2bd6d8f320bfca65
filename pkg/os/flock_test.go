package os

import (
	"path/filepath"
	"testing"
)

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.lock")

	a, err := NewFileLock(path)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !Exists(path) {
		t.Fatalf("no lock file at %v", path)
	}
	if err := a.Lock(); err != nil {
		t.Fatalf("lock: %v", err)
	}

	b, err := NewFileLock(path)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if ok, err := b.TryLock(); err != nil || ok {
		t.Errorf("expected the second lock to fail, got %v %v", ok, err)
	}

	if err := a.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if ok, err := b.TryLock(); err != nil || !ok {
		t.Errorf("expected the lock after release, got %v %v", ok, err)
	}
	_ = b.Unlock()
}
