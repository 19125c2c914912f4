package cache

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// LockEntry takes an exclusive flock scoped to one cache entry so that
// concurrent processes on the same host usually download an address once.
// Strictly best-effort: when the lock cannot be taken the caller proceeds
// anyway, since atomic entry writes keep duplicate downloads harmless.
// The returned unlock is never nil.
func (c *Cache) LockEntry(path string) (unlock func()) {
	lockPath := filepath.Join(c.dir, "."+filepath.Base(path)+".lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return func() {}
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return func() {}
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}
}
