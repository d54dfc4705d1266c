//go:build !windows

package filelock

import (
	"os"

	"golang.org/x/sys/unix"
)

type posixLock struct {
	f *os.File
}

// Acquire opens (creating if needed) path and takes an exclusive,
// blocking POSIX flock on it (§4.7.5). The returned Lock's Unlock closes
// the underlying file descriptor, which also releases the flock.
func Acquire(path string) (Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return &posixLock{f: f}, nil
}

func (l *posixLock) Unlock() error {
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	return err
}
