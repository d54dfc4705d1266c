// Package filelock provides a tiny POSIX file-lock shim used by the
// build driver's per-artifact cache writes (§4.7.5: "every write uses a
// per-file lock... with a tmp-file rename for atomicity"), grounded on
// the pack's general pattern of wrapping golang.org/x/sys for OS
// primitives rather than hand-rolling syscall numbers.
package filelock

// Lock is an acquired advisory lock over a path, released by Unlock.
type Lock interface {
	Unlock() error
}
