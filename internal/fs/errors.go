// Package fs provides the path-existence resolver and its providers.
//
// This file contains error types and error handling utilities.
package fs

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"libfs/internal/logging"
)

var (
	errLogger = logging.GetLogger().WithPrefix("error")

	// ErrInvalidPath indicates an empty path, a path with a NUL byte, or
	// a mount prefix that is not absolute
	ErrInvalidPath = errors.New("invalid path")

	// ErrDuplicateMount indicates a mount prefix that is already registered
	ErrDuplicateMount = errors.New("mount prefix already registered")

	// ErrInvalidProvider indicates a nil provider passed to a mount
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrNotDirectory indicates a mirror root that is not a directory
	ErrNotDirectory = errors.New("not a directory")

	// ErrIO indicates that existence could not be determined. It is never
	// used for a path that simply does not exist.
	ErrIO = errors.New("filesystem i/o failure")
)

// Error wraps filesystem errors with context about the operation and
// affected path.
type Error struct {
	Op   string // Operation that failed (e.g., "normalize", "exists")
	Path string // Affected path
	Err  error  // Underlying error
}

// Error implements the error interface, providing a formatted error message
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("operation %s on %q failed: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for the errors.Is/As functions
func (e *Error) Unwrap() error {
	return e.Err
}

// NewFSError creates a new Error with the given operation, path, and underlying error
func NewFSError(op string, path string, err error) *Error {
	fsErr := &Error{
		Op:   op,
		Path: path,
		Err:  err,
	}
	errLogger.Debug("Created new FSError: %v", fsErr)
	return fsErr
}

// newIOError wraps an unexpected host error so that it matches ErrIO while
// keeping the host cause reachable through errors.Is.
func newIOError(op string, path string, cause error) *Error {
	return NewFSError(op, path, fmt.Errorf("%w: %w", ErrIO, cause))
}

// ToFuseError converts an error to the appropriate FUSE error code.
func ToFuseError(err error) error {
	if err == nil {
		return nil
	}

	errLogger.Trace("Converting error to FUSE error: %v", err)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, os.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, ErrInvalidPath):
		return syscall.EINVAL
	case errors.Is(err, ErrDuplicateMount):
		return syscall.EEXIST
	case errors.Is(err, ErrNotDirectory):
		return syscall.ENOTDIR
	default:
		errLogger.Debug("Unmapped error, returning EIO: %v", err)
		return syscall.EIO
	}
}

// Common operation names for consistent logging and error reporting
const (
	OpNormalize = "normalize" // Canonicalizing a raw path
	OpMount     = "mount"     // Registering a mount
	OpExists    = "exists"    // Checking path existence
	OpKind      = "kind"      // Checking what a path points to
	OpSymlink   = "symlink"   // Checking for a symbolic link
)
