package fs

import (
	"path"
	"strings"

	"libfs/internal/logging"
)

var (
	pathLogger = logging.GetLogger().WithPrefix("path")
)

// Path is a normalized path. It is never empty, uses "/" as its only
// separator and only ends with "/" when it is the root.
//
// The zero value is not a valid Path; obtain one through Normalize.
type Path struct {
	path string
}

// Root is the normalized root path "/".
var Root = Path{path: "/"}

// Normalize canonicalizes a raw path string.
// Backslashes are treated as separators, repeated separators collapse,
// "." and ".." elements are resolved lexically and trailing separators
// are dropped. Empty input and input containing a NUL byte fail with
// ErrInvalidPath.
func Normalize(raw string) (Path, error) {
	if raw == "" {
		return Path{}, NewFSError(OpNormalize, raw, ErrInvalidPath)
	}
	if strings.IndexByte(raw, 0) >= 0 {
		return Path{}, NewFSError(OpNormalize, raw, ErrInvalidPath)
	}

	cleaned := path.Clean(strings.ReplaceAll(raw, `\`, "/"))
	pathLogger.Trace("Normalized path: %q -> %q", raw, cleaned)
	return Path{path: cleaned}, nil
}

// MustNormalize is like Normalize but panics on invalid input.
// It is intended for constant paths in tests and setup code.
func MustNormalize(raw string) Path {
	p, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the string representation of the path
func (p Path) String() string {
	return p.path
}

// IsZero reports whether p was never normalized
func (p Path) IsZero() bool {
	return p.path == ""
}

// IsRoot returns true if this is the root path "/"
func (p Path) IsRoot() bool {
	return p.path == "/"
}

// IsAbs reports whether the path starts at the root
func (p Path) IsAbs() bool {
	return strings.HasPrefix(p.path, "/")
}

// Segments returns the path elements. The root has no segments and a
// relative path keeps its leading "..", if any.
func (p Path) Segments() []string {
	trimmed := strings.TrimPrefix(p.path, "/")
	if trimmed == "" || trimmed == "." {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Parent returns the parent directory
func (p Path) Parent() Path {
	return Path{path: path.Dir(p.path)}
}

// Base returns the last element of the path
func (p Path) Base() string {
	return path.Base(p.path)
}

// Join appends a single name to the path. The name must not be empty and
// must not contain a separator.
func (p Path) Join(name string) (Path, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return Path{}, NewFSError(OpNormalize, name, ErrInvalidPath)
	}
	return Normalize(p.path + "/" + name)
}

// hasSegmentPrefix reports whether prefix is a segment-wise prefix of p,
// so "/working" matches "/working" and "/working/a" but not "/workingset".
func (p Path) hasSegmentPrefix(prefix Path) bool {
	if prefix.IsRoot() {
		return p.IsAbs()
	}
	if p.path == prefix.path {
		return true
	}
	return strings.HasPrefix(p.path, prefix.path) && p.path[len(prefix.path)] == '/'
}

// trimPrefix strips prefix from p and re-roots the rest at "/".
// The caller has checked hasSegmentPrefix.
func (p Path) trimPrefix(prefix Path) Path {
	if prefix.IsRoot() {
		return p
	}
	rest := p.path[len(prefix.path):]
	if rest == "" {
		return Root
	}
	return Path{path: rest}
}
