package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"libfs/internal/logging"

	"github.com/spf13/afero"
)

var (
	providerLogger = logging.GetLogger().WithPrefix("provider")
)

// Provider answers whether a path exists. A path that does not exist is a
// false result with a nil error; an error means existence could not be
// determined.
type Provider interface {
	Exists(p Path) (bool, error)
}

// Kind describes what a path points to
type Kind int

const (
	// KindNone means the path does not exist
	KindNone Kind = iota
	// KindFile is a regular file
	KindFile
	// KindDirectory is a directory
	KindDirectory
	// KindOther is anything else that exists (device, socket, pipe)
	KindOther
)

var kindNames = map[Kind]string{
	KindNone:      "none",
	KindFile:      "file",
	KindDirectory: "directory",
	KindOther:     "other",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", int(k))
}

// KindProvider is implemented by providers that can tell files from
// directories.
type KindProvider interface {
	Provider
	Kind(p Path) (Kind, error)
}

// SymlinkProvider is implemented by providers that can report whether a
// path is itself a symbolic link.
type SymlinkProvider interface {
	Provider
	IsSymlink(p Path) (bool, error)
}

// aferoProvider is the shared implementation of the afero-backed
// providers. hostPath turns a normalized Path into a name for fs.
type aferoProvider struct {
	name     string
	fs       afero.Fs
	hostPath func(Path) string
}

// Exists implements Provider
func (ap *aferoProvider) Exists(p Path) (bool, error) {
	kind, err := ap.stat(OpExists, p)
	if err != nil {
		return false, err
	}
	return kind != KindNone, nil
}

// Kind implements KindProvider
func (ap *aferoProvider) Kind(p Path) (Kind, error) {
	return ap.stat(OpKind, p)
}

func (ap *aferoProvider) stat(op string, p Path) (Kind, error) {
	name := ap.hostPath(p)
	providerLogger.Trace("%s: stat %q (host %q)", ap.name, p.String(), name)

	info, err := ap.fs.Stat(name)
	if err != nil {
		if isNotExist(err) {
			providerLogger.Trace("%s: %q does not exist", ap.name, p.String())
			return KindNone, nil
		}
		providerLogger.Warn("%s: stat %q failed: %v", ap.name, name, err)
		return KindNone, newIOError(op, p.String(), err)
	}

	switch {
	case info.Mode().IsRegular():
		return KindFile, nil
	case info.IsDir():
		return KindDirectory, nil
	default:
		return KindOther, nil
	}
}

// IsSymlink implements SymlinkProvider. Filesystems without lstat
// support never report links.
func (ap *aferoProvider) IsSymlink(p Path) (bool, error) {
	lstater, ok := ap.fs.(afero.Lstater)
	if !ok {
		return false, nil
	}

	name := ap.hostPath(p)
	info, lstatCalled, err := lstater.LstatIfPossible(name)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		providerLogger.Warn("%s: lstat %q failed: %v", ap.name, name, err)
		return false, newIOError(OpSymlink, p.String(), err)
	}
	return lstatCalled && info.Mode()&os.ModeSymlink != 0, nil
}

// String returns a human readable description of the provider
func (ap *aferoProvider) String() string {
	return ap.name
}

// isNotExist treats a path component that is not a directory the same as
// a missing entry, which is what a plain stat(2) existence check reports.
func isNotExist(err error) bool {
	return errors.Is(err, iofs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// NativeProvider checks paths against the host operating system.
// Relative paths are resolved against the process working directory.
type NativeProvider struct {
	aferoProvider
}

// NewNativeProvider creates a provider backed by the host filesystem
func NewNativeProvider() *NativeProvider {
	return &NativeProvider{
		aferoProvider: aferoProvider{
			name: "native",
			fs:   afero.NewOsFs(),
			hostPath: func(p Path) string {
				return filepath.FromSlash(p.String())
			},
		},
	}
}

// DirectoryMirrorProvider mirrors a host directory subtree: the path "/a"
// is checked as root/a on the host. Paths that climb out of the root do
// not exist.
type DirectoryMirrorProvider struct {
	aferoProvider
	root string
}

// NewDirectoryMirrorProvider creates a provider rooted at the host
// directory root. The root must exist and be a directory.
func NewDirectoryMirrorProvider(root string) (*DirectoryMirrorProvider, error) {
	if root == "" || strings.IndexByte(root, 0) >= 0 {
		return nil, NewFSError(OpMount, root, ErrInvalidPath)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, NewFSError(OpMount, root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, NewFSError(OpMount, root, err)
	}
	if !info.IsDir() {
		return nil, NewFSError(OpMount, root, ErrNotDirectory)
	}

	providerLogger.Debug("Creating mirror provider for %q", absRoot)
	return &DirectoryMirrorProvider{
		aferoProvider: aferoProvider{
			name: "mirror:" + absRoot,
			fs:   afero.NewBasePathFs(afero.NewOsFs(), absRoot),
			hostPath: func(p Path) string {
				return filepath.FromSlash(p.String())
			},
		},
		root: absRoot,
	}, nil
}

// Root returns the absolute host directory being mirrored
func (dp *DirectoryMirrorProvider) Root() string {
	return dp.root
}

// MemoryProvider keeps its tree in memory. It starts with only a root
// directory; entries are added during setup.
type MemoryProvider struct {
	aferoProvider
}

// NewMemoryProvider creates an empty in-memory provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		aferoProvider: aferoProvider{
			name: "memory",
			fs:   afero.NewMemMapFs(),
			hostPath: func(p Path) string {
				// relative names are anchored at the memory root
				if p.IsAbs() {
					return p.String()
				}
				return "/" + p.String()
			},
		},
	}
}

// AddFile creates an empty file, creating parent directories as needed
func (mp *MemoryProvider) AddFile(raw string) error {
	p, err := Normalize(raw)
	if err != nil {
		return err
	}
	name := mp.hostPath(p)
	if err := mp.fs.MkdirAll(mp.hostPath(p.Parent()), 0o755); err != nil {
		return NewFSError(OpMount, raw, err)
	}
	if err := afero.WriteFile(mp.fs, name, nil, 0o644); err != nil {
		return NewFSError(OpMount, raw, err)
	}
	return nil
}

// AddDir creates a directory and its parents
func (mp *MemoryProvider) AddDir(raw string) error {
	p, err := Normalize(raw)
	if err != nil {
		return err
	}
	if err := mp.fs.MkdirAll(mp.hostPath(p), 0o755); err != nil {
		return NewFSError(OpMount, raw, err)
	}
	return nil
}
