package fs

import (
	"context"
	"os"
	"syscall"

	"libfs/internal/logging"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	dirLogger = logging.GetLogger().WithPrefix("dir")
)

// Dir is a directory node in the existence view. It has no listing;
// children only appear when looked up by name.
type Dir struct {
	view *View
	path Path
}

// Attr implements the Node interface, returning directory attributes.
func (d *Dir) Attr(_ context.Context, a *fuse.Attr) error {
	dirLogger.Trace("Getting attributes for directory: %q", d.path.String())
	a.Mode = os.ModeDir | 0555
	a.Uid = d.view.uid
	a.Gid = d.view.gid
	return nil
}

// Lookup implements the NodeStringLookuper interface by asking the
// resolver what the child path is.
func (d *Dir) Lookup(_ context.Context, name string) (fusefs.Node, error) {
	dirLogger.Debug("Looking up %q in directory %q", name, d.path.String())

	childPath, err := d.path.Join(name)
	if err != nil {
		return nil, ToFuseError(err)
	}

	if d.view.hidden(childPath) {
		dirLogger.Debug("Refusing lookup inside the view's own mount point: %q", childPath.String())
		return nil, syscall.ENOENT
	}

	kind, err := d.view.resolver.Kind(childPath.String())
	if err != nil {
		dirLogger.Warn("Lookup of %q failed: %v", childPath.String(), err)
		return nil, ToFuseError(err)
	}

	switch kind {
	case KindNone:
		dirLogger.Debug("Path not found: %q", childPath.String())
		return nil, syscall.ENOENT
	case KindDirectory:
		dirLogger.Debug("Found directory: %q", childPath.String())
		return &Dir{view: d.view, path: childPath}, nil
	default:
		dirLogger.Debug("Found %v: %q", kind, childPath.String())
		return &File{view: d.view, path: childPath, kind: kind}, nil
	}
}
