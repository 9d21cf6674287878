package fs

import (
	"context"

	"libfs/internal/logging"

	"bazil.org/fuse"
)

var (
	fileLogger = logging.GetLogger().WithPrefix("file")
)

// File is a non-directory node in the existence view. It cannot be
// opened; its only purpose is to answer stat with "it exists".
type File struct {
	view *View
	path Path
	kind Kind
}

// Attr implements the Node interface. Size and times are not reported.
func (f *File) Attr(_ context.Context, a *fuse.Attr) error {
	fileLogger.Trace("Getting attributes for %v: %q", f.kind, f.path.String())
	a.Mode = 0444
	a.Uid = f.view.uid
	a.Gid = f.view.gid
	return nil
}
